package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lu-zhengda/mailboard/internal/domain"
)

// SetSubscription inserts or updates the watch state for an account.
func (s *DB) SetSubscription(ctx context.Context, sub *domain.Subscription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (account_id, history_id, expiration)
		VALUES (?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			history_id = excluded.history_id,
			expiration = excluded.expiration`,
		sub.AccountID, sub.HistoryID, sub.Expiration.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set subscription for %s: %w", sub.AccountID, err)
	}
	return nil
}

// GetSubscription retrieves the watch state for an account. A missing
// row returns nil without error.
func (s *DB) GetSubscription(ctx context.Context, accountID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.db.QueryRowContext(ctx,
		`SELECT account_id, history_id, expiration FROM subscriptions WHERE account_id = ?`,
		accountID,
	).Scan(&sub.AccountID, &sub.HistoryID, &sub.Expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription for %s: %w", accountID, err)
	}
	return &sub, nil
}

// ListExpiringSubscriptions returns subscriptions of connected accounts
// that expire within the given window, soonest first.
func (s *DB) ListExpiringSubscriptions(ctx context.Context, within time.Duration) ([]domain.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sub.account_id, sub.history_id, sub.expiration
		FROM subscriptions sub
		JOIN accounts a ON a.id = sub.account_id
		WHERE a.connected AND sub.expiration <= ?
		ORDER BY sub.expiration`,
		time.Now().Add(within).UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		if err := rows.Scan(&sub.AccountID, &sub.HistoryID, &sub.Expiration); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
