package sqlite

import (
	"context"
	"fmt"

	"github.com/lu-zhengda/mailboard/internal/domain"
)

func (s *DB) CreateAccount(ctx context.Context, acct *domain.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, provider, connected) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET email = excluded.email, connected = excluded.connected`,
		acct.ID, acct.Email, acct.Provider, acct.Connected,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *DB) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var a domain.Account
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, provider, connected, created_at FROM accounts WHERE id = ?`, id,
	).Scan(&a.ID, &a.Email, &a.Provider, &a.Connected, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return &a, nil
}

func (s *DB) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, provider, connected, created_at FROM accounts ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Email, &a.Provider, &a.Connected, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *DB) setConnected(ctx context.Context, id string, connected bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET connected = ? WHERE id = ?`, connected, id)
	if err != nil {
		return fmt.Errorf("failed to update connection state for %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("account %s not found", id)
	}
	return nil
}

// MarkAccountDisconnected flips the account's connection flag off. The
// update is idempotent; a second call on a disconnected account is a
// no-op at the data level.
func (s *DB) MarkAccountDisconnected(ctx context.Context, id string) error {
	return s.setConnected(ctx, id, false)
}

func (s *DB) MarkAccountConnected(ctx context.Context, id string) error {
	return s.setConnected(ctx, id, true)
}

func (s *DB) DeleteAccount(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", id, err)
	}
	return nil
}
