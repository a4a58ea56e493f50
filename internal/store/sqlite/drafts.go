package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lu-zhengda/mailboard/internal/store"
)

// SaveDraft persists a generated reply draft, replacing any earlier
// draft for the same thread.
func (s *DB) SaveDraft(ctx context.Context, draft *store.DraftRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (account_id, thread_id, subject, body, to_addr, cc_addrs)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, thread_id) DO UPDATE SET
			subject  = excluded.subject,
			body     = excluded.body,
			to_addr  = excluded.to_addr,
			cc_addrs = excluded.cc_addrs`,
		draft.AccountID, draft.ThreadID, draft.Subject, draft.Body, draft.To, joinCC(draft.CC),
	)
	if err != nil {
		return fmt.Errorf("failed to save draft for thread %s: %w", draft.ThreadID, err)
	}
	return nil
}

// GetDraftByThread retrieves the draft for a thread. A missing row
// returns nil without error.
func (s *DB) GetDraftByThread(ctx context.Context, accountID, threadID string) (*store.DraftRecord, error) {
	var d store.DraftRecord
	var cc string
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, thread_id, subject, body, to_addr, cc_addrs, created_at
		FROM drafts WHERE account_id = ? AND thread_id = ?`,
		accountID, threadID,
	).Scan(&d.AccountID, &d.ThreadID, &d.Subject, &d.Body, &d.To, &cc, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft for thread %s: %w", threadID, err)
	}
	d.CC = splitCC(cc)
	return &d, nil
}
