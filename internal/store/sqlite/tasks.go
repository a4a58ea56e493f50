package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/lu-zhengda/mailboard/internal/store"
)

// UpsertTask persists an extraction result. The (account, thread) key
// deduplicates: re-extracting a thread replaces its earlier task.
func (s *DB) UpsertTask(ctx context.Context, task *store.TaskRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (account_id, thread_id, title, description, priority,
			business_category, due_date, category, confidence, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, thread_id) DO UPDATE SET
			title             = excluded.title,
			description       = excluded.description,
			priority          = excluded.priority,
			business_category = excluded.business_category,
			due_date          = excluded.due_date,
			category          = excluded.category,
			confidence        = excluded.confidence,
			reason            = excluded.reason`,
		task.AccountID, task.ThreadID, task.Title, task.Description, task.Priority,
		task.BusinessCategory, task.DueDate, task.Category, task.Confidence, task.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert task for thread %s: %w", task.ThreadID, err)
	}
	return nil
}

func (s *DB) ListTasks(ctx context.Context, accountID string) ([]store.TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT account_id, thread_id, title, description, priority,
			business_category, due_date, category, confidence, reason, created_at
		FROM tasks WHERE account_id = ? ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for %s: %w", accountID, err)
	}
	defer rows.Close()

	var tasks []store.TaskRecord
	for rows.Next() {
		var t store.TaskRecord
		if err := rows.Scan(&t.AccountID, &t.ThreadID, &t.Title, &t.Description, &t.Priority,
			&t.BusinessCategory, &t.DueDate, &t.Category, &t.Confidence, &t.Reason, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ccSeparator joins cc addresses into a single column. Addresses never
// contain newlines, so the separator is unambiguous.
const ccSeparator = "\n"

func joinCC(cc []string) string {
	return strings.Join(cc, ccSeparator)
}

func splitCC(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ccSeparator)
}
