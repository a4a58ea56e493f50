package store

import (
	"context"
	"time"

	"github.com/lu-zhengda/mailboard/internal/domain"
)

// Store defines the persistence interface for the application.
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	MarkAccountDisconnected(ctx context.Context, id string) error
	MarkAccountConnected(ctx context.Context, id string) error
	DeleteAccount(ctx context.Context, id string) error

	// Subscriptions
	SetSubscription(ctx context.Context, sub *domain.Subscription) error
	GetSubscription(ctx context.Context, accountID string) (*domain.Subscription, error)
	ListExpiringSubscriptions(ctx context.Context, within time.Duration) ([]domain.Subscription, error)

	// Extraction results
	UpsertTask(ctx context.Context, task *TaskRecord) error
	ListTasks(ctx context.Context, accountID string) ([]TaskRecord, error)
	SaveDraft(ctx context.Context, draft *DraftRecord) error
	GetDraftByThread(ctx context.Context, accountID, threadID string) (*DraftRecord, error)

	// Lifecycle
	Close() error
}

// TaskRecord is a persisted extraction result. Tasks are deduplicated
// per (account, thread): re-extracting a thread replaces its task.
type TaskRecord struct {
	AccountID        string
	ThreadID         string
	Title            string
	Description      string
	Priority         string
	BusinessCategory string
	DueDate          string
	Category         string
	Confidence       float64
	Reason           string
	CreatedAt        time.Time
}

// DraftRecord is a persisted reply draft for a thread.
type DraftRecord struct {
	AccountID string
	ThreadID  string
	Subject   string
	Body      string
	To        string
	CC        []string
	CreatedAt time.Time
}
