package watch

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lu-zhengda/mailboard/internal/provider"
)

// AccountStore is the slice of persistence the lifecycle manager needs:
// flipping an account's connection flag when its credential dies.
type AccountStore interface {
	MarkAccountDisconnected(ctx context.Context, accountID string) error
}

// Manager owns the push-notification watch lifecycle per account.
// Renewals for the same account are serialized so a stale history id
// can never overwrite a fresher one, and the disconnect side effect
// fires at most once per credential failure.
type Manager struct {
	store AccountStore
	log   zerolog.Logger

	mu           sync.Mutex
	renewLocks   map[string]*sync.Mutex
	disconnected map[string]bool
}

func NewManager(store AccountStore, log zerolog.Logger) *Manager {
	return &Manager{
		store:        store,
		log:          log,
		renewLocks:   make(map[string]*sync.Mutex),
		disconnected: make(map[string]bool),
	}
}

// inboxLabels scopes every watch to the inbox.
var inboxLabels = []string{"INBOX"}

// Initialize verifies the account's credential, stops any pre-existing
// watch, and registers a fresh one. The caller persists the returned
// state.
func (m *Manager) Initialize(ctx context.Context, accountID string, p provider.MailProvider) (*provider.WatchState, error) {
	// GetProfile forces a token load and refresh before touching the
	// watch endpoints.
	if _, _, err := p.GetProfile(ctx); err != nil {
		return nil, fmt.Errorf("credential check failed for account %s: %w", accountID, err)
	}
	state, err := m.stopThenWatch(ctx, accountID, p)
	if err != nil {
		return nil, err
	}
	m.markConnected(accountID)
	m.log.Info().
		Str("account_id", accountID).
		Uint64("history_id", state.HistoryID).
		Time("expiration", state.Expiration).
		Msg("watch initialized")
	return state, nil
}

// Renew re-registers the watch before it expires. Renewals for the same
// account are serialized. A credential failure marks the account
// disconnected exactly once and the original error is still returned so
// the caller stops scheduling renewals.
func (m *Manager) Renew(ctx context.Context, accountID, email string, p provider.MailProvider) (*provider.WatchState, error) {
	lock := m.renewLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	state, err := m.stopThenWatch(ctx, accountID, p)
	if err != nil {
		if provider.IsAuthExpired(err) {
			m.disconnect(ctx, accountID, email)
		}
		return nil, err
	}
	m.markConnected(accountID)
	m.log.Debug().
		Str("account_id", accountID).
		Uint64("history_id", state.HistoryID).
		Msg("watch renewed")
	return state, nil
}

// Remove stops the watch. Best effort: stopping an already-stopped
// watch is fine and other failures are only logged.
func (m *Manager) Remove(ctx context.Context, accountID string, p provider.MailProvider) {
	if err := p.StopWatch(ctx); err != nil {
		m.log.Warn().Err(err).Str("account_id", accountID).Msg("failed to stop watch")
		return
	}
	m.log.Info().Str("account_id", accountID).Msg("watch stopped")
}

func (m *Manager) stopThenWatch(ctx context.Context, accountID string, p provider.MailProvider) (*provider.WatchState, error) {
	// Stop tolerates a non-existent watch, so this sequence is
	// idempotent.
	if err := p.StopWatch(ctx); err != nil {
		return nil, fmt.Errorf("failed to stop watch for account %s: %w", accountID, err)
	}
	state, err := p.Watch(ctx, inboxLabels)
	if err != nil {
		return nil, fmt.Errorf("failed to register watch for account %s: %w", accountID, err)
	}
	return state, nil
}

func (m *Manager) renewLock(accountID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.renewLocks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		m.renewLocks[accountID] = lock
	}
	return lock
}

// disconnect flips the account's connection flag once. Repeated auth
// failures after the flag is set do not hit the store again.
func (m *Manager) disconnect(ctx context.Context, accountID, email string) {
	m.mu.Lock()
	already := m.disconnected[accountID]
	m.disconnected[accountID] = true
	m.mu.Unlock()
	if already {
		return
	}

	m.log.Warn().
		Str("account_id", accountID).
		Str("email", email).
		Msg("credential expired, marking account disconnected")
	if err := m.store.MarkAccountDisconnected(ctx, accountID); err != nil {
		m.log.Error().Err(err).Str("account_id", accountID).Msg("failed to mark account disconnected")
	}
}

func (m *Manager) markConnected(accountID string) {
	m.mu.Lock()
	delete(m.disconnected, accountID)
	m.mu.Unlock()
}
