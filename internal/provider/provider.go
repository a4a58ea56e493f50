package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lu-zhengda/mailboard/internal/domain"
)

// ErrNotFound is returned when a message or thread does not exist on the
// provider side.
var ErrNotFound = errors.New("provider: not found")

// ErrorKind classifies provider failures so callers can dispatch without
// matching human-readable message text.
type ErrorKind int

const (
	// KindTransient covers network faults and provider 5xx responses;
	// safe to retry.
	KindTransient ErrorKind = iota
	// KindRateLimited is a provider throttle; retry after backoff.
	KindRateLimited
	// KindAuthExpired is a terminal credential failure (expired or
	// revoked grant, missing refresh token). The account must be
	// disconnected and renewals stopped.
	KindAuthExpired
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindAuthExpired:
		return "auth_expired"
	default:
		return "transient"
	}
}

// Error wraps a provider failure with its classification.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return "provider: " + e.Op + " (" + e.Kind.String() + "): " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsAuthExpired reports whether err carries a terminal credential failure.
func IsAuthExpired(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindAuthExpired
}

// IsRateLimited reports whether err is a provider throttle.
func IsRateLimited(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindRateLimited
}

// RawMessage is the provider-shaped message payload before normalization:
// identifiers, labels, snippet, raw headers, and the MIME content tree.
type RawMessage struct {
	ID       string
	ThreadID string
	Snippet  string
	Labels   []string
	Headers  map[string]string
	Content  *domain.ContentPart
}

// Header performs a case-insensitive header lookup, returning "" when
// the header is absent.
func (m *RawMessage) Header(name string) string {
	if m == nil || m.Headers == nil {
		return ""
	}
	return m.Headers[strings.ToLower(name)]
}

// RawThread is a provider thread: an id plus its raw messages in
// provider return order.
type RawThread struct {
	ID       string
	Messages []RawMessage
}

// WatchState is the result of registering a push-notification watch.
type WatchState struct {
	HistoryID  uint64
	Expiration time.Time
}

// MailProvider is the mail-provider boundary the pipeline consumes.
type MailProvider interface {
	// GetThread returns the raw message graph for a thread.
	GetThread(ctx context.Context, id string) (*RawThread, error)

	// GetMessage returns a single raw message, or ErrNotFound.
	GetMessage(ctx context.Context, id string) (*RawMessage, error)

	// ListMessages returns ids of messages matching a provider-native
	// query, restricted to the given labels.
	ListMessages(ctx context.Context, query string, labelIDs []string) ([]RawMessage, error)

	// Watch registers a push-notification watch scoped to the given
	// labels, delivering to the configured topic.
	Watch(ctx context.Context, labelIDs []string) (*WatchState, error)

	// StopWatch tears down the watch. Stopping a non-existent watch is
	// not an error.
	StopWatch(ctx context.Context) error

	// GetProfile returns the authenticated mailbox address and its
	// current history cursor.
	GetProfile(ctx context.Context) (string, uint64, error)
}
