package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/api/googleapi"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/lu-zhengda/mailboard/internal/provider"
	"github.com/lu-zhengda/mailboard/internal/store"
)

const userID = "me"

// Client implements provider.MailProvider against the Gmail API for a
// single account.
type Client struct {
	tokenStore *store.KeyringTokenStore
	accountID  string
	topic      string
	service    *gmailapi.Service
	cb         *gobreaker.CircuitBreaker
}

// New creates a Gmail client for the given account. topic is the fully
// qualified Pub/Sub topic push notifications are delivered to
// (projects/<project>/topics/<name>).
func New(accountID, topic string, tokenStore *store.KeyringTokenStore) *Client {
	settings := gobreaker.Settings{
		Name:    "gmail-api",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}
	return &Client{
		accountID:  accountID,
		topic:      topic,
		tokenStore: tokenStore,
		cb:         gobreaker.NewCircuitBreaker(settings),
	}
}

// Authenticate runs the OAuth2 flow, saves the token, and initializes the
// Gmail service.
func (c *Client) Authenticate(ctx context.Context) error {
	token, err := authenticate(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate gmail: %w", err)
	}

	if err := c.tokenStore.SaveToken(c.accountID, token); err != nil {
		return fmt.Errorf("failed to save gmail token: %w", err)
	}

	srv, err := gmailapi.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return fmt.Errorf("failed to create gmail service: %w", err)
	}
	c.service = srv
	return nil
}

// ensureService lazily loads the stored token and creates the Gmail
// service if not already done.
func (c *Client) ensureService(ctx context.Context) error {
	if c.service != nil {
		return nil
	}
	token, err := c.tokenStore.LoadToken(c.accountID)
	if err != nil {
		return fmt.Errorf("failed to load gmail token: %w", err)
	}
	srv, err := gmailapi.NewService(ctx, option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return fmt.Errorf("failed to create gmail service: %w", err)
	}
	c.service = srv
	return nil
}

// do runs an API call through the circuit breaker. Client errors (4xx)
// pass through without tripping the breaker; only server faults and
// throttles count toward opening it.
func (c *Client) do(op string, fn func() error) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			var ge *googleapi.Error
			if errors.As(err, &ge) && ge.Code < http.StatusInternalServerError && ge.Code != http.StatusTooManyRequests {
				return nil, &nonCircuitError{err: err}
			}
			return nil, err
		}
		return nil, nil
	})
	var nce *nonCircuitError
	if errors.As(err, &nce) {
		return classify(op, nce.err)
	}
	if err != nil {
		return classify(op, err)
	}
	return nil
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string { return e.err.Error() }

// GetThread returns a thread's raw message graph.
func (c *Client) GetThread(ctx context.Context, id string) (*provider.RawThread, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, classify("get_thread", err)
	}

	var t *gmailapi.Thread
	err := c.do("get_thread", func() error {
		var apiErr error
		t, apiErr = c.service.Users.Threads.Get(userID, id).
			Format("full").Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	messages := make([]provider.RawMessage, 0, len(t.Messages))
	for _, m := range t.Messages {
		messages = append(messages, *mapMessage(m))
	}
	return &provider.RawThread{ID: t.Id, Messages: messages}, nil
}

// GetMessage returns a single raw message, or provider.ErrNotFound.
func (c *Client) GetMessage(ctx context.Context, id string) (*provider.RawMessage, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, classify("get_message", err)
	}

	var m *gmailapi.Message
	err := c.do("get_message", func() error {
		var apiErr error
		m, apiErr = c.service.Users.Messages.Get(userID, id).
			Format("full").Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, err
	}
	if m == nil || m.Payload == nil {
		return nil, provider.ErrNotFound
	}
	return mapMessage(m), nil
}

// ListMessages returns message references matching the query, restricted
// to the given labels. Only ids and thread ids are populated; callers
// fetch full payloads per thread.
func (c *Client) ListMessages(ctx context.Context, query string, labelIDs []string) ([]provider.RawMessage, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, classify("list_messages", err)
	}

	call := c.service.Users.Messages.List(userID)
	if query != "" {
		call = call.Q(query)
	}
	if len(labelIDs) > 0 {
		call = call.LabelIds(labelIDs...)
	}

	var refs []provider.RawMessage
	err := c.do("list_messages", func() error {
		refs = refs[:0]
		return call.Pages(ctx, func(resp *gmailapi.ListMessagesResponse) error {
			for _, m := range resp.Messages {
				refs = append(refs, provider.RawMessage{ID: m.Id, ThreadID: m.ThreadId})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// Watch registers a push-notification watch on the given labels.
func (c *Client) Watch(ctx context.Context, labelIDs []string) (*provider.WatchState, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, classify("watch", err)
	}

	req := &gmailapi.WatchRequest{
		TopicName: c.topic,
		LabelIds:  labelIDs,
	}

	var resp *gmailapi.WatchResponse
	err := c.do("watch", func() error {
		var apiErr error
		resp, apiErr = c.service.Users.Watch(userID, req).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	return &provider.WatchState{
		HistoryID:  resp.HistoryId,
		Expiration: time.Unix(0, resp.Expiration*int64(time.Millisecond)),
	}, nil
}

// StopWatch tears down the active watch. Gmail tolerates stopping a
// non-existent watch, so a 404 is treated as success.
func (c *Client) StopWatch(ctx context.Context) error {
	if err := c.ensureService(ctx); err != nil {
		return classify("stop_watch", err)
	}

	err := c.do("stop_watch", func() error {
		return c.service.Users.Stop(userID).Context(ctx).Do()
	})
	if errors.Is(err, provider.ErrNotFound) {
		return nil
	}
	return err
}

// GetProfile returns the mailbox address and current history cursor.
func (c *Client) GetProfile(ctx context.Context) (string, uint64, error) {
	if err := c.ensureService(ctx); err != nil {
		return "", 0, classify("get_profile", err)
	}

	var profile *gmailapi.Profile
	err := c.do("get_profile", func() error {
		var apiErr error
		profile, apiErr = c.service.Users.GetProfile(userID).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return "", 0, err
	}
	return profile.EmailAddress, profile.HistoryId, nil
}

// Compile-time interface compliance check.
var _ provider.MailProvider = (*Client)(nil)
