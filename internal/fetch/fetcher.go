package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lu-zhengda/mailboard/internal/content"
	"github.com/lu-zhengda/mailboard/internal/domain"
	"github.com/lu-zhengda/mailboard/internal/provider"
)

// maxConcurrentThreads bounds parallel thread fetches in FetchSince to
// stay under provider rate limits.
const maxConcurrentThreads = 10

// Fetcher retrieves threads and messages from the mail provider and
// assembles normalized domain models, resolving each message body
// through the content resolver.
type Fetcher struct {
	provider provider.MailProvider
	resolver *content.Resolver
	log      zerolog.Logger
}

func New(p provider.MailProvider, r *content.Resolver, log zerolog.Logger) *Fetcher {
	return &Fetcher{provider: p, resolver: r, log: log}
}

// FetchThread fetches all messages of a thread and returns the
// normalized snapshot. The subject comes from the first message's
// headers; messages are sorted ascending by header date. A thread with
// zero messages is valid and returns an empty message list.
func (f *Fetcher) FetchThread(ctx context.Context, threadID string) (*domain.Thread, error) {
	raw, err := f.provider.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread %s: %w", threadID, err)
	}

	thread := &domain.Thread{
		ID:       raw.ID,
		Messages: make([]domain.Message, 0, len(raw.Messages)),
	}
	for i := range raw.Messages {
		thread.Messages = append(thread.Messages, f.normalize(&raw.Messages[i]))
	}
	if len(thread.Messages) > 0 {
		thread.Subject = thread.Messages[0].Headers.Subject
	}
	thread.SortMessagesByDate()
	return thread, nil
}

// FetchSince lists inbox messages received on or after the given day,
// deduplicates by thread, and fetches each thread's full detail. A
// single thread's failure is logged and skipped; the result is the
// subset of threads that succeeded.
func (f *Fetcher) FetchSince(ctx context.Context, since time.Time) ([]domain.Thread, error) {
	query := "after:" + since.Format("2006/01/02")
	refs, err := f.provider.ListMessages(ctx, query, []string{"INBOX"})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages since %s: %w", query, err)
	}

	// Dedupe by thread id, preserving first-seen order.
	seen := make(map[string]struct{}, len(refs))
	var threadIDs []string
	for _, ref := range refs {
		if ref.ThreadID == "" {
			continue
		}
		if _, ok := seen[ref.ThreadID]; ok {
			continue
		}
		seen[ref.ThreadID] = struct{}{}
		threadIDs = append(threadIDs, ref.ThreadID)
	}

	type result struct {
		index  int
		thread *domain.Thread
	}

	results := make(chan result, len(threadIDs))
	sem := make(chan struct{}, maxConcurrentThreads)

	for i, id := range threadIDs {
		go func(idx int, threadID string) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- result{index: idx}
				return
			}

			thread, err := f.FetchThread(ctx, threadID)
			if err != nil {
				f.log.Warn().Err(err).Str("thread_id", threadID).Msg("skipping thread after fetch failure")
				results <- result{index: idx}
				return
			}
			results <- result{index: idx, thread: thread}
		}(i, id)
	}

	ordered := make([]*domain.Thread, len(threadIDs))
	for range threadIDs {
		r := <-results
		ordered[r.index] = r.thread
	}

	threads := make([]domain.Thread, 0, len(threadIDs))
	for _, t := range ordered {
		if t != nil {
			threads = append(threads, *t)
		}
	}
	return threads, nil
}

// FetchByID fetches a single message and normalizes it the same way as
// thread messages. A missing message returns (nil, nil) rather than an
// error.
func (f *Fetcher) FetchByID(ctx context.Context, messageID string) (*domain.Message, error) {
	raw, err := f.provider.GetMessage(ctx, messageID)
	if errors.Is(err, provider.ErrNotFound) {
		f.log.Debug().Str("message_id", messageID).Msg("message not found")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}

	msg := f.normalize(raw)
	return &msg, nil
}

// normalize converts a raw provider message into the domain shape:
// headers defaulted to empty strings, addresses parsed, body resolved.
func (f *Fetcher) normalize(raw *provider.RawMessage) domain.Message {
	headers := domain.Headers{
		Subject: raw.Header("Subject"),
		From:    raw.Header("From"),
		To:      raw.Header("To"),
		Date:    raw.Header("Date"),
	}

	return domain.Message{
		ID:       raw.ID,
		ThreadID: raw.ThreadID,
		Snippet:  raw.Snippet,
		Labels:   raw.Labels,
		Headers:  headers,
		From:     parseAddress(headers.From),
		To:       parseAddressList(headers.To),
		Date:     parseDate(headers.Date),
		Body:     f.resolver.Resolve(raw.Content),
		BodyHTML: f.resolver.ResolveHTML(raw.Content),
	}
}
