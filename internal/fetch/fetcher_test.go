package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/lu-zhengda/mailboard/internal/content"
	"github.com/lu-zhengda/mailboard/internal/domain"
	"github.com/lu-zhengda/mailboard/internal/provider"
)

type fakeProvider struct {
	threads  map[string]*provider.RawThread
	messages map[string]*provider.RawMessage
	listed   []provider.RawMessage
	listErr  error
	failures map[string]error
}

func (f *fakeProvider) GetThread(_ context.Context, id string) (*provider.RawThread, error) {
	if err := f.failures[id]; err != nil {
		return nil, err
	}
	t, ok := f.threads[id]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return t, nil
}

func (f *fakeProvider) GetMessage(_ context.Context, id string) (*provider.RawMessage, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, provider.ErrNotFound
	}
	return m, nil
}

func (f *fakeProvider) ListMessages(_ context.Context, _ string, _ []string) ([]provider.RawMessage, error) {
	return f.listed, f.listErr
}

func (f *fakeProvider) Watch(_ context.Context, _ []string) (*provider.WatchState, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) StopWatch(_ context.Context) error { return nil }

func (f *fakeProvider) GetProfile(_ context.Context) (string, uint64, error) {
	return "user@example.com", 1, nil
}

func newTestFetcher(p provider.MailProvider) *Fetcher {
	log := zerolog.Nop()
	return New(p, content.NewResolver(content.NewCleaner(nil, log), log), log)
}

func b64(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func rawMessage(id, threadID, subject, date string) provider.RawMessage {
	return provider.RawMessage{
		ID:       id,
		ThreadID: threadID,
		Headers: map[string]string{
			"subject": subject,
			"from":    "Alice <alice@example.com>",
			"to":      "Bob <bob@example.com>",
			"date":    date,
		},
		Content: &domain.ContentPart{
			MimeType: "text/plain",
			Data:     b64("body of " + id),
		},
	}
}

func TestFetchThread(t *testing.T) {
	p := &fakeProvider{
		threads: map[string]*provider.RawThread{
			"t1": {
				ID: "t1",
				Messages: []provider.RawMessage{
					rawMessage("m1", "t1", "Quarterly review", "Mon, 01 Jan 2024 10:00:00 +0000"),
					rawMessage("m2", "t1", "Re: Quarterly review", "Mon, 01 Jan 2024 11:00:00 +0000"),
				},
			},
		},
	}
	f := newTestFetcher(p)

	thread, err := f.FetchThread(context.Background(), "t1")
	if err != nil {
		t.Fatalf("FetchThread() error: %v", err)
	}
	if thread.Subject != "Quarterly review" {
		t.Errorf("Subject = %q, want %q", thread.Subject, "Quarterly review")
	}
	if len(thread.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(thread.Messages))
	}
	if thread.Messages[0].Body != "body of m1" {
		t.Errorf("Body = %q, want %q", thread.Messages[0].Body, "body of m1")
	}
	if thread.Messages[0].From.Email != "alice@example.com" {
		t.Errorf("From.Email = %q, want %q", thread.Messages[0].From.Email, "alice@example.com")
	}
}

func TestFetchThread_DateOrdering(t *testing.T) {
	// Messages arrive out of order: D1, D2, D3 with D3 < D1 < D2.
	p := &fakeProvider{
		threads: map[string]*provider.RawThread{
			"t1": {
				ID: "t1",
				Messages: []provider.RawMessage{
					rawMessage("m1", "t1", "s", "Mon, 01 Jan 2024 12:00:00 +0000"),
					rawMessage("m2", "t1", "s", "Mon, 01 Jan 2024 15:00:00 +0000"),
					rawMessage("m3", "t1", "s", "Mon, 01 Jan 2024 09:00:00 +0000"),
				},
			},
		},
	}
	f := newTestFetcher(p)

	thread, err := f.FetchThread(context.Background(), "t1")
	if err != nil {
		t.Fatalf("FetchThread() error: %v", err)
	}

	wantOrder := []string{"m3", "m1", "m2"}
	for i, want := range wantOrder {
		if thread.Messages[i].ID != want {
			t.Errorf("Messages[%d].ID = %q, want %q", i, thread.Messages[i].ID, want)
		}
	}
}

func TestFetchThread_EmptyAndMissingHeaders(t *testing.T) {
	p := &fakeProvider{
		threads: map[string]*provider.RawThread{
			"empty": {ID: "empty"},
			"bare": {
				ID: "bare",
				Messages: []provider.RawMessage{
					{ID: "m1", ThreadID: "bare"},
				},
			},
		},
	}
	f := newTestFetcher(p)

	thread, err := f.FetchThread(context.Background(), "empty")
	if err != nil {
		t.Fatalf("FetchThread(empty) error: %v", err)
	}
	if len(thread.Messages) != 0 {
		t.Errorf("got %d messages, want 0", len(thread.Messages))
	}

	thread, err = f.FetchThread(context.Background(), "bare")
	if err != nil {
		t.Fatalf("FetchThread(bare) error: %v", err)
	}
	msg := thread.Messages[0]
	if msg.Headers.Subject != "" || msg.Headers.From != "" || msg.Headers.To != "" || msg.Headers.Date != "" {
		t.Errorf("missing headers should default to empty strings, got %+v", msg.Headers)
	}
	if msg.Body != "" {
		t.Errorf("message without content should resolve to empty body, got %q", msg.Body)
	}
}

func TestFetchSince(t *testing.T) {
	p := &fakeProvider{
		listed: []provider.RawMessage{
			{ID: "m1", ThreadID: "t1"},
			{ID: "m2", ThreadID: "t1"}, // duplicate thread
			{ID: "m3", ThreadID: "t2"},
			{ID: "m4", ThreadID: "t3"},
		},
		threads: map[string]*provider.RawThread{
			"t1": {ID: "t1", Messages: []provider.RawMessage{rawMessage("m1", "t1", "a", "Mon, 01 Jan 2024 10:00:00 +0000")}},
			"t2": {ID: "t2", Messages: []provider.RawMessage{rawMessage("m3", "t2", "b", "Mon, 01 Jan 2024 10:00:00 +0000")}},
		},
		failures: map[string]error{
			"t3": errors.New("transient provider failure"),
		},
	}
	f := newTestFetcher(p)

	threads, err := f.FetchSince(context.Background(), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchSince() error: %v", err)
	}

	// t1 deduplicated, t3 failed and skipped.
	if len(threads) != 2 {
		t.Fatalf("got %d threads, want 2", len(threads))
	}
	if threads[0].ID != "t1" || threads[1].ID != "t2" {
		t.Errorf("thread order = %s, %s; want t1, t2", threads[0].ID, threads[1].ID)
	}
}

func TestFetchSince_ListFailure(t *testing.T) {
	p := &fakeProvider{listErr: errors.New("rate limited")}
	f := newTestFetcher(p)

	if _, err := f.FetchSince(context.Background(), time.Now()); err == nil {
		t.Fatal("FetchSince() should propagate list failures")
	}
}

func TestFetchByID(t *testing.T) {
	raw := rawMessage("m1", "t1", "hello", "Mon, 01 Jan 2024 10:00:00 +0000")
	p := &fakeProvider{
		messages: map[string]*provider.RawMessage{"m1": &raw},
	}
	f := newTestFetcher(p)

	msg, err := f.FetchByID(context.Background(), "m1")
	if err != nil {
		t.Fatalf("FetchByID() error: %v", err)
	}
	if msg == nil || msg.ID != "m1" {
		t.Fatalf("FetchByID() = %+v, want message m1", msg)
	}
	if len(msg.To) != 1 || msg.To[0].Normalize() != "bob@example.com" {
		t.Errorf("To = %+v, want normalized bob@example.com", msg.To)
	}

	// Missing message is a nil result, not an error.
	msg, err = f.FetchByID(context.Background(), "absent")
	if err != nil {
		t.Fatalf("FetchByID(absent) error: %v", err)
	}
	if msg != nil {
		t.Errorf("FetchByID(absent) = %+v, want nil", msg)
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantName  string
		wantEmail string
	}{
		{"name and email", "John Doe <john@example.com>", "John Doe", "john@example.com"},
		{"bare email", "john@example.com", "", "john@example.com"},
		{"quoted name", `"Jane Doe" <jane@example.com>`, "Jane Doe", "jane@example.com"},
		{"empty string", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAddress(tt.input)
			if got.Name != tt.wantName || got.Email != tt.wantEmail {
				t.Errorf("parseAddress(%q) = %+v, want {%q %q}", tt.input, got, tt.wantName, tt.wantEmail)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		invalid bool
	}{
		{"RFC1123Z", "Mon, 01 Jan 2024 12:00:00 -0500", false},
		{"single-digit day", "Mon, 1 Jan 2024 12:00:00 -0500", false},
		{"ISO 8601", "2024-01-01T12:00:00Z", false},
		{"empty", "", true},
		{"garbage", "not a date", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseDate(tt.input)
			if tt.invalid != got.IsZero() {
				t.Errorf("parseDate(%q).IsZero() = %v, want %v", tt.input, got.IsZero(), tt.invalid)
			}
		})
	}
}
