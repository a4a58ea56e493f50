package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lu-zhengda/mailboard/internal/domain"
	"github.com/lu-zhengda/mailboard/internal/genai"
)

// fakeGenerator returns a canned payload or error and records the last
// request it saw.
type fakeGenerator struct {
	payload string
	err     error
	lastReq genai.Request
	calls   int
}

func (f *fakeGenerator) Generate(_ context.Context, req genai.Request) (json.RawMessage, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.payload), nil
}

func newOrchestrator(gen genai.Generator) *Orchestrator {
	return NewOrchestrator(gen, nil, zerolog.Nop())
}

func msg(id, from, to, date, body string, at time.Time) domain.Message {
	return domain.Message{
		ID:      id,
		Headers: domain.Headers{From: from, To: to, Date: date, Subject: "s"},
		Date:    at,
		Body:    body,
	}
}

func testThread(msgs ...domain.Message) *domain.Thread {
	return &domain.Thread{ID: "t1", Subject: "s", Messages: msgs}
}

func TestCategoryMapper_Total(t *testing.T) {
	m := NewCategoryMapper(nil)
	tests := []struct {
		business string
		want     string
	}{
		{"Revenue-Generating", domain.CategoryImportantInfo},
		{"Operational", domain.CategoryImportantInfo},
		{"Relationship-Building", domain.CategoryImportantInfo},
		{"Compliance", domain.CategoryImportantInfo},
		{"operational", domain.CategoryImportantInfo},
		{"  COMPLIANCE  ", domain.CategoryImportantInfo},
		{"Other", domain.CategoryNotifications},
		{"", domain.CategoryNotifications},
		{"garbage value", domain.CategoryNotifications},
	}
	for _, tt := range tests {
		got := m.Map(tt.business)
		if got != tt.want {
			t.Errorf("Map(%q) = %q, want %q", tt.business, got, tt.want)
		}
		if !domain.IsUICategory(got) {
			t.Errorf("Map(%q) = %q, not a UI category", tt.business, got)
		}
	}
}

func TestCategoryMapper_InjectedTable(t *testing.T) {
	m := NewCategoryMapper(map[string]string{"urgent": domain.CategoryToRespond})
	if got := m.Map("Urgent"); got != domain.CategoryToRespond {
		t.Errorf("Map(Urgent) = %q, want %q", got, domain.CategoryToRespond)
	}
	if got := m.Map("Revenue-Generating"); got != domain.CategoryNotifications {
		t.Errorf("custom table must replace the default, got %q", got)
	}
}

func TestExtractTask_Success(t *testing.T) {
	gen := &fakeGenerator{payload: `{
		"requires_action": true,
		"confidence_score": 0.9,
		"reason": "deadline approaching",
		"task": {"title": "Send report", "description": "d", "priority": "high", "business_category": "Operational"}
	}`}
	o := newOrchestrator(gen)

	result := o.ExtractTask(context.Background(), testThread(
		msg("m1", "a@x.com", "b@x.com", "Mon, 1 Jan 2024 10:00:00 +0000", "please send the report", time.Now()),
	), "b@x.com")

	if !result.RequiresAction {
		t.Error("RequiresAction = false, want true")
	}
	if result.Task == nil || result.Task.Title != "Send report" {
		t.Errorf("Task = %+v, want title Send report", result.Task)
	}
	if result.Category != domain.CategoryImportantInfo {
		t.Errorf("Category = %q, want %q", result.Category, domain.CategoryImportantInfo)
	}
}

func TestExtractTask_DefaultOnGenerationError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("service unavailable")}
	o := newOrchestrator(gen)

	result := o.ExtractTask(context.Background(), testThread(
		msg("m1", "a@x.com", "b@x.com", "Mon, 1 Jan 2024 10:00:00 +0000", "body", time.Now()),
	), "b@x.com")

	if result.RequiresAction {
		t.Error("degraded result must not require action")
	}
	if result.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", result.Confidence)
	}
	if result.Category != domain.CategoryNotifications {
		t.Errorf("Category = %q, want %q", result.Category, domain.CategoryNotifications)
	}
}

func TestExtractTask_SkipsWithoutEligibleMessages(t *testing.T) {
	gen := &fakeGenerator{payload: `{}`}
	o := newOrchestrator(gen)

	// Missing To header makes the only message ineligible.
	result := o.ExtractTask(context.Background(), testThread(
		domain.Message{ID: "m1", Headers: domain.Headers{From: "a@x.com", Date: "Mon, 1 Jan 2024 10:00:00 +0000"}},
	), "b@x.com")

	if gen.calls != 0 {
		t.Errorf("generator called %d times, want 0", gen.calls)
	}
	if result.Category != domain.CategoryNotifications {
		t.Errorf("Category = %q, want %q", result.Category, domain.CategoryNotifications)
	}

	if o.ExtractTask(context.Background(), nil, "b@x.com").Category != domain.CategoryNotifications {
		t.Error("nil thread must yield the default result")
	}
}

func TestExtractTask_ClampsConfidence(t *testing.T) {
	gen := &fakeGenerator{payload: `{"requires_action": false, "confidence_score": 3.5, "reason": "r"}`}
	o := newOrchestrator(gen)

	result := o.ExtractTask(context.Background(), testThread(
		msg("m1", "a@x.com", "b@x.com", "Mon, 1 Jan 2024 10:00:00 +0000", "body", time.Now()),
	), "b@x.com")
	if result.Confidence != 1 {
		t.Errorf("Confidence = %v, want clamped to 1", result.Confidence)
	}
}

func TestExtractTask_PromptInDateOrder(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	// Provider order m1, m2, m3 with dates D1, D2, D3 where D3 < D1 < D2.
	gen := &fakeGenerator{payload: `{"requires_action": false, "reason": "r"}`}
	o := newOrchestrator(gen)

	o.ExtractTask(context.Background(), testThread(
		msg("m1", "a@x.com", "b@x.com", "d1", "first sent", base),
		msg("m2", "a@x.com", "b@x.com", "d2", "second sent", base.Add(time.Hour)),
		msg("m3", "a@x.com", "b@x.com", "d3", "earliest sent", base.Add(-time.Hour)),
	), "b@x.com")

	prompt := gen.lastReq.Prompt
	i3 := strings.Index(prompt, "earliest sent")
	i1 := strings.Index(prompt, "first sent")
	i2 := strings.Index(prompt, "second sent")
	if i3 < 0 || i1 < 0 || i2 < 0 {
		t.Fatalf("prompt missing message bodies: %q", prompt)
	}
	if !(i3 < i1 && i1 < i2) {
		t.Errorf("prompt order wrong: earliest=%d first=%d second=%d", i3, i1, i2)
	}
}

func TestExtractTask_SnippetFallback(t *testing.T) {
	gen := &fakeGenerator{payload: `{"requires_action": false, "reason": "r"}`}
	o := newOrchestrator(gen)

	m := msg("m1", "a@x.com", "b@x.com", "d1", "", time.Now())
	m.Snippet = "snippet stands in"
	o.ExtractTask(context.Background(), testThread(m), "b@x.com")

	if !strings.Contains(gen.lastReq.Prompt, "snippet stands in") {
		t.Errorf("prompt should fall back to snippet, got %q", gen.lastReq.Prompt)
	}
}

func TestTruncateBody_RuneBoundary(t *testing.T) {
	// Fill up to one byte short of the cap, then append a multi-byte
	// rune straddling it. The cut must back off to the rune start.
	long := strings.Repeat("a", maxBodyChars-1) + "é"
	got := truncateBody(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncateBody() produced invalid UTF-8 tail %q", got[len(got)-4:])
	}
	if want := strings.Repeat("a", maxBodyChars-1); got != want {
		t.Errorf("truncateBody() len = %d, want %d", len(got), len(want))
	}

	short := "under the cap"
	if got := truncateBody(short); got != short {
		t.Errorf("truncateBody(%q) = %q, want unchanged", short, got)
	}
}

func TestGenerateDraft_ValidityGate(t *testing.T) {
	thread := testThread(msg("m1", "a@x.com", "b@x.com", "d1", "body", time.Now()))

	// Missing "to" discards the draft.
	o := newOrchestrator(&fakeGenerator{payload: `{"subject": "Re: s", "body": "hi"}`})
	if d := o.GenerateDraft(context.Background(), thread, "b@x.com", ""); d != nil {
		t.Errorf("draft missing to should be discarded, got %+v", d)
	}

	// Complete draft with absent cc gets an empty list.
	o = newOrchestrator(&fakeGenerator{payload: `{"subject": "Re: s", "body": "hi", "to": "a@x.com"}`})
	d := o.GenerateDraft(context.Background(), thread, "b@x.com", "Bea")
	if d == nil {
		t.Fatal("valid draft should be returned")
	}
	if d.CC == nil || len(d.CC) != 0 {
		t.Errorf("CC = %v, want empty non-nil list", d.CC)
	}
}

func TestGenerateDraft_NilOnError(t *testing.T) {
	thread := testThread(msg("m1", "a@x.com", "b@x.com", "d1", "body", time.Now()))
	o := newOrchestrator(&fakeGenerator{err: errors.New("boom")})
	if d := o.GenerateDraft(context.Background(), thread, "b@x.com", ""); d != nil {
		t.Errorf("draft on generation error should be nil, got %+v", d)
	}
}

func TestSummarize(t *testing.T) {
	o := newOrchestrator(&fakeGenerator{payload: `{"key_highlights": "  two renewals due  ", "category": "Meetings"}`})
	s, err := o.Summarize(context.Background(), "prompt", "user-1")
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if s.Highlights != "two renewals due" {
		t.Errorf("Highlights = %q", s.Highlights)
	}
	if s.Category != domain.CategoryMeetings {
		t.Errorf("Category = %q", s.Category)
	}

	// Unknown category is sanitized, not rejected.
	o = newOrchestrator(&fakeGenerator{payload: `{"key_highlights": "h", "category": "Nonsense"}`})
	s, err = o.Summarize(context.Background(), "prompt", "user-1")
	if err != nil {
		t.Fatalf("Summarize() error: %v", err)
	}
	if s.Category != domain.CategoryNotifications {
		t.Errorf("Category = %q, want %q", s.Category, domain.CategoryNotifications)
	}

	// Generation failure propagates.
	o = newOrchestrator(&fakeGenerator{err: errors.New("boom")})
	if _, err := o.Summarize(context.Background(), "prompt", "user-1"); err == nil {
		t.Error("Summarize() should propagate generation errors")
	}
}
