package genai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func chatReply(content string) string {
	return `{"choices":[{"message":{"content":` + jsonString(content) + `}}]}`
}

func jsonString(s string) string {
	out := `"`
	for _, r := range s {
		switch r {
		case '"':
			out += `\"`
		case '\\':
			out += `\\`
		case '\n':
			out += `\n`
		default:
			out += string(r)
		}
	}
	return out + `"`
}

func newTestClient(url string) *Client {
	return NewClient(ClientConfig{BaseURL: url, APIKey: "test"}, zerolog.Nop())
}

func TestGenerate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, chatReply(`{"requires_action": true}`))
	}))
	defer srv.Close()

	raw, err := newTestClient(srv.URL).Generate(context.Background(), Request{
		Prompt: "p", Kind: WorkflowTaskExtraction,
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if string(raw) != `{"requires_action": true}` {
		t.Errorf("Generate() = %s", raw)
	}
}

func TestGenerate_RetriesServerFaults(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, chatReply(`{"ok": true}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Generate(context.Background(), Request{
		Prompt: "p", Kind: WorkflowSummarization, MaxRetries: 3,
	}); err != nil {
		t.Fatalf("Generate() error after retries: %v", err)
	}
	if calls != 3 {
		t.Errorf("got %d calls, want 3", calls)
	}
}

func TestGenerate_NoRetryOnClientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Generate(context.Background(), Request{
		Prompt: "p", Kind: WorkflowDraftGeneration, MaxRetries: 5,
	}); err == nil {
		t.Fatal("Generate() should fail on 400")
	}
	if calls != 1 {
		t.Errorf("got %d calls, want 1 (client errors must not retry)", calls)
	}
}

func TestGenerate_RetryBudgetExhausted(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Generate(context.Background(), Request{
		Prompt: "p", Kind: WorkflowTaskExtraction, MaxRetries: 2,
	}); err == nil {
		t.Fatal("Generate() should fail once the retry budget is exhausted")
	}
	if calls != 3 {
		t.Errorf("got %d calls, want 3 (initial + 2 retries)", calls)
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "clean object",
			input: `{"a": 1}`,
			want:  `{"a": 1}`,
		},
		{
			name:  "code fence",
			input: "```json\n{\"a\": 1}\n```",
			want:  `{"a": 1}`,
		},
		{
			name:  "prose around object",
			input: `Here is the result: {"a": 1} as requested.`,
			want:  `{"a": 1}`,
		},
		{
			name:    "no object",
			input:   "I could not produce a result.",
			wantErr: true,
		},
		{
			name:    "malformed object",
			input:   `{"a": }`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RepairJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("RepairJSON(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("RepairJSON(%q) error: %v", tt.input, err)
			}
			if string(got) != tt.want {
				t.Errorf("RepairJSON(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}
