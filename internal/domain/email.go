package domain

import (
	"sort"
	"strings"
	"time"
)

// Address is a parsed RFC 5322 mailbox. Name keeps the display part;
// Email is the bare address.
type Address struct {
	Name  string
	Email string
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

// Normalize reduces an address to its canonical form for deduplication:
// the bare email, lower-cased and trimmed.
func (a Address) Normalize() string {
	return strings.ToLower(strings.TrimSpace(a.Email))
}

// Headers holds the raw header values the pipeline cares about. Absent
// headers are empty strings, never missing keys.
type Headers struct {
	Subject string
	From    string
	To      string
	Date    string
}

// Message is a single normalized email message. Body is the cleaned
// plain-text resolution of the content tree; BodyHTML is the best-effort
// HTML kept for display.
type Message struct {
	ID       string
	ThreadID string
	Snippet  string
	Labels   []string
	Headers  Headers
	From     Address
	To       []Address
	Date     time.Time
	Body     string
	BodyHTML string
}

func (m *Message) HasLabel(label string) bool {
	for _, l := range m.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Thread is an immutable snapshot of a provider-side conversation.
// Messages are kept sorted ascending by header date; extraction depends
// on conversational order regardless of provider return order.
type Thread struct {
	ID       string
	Subject  string
	Messages []Message
}

// SortMessagesByDate orders the thread's messages ascending by date.
// The sort is stable so same-timestamp messages keep provider order.
func (t *Thread) SortMessagesByDate() {
	sort.SliceStable(t.Messages, func(i, j int) bool {
		return t.Messages[i].Date.Before(t.Messages[j].Date)
	})
}
