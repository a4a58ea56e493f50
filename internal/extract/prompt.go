package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/lu-zhengda/mailboard/internal/domain"
)

// maxBodyChars bounds the per-message body contribution to a prompt so
// one verbose message cannot crowd out the rest of the thread.
const maxBodyChars = 8000

// serializeMessages renders messages in conversational order for a
// prompt. Callers must pass messages already sorted ascending by date.
// A message with an empty resolved body falls back to its snippet.
func serializeMessages(msgs []domain.Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		b.WriteString("From: ")
		b.WriteString(m.Headers.From)
		b.WriteString("\nTo: ")
		b.WriteString(m.Headers.To)
		b.WriteString("\nDate: ")
		b.WriteString(m.Headers.Date)
		b.WriteString("\nSubject: ")
		b.WriteString(m.Headers.Subject)
		b.WriteString("\n\n")

		body := m.Body
		if body == "" {
			body = m.Snippet
		}
		b.WriteString(truncateBody(body))
	}
	return b.String()
}

// truncateBody caps body at maxBodyChars bytes, backing the cut off to
// a rune boundary so the prompt never carries a split UTF-8 sequence.
func truncateBody(body string) string {
	if len(body) <= maxBodyChars {
		return body
	}
	cut := maxBodyChars
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}

func buildTaskPrompt(msgs []domain.Message, recipient string) string {
	var b strings.Builder
	b.WriteString("The recipient is ")
	b.WriteString(recipient)
	b.WriteString(". Analyze the following email thread and decide whether it requires action from them.\n\n")
	b.WriteString(serializeMessages(msgs))
	return b.String()
}

func buildDraftPrompt(msgs []domain.Message, recipient, senderName string) string {
	var b strings.Builder
	b.WriteString("Draft a reply to the following email thread on behalf of ")
	b.WriteString(recipient)
	if senderName != "" {
		b.WriteString(" (sign as ")
		b.WriteString(senderName)
		b.WriteString(")")
	}
	b.WriteString(". The reply should address the most recent message.\n\n")
	b.WriteString(serializeMessages(msgs))
	return b.String()
}
