package gmail

import (
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/lu-zhengda/mailboard/internal/domain"
	"github.com/lu-zhengda/mailboard/internal/provider"
)

// mapMessage converts a Gmail API Message to the provider's raw shape.
// Header values are carried verbatim; the content tree is mapped node for
// node so resolution can run without the Gmail SDK types.
func mapMessage(msg *gmailapi.Message) *provider.RawMessage {
	raw := &provider.RawMessage{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
		Labels:   msg.LabelIds,
		Headers:  map[string]string{},
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			key := strings.ToLower(h.Name)
			if _, seen := raw.Headers[key]; !seen {
				raw.Headers[key] = h.Value
			}
		}
		raw.Content = mapPart(msg.Payload)
	}
	return raw
}

// mapPart recursively converts a MessagePart into a domain.ContentPart.
func mapPart(part *gmailapi.MessagePart) *domain.ContentPart {
	if part == nil {
		return nil
	}
	node := &domain.ContentPart{
		MimeType: part.MimeType,
		Filename: part.Filename,
	}
	if part.Body != nil {
		node.Data = part.Body.Data
	}
	for _, child := range part.Parts {
		if mapped := mapPart(child); mapped != nil {
			node.Parts = append(node.Parts, *mapped)
		}
	}
	return node
}
