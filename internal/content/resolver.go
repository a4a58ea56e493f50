package content

import (
	"encoding/base64"
	"html"

	"github.com/rs/zerolog"

	"github.com/lu-zhengda/mailboard/internal/domain"
)

const (
	// Plain-text bodies longer than this are assumed to be substantive
	// content rather than a stub alternative, and win over HTML.
	plainTextPreferenceLength = 1500

	// Recursion guard against pathological or adversarial nesting.
	maxTreeDepth = 32

	mimeTextPlain = "text/plain"
	mimeTextHTML  = "text/html"
)

// Resolver walks a message's content tree and produces the best textual
// representation of the body. It is stateless per invocation; the only
// side effect is debug logging of the selection branch taken.
type Resolver struct {
	cleaner *Cleaner
	log     zerolog.Logger
}

func NewResolver(cleaner *Cleaner, log zerolog.Logger) *Resolver {
	return &Resolver{cleaner: cleaner, log: log}
}

// candidates accumulates the representations found during a tree walk:
// the first text/plain payload and the longest text/html payload.
type candidates struct {
	plain string
	html  string
}

// Resolve produces the cleaned plain-text body used for extraction. A
// tree with no payload anywhere resolves to "" without error.
func (r *Resolver) Resolve(part *domain.ContentPart) string {
	if part == nil {
		return ""
	}

	// A bare leaf carries its payload directly.
	if part.IsLeaf() {
		data := decodeBase64URL(part.Data)
		if data == "" {
			return ""
		}
		if part.MimeType == mimeTextHTML {
			return r.cleaner.CleanHTML(data)
		}
		return r.cleaner.CleanText(data)
	}

	var c candidates
	r.collect(part, 0, &c)

	switch {
	case c.plain != "" && len(c.plain) > plainTextPreferenceLength:
		// Long plain text is the substantive content, not a stub.
		r.log.Debug().Int("len", len(c.plain)).Msg("content: selected long text/plain")
		return r.cleaner.CleanText(c.plain)
	case c.html != "":
		r.log.Debug().Int("len", len(c.html)).Msg("content: selected text/html")
		return r.cleaner.CleanHTML(c.html)
	case c.plain != "":
		r.log.Debug().Int("len", len(c.plain)).Msg("content: selected short text/plain")
		return r.cleaner.CleanText(c.plain)
	default:
		r.log.Debug().Msg("content: no textual part found")
		return ""
	}
}

// collect records the first text/plain payload and the longest text/html
// payload reachable from part, recursing into nested multiparts up to
// the depth bound.
func (r *Resolver) collect(part *domain.ContentPart, depth int, c *candidates) {
	if part == nil || depth > maxTreeDepth {
		return
	}
	for i := range part.Parts {
		child := &part.Parts[i]
		if child.IsLeaf() {
			data := decodeBase64URL(child.Data)
			if data == "" {
				continue
			}
			switch child.MimeType {
			case mimeTextPlain:
				if c.plain == "" {
					c.plain = data
				}
			case mimeTextHTML:
				if len(data) > len(c.html) {
					c.html = data
				}
			}
			continue
		}
		r.collect(child, depth+1, c)
	}
}

// ResolveHTML produces a best-effort HTML body for display: any
// text/html part wins; plain text is wrapped so line breaks survive
// rendering; otherwise "".
func (r *Resolver) ResolveHTML(part *domain.ContentPart) string {
	if part == nil {
		return ""
	}
	if markup := firstPayload(part, mimeTextHTML, 0); markup != "" {
		return markup
	}
	if text := firstPayload(part, mimeTextPlain, 0); text != "" {
		return `<div style="white-space: pre-wrap">` + html.EscapeString(text) + `</div>`
	}
	return ""
}

// firstPayload returns the first decoded payload of the given mime type
// in depth-first order.
func firstPayload(part *domain.ContentPart, mimeType string, depth int) string {
	if part == nil || depth > maxTreeDepth {
		return ""
	}
	if part.IsLeaf() {
		if part.MimeType == mimeType {
			return decodeBase64URL(part.Data)
		}
		return ""
	}
	for i := range part.Parts {
		if data := firstPayload(&part.Parts[i], mimeType, depth+1); data != "" {
			return data
		}
	}
	return ""
}

// decodeBase64URL decodes Gmail's URL-safe base64 encoding (no padding).
func decodeBase64URL(s string) string {
	if s == "" {
		return ""
	}
	data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s)
	if err != nil {
		return ""
	}
	return string(data)
}
