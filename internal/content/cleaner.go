package content

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultFooterPatterns are the footer-introducing phrases stripped from
// plain-text bodies, tried in order. Everything from a pattern's first
// occurrence to the end of text is removed.
var DefaultFooterPatterns = []string{
	"unsubscribe",
	"view in browser",
	"view this email in your browser",
	"this email was sent to",
	"you are receiving this email",
	"you received this email because",
	"email preferences",
	"update your preferences",
	"manage your subscription",
	"all rights reserved",
	"©",
	"(c) 20",
}

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	urlPattern     = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
	htmlTag        = regexp.MustCompile(`(?s)<[^>]*>`)
	htmlBlock      = regexp.MustCompile(`(?is)<(style|script|head)\b.*?</(style|script|head)>`)
	htmlBreak      = regexp.MustCompile(`(?i)<(br\s*/?|/p|/div|/tr|/li|/h[1-6])>`)
)

// Cleaner normalizes decoded message text for prompt construction. The
// footer pattern list is injected so alternate taxonomies are testable;
// nil falls back to DefaultFooterPatterns.
type Cleaner struct {
	footers []footerPattern
	log     zerolog.Logger
}

// footerPattern pairs the literal phrase with its case-insensitive
// matcher. Matching on the original text keeps byte offsets valid even
// when case folding changes a rune's encoded length.
type footerPattern struct {
	phrase string
	re     *regexp.Regexp
}

func NewCleaner(footers []string, log zerolog.Logger) *Cleaner {
	if footers == nil {
		footers = DefaultFooterPatterns
	}
	compiled := make([]footerPattern, len(footers))
	for i, phrase := range footers {
		compiled[i] = footerPattern{
			phrase: phrase,
			re:     regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase)),
		}
	}
	return &Cleaner{footers: compiled, log: log}
}

// CleanText runs the plain-text pipeline: newline normalization, blank
// line collapsing, whitespace stripping, URL shortening, and footer
// removal. Cleaning is best effort; on any panic the original text is
// returned unchanged.
func (c *Cleaner) CleanText(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Debug().Interface("panic", r).Msg("text cleaning failed, returning original")
			out = text
		}
	}()

	s := normalizeNewlines(text)
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	s = stripLineTrailingSpace(s)
	s = strings.TrimLeft(s, " \t\n")
	s = shortenURLs(s)
	s = c.stripFooters(s)
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CleanHTML reduces an HTML body to plain text and then runs the
// plain-text pipeline over it. Fails closed like CleanText.
func (c *Cleaner) CleanHTML(markup string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Debug().Interface("panic", r).Msg("html cleaning failed, returning original")
			out = markup
		}
	}()

	s := htmlBlock.ReplaceAllString(markup, "")
	s = htmlBreak.ReplaceAllString(s, "\n")
	s = htmlTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return c.CleanText(s)
}

// stripFooters removes newsletter boilerplate. Patterns are applied in
// order against the progressively truncated text, so once one fires the
// rest only ever shorten further, and a second pass is a no-op.
func (c *Cleaner) stripFooters(text string) string {
	for _, pattern := range c.footers {
		loc := pattern.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		c.log.Debug().Str("pattern", pattern.phrase).Int("offset", loc[0]).Msg("footer pattern matched")
		text = text[:loc[0]]
	}
	return text
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func stripLineTrailingSpace(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// shortenURLs reduces every URL to scheme://host/... to cut prompt-token
// cost downstream. Unparseable URLs are left as is.
func shortenURLs(s string) string {
	return urlPattern.ReplaceAllStringFunc(s, func(raw string) string {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return raw
		}
		return u.Scheme + "://" + u.Host + "/..."
	})
}
