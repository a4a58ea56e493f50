package fetch

import (
	"net/mail"
	"strings"
	"time"

	"github.com/lu-zhengda/mailboard/internal/domain"
)

// parseAddress parses an RFC 5322 address string into a domain Address.
// Falls back to treating the entire string as a bare email if parsing fails.
func parseAddress(s string) domain.Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Address{}
	}

	addr, err := mail.ParseAddress(s)
	if err != nil {
		// Fallback: treat as bare email
		return domain.Address{Email: s}
	}
	return domain.Address{
		Name:  addr.Name,
		Email: addr.Address,
	}
}

// parseAddressList parses a comma-separated list of RFC 5322 addresses.
func parseAddressList(s string) []domain.Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parsed, err := mail.ParseAddressList(s)
	if err != nil {
		// Fallback: split by comma and parse individually
		parts := strings.Split(s, ",")
		var addrs []domain.Address
		for _, p := range parts {
			if a := parseAddress(p); a.Email != "" {
				addrs = append(addrs, a)
			}
		}
		return addrs
	}

	addrs := make([]domain.Address, 0, len(parsed))
	for _, a := range parsed {
		addrs = append(addrs, domain.Address{
			Name:  a.Name,
			Email: a.Address,
		})
	}
	return addrs
}

// parseDate tries multiple date formats commonly used in email headers.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	formats := []string{
		time.RFC1123Z,                           // "Mon, 02 Jan 2006 15:04:05 -0700"
		time.RFC1123,                            // "Mon, 02 Jan 2006 15:04:05 MST"
		time.RFC822Z,                            // "02 Jan 06 15:04 -0700"
		time.RFC822,                             // "02 Jan 06 15:04 MST"
		"Mon, 2 Jan 2006 15:04:05 -0700",        // single-digit day
		"Mon, 2 Jan 2006 15:04:05 MST",          // single-digit day with named zone
		"2 Jan 2006 15:04:05 -0700",             // no weekday
		"2006-01-02T15:04:05Z07:00",             // ISO 8601
		"Mon, 02 Jan 2006 15:04:05 -0700 (MST)", // with parenthesized zone
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
