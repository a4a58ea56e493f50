package domain

import "time"

// Account is a connected mailbox. Connected flips to false exactly once
// when watch renewal hits a terminal credential failure.
type Account struct {
	ID        string
	Email     string
	Provider  string
	Connected bool
	CreatedAt time.Time
}

// Subscription is the push-notification watch state for one account:
// a rolling history cursor plus the provider-side expiration.
type Subscription struct {
	AccountID  string
	HistoryID  uint64
	Expiration time.Time
}

// ExpiresWithin reports whether the watch needs proactive renewal.
func (s *Subscription) ExpiresWithin(d time.Duration) bool {
	return time.Until(s.Expiration) <= d
}
