package models

import "time"

// Session binds a browser to a user until it expires or is logged out
type Session struct {
	ID        string
	UserID    int64
	Remember  bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
