package model

import "time"

// Session is the server-side half of a login. The browser only holds a
// signed token naming the session ID; deleting the row logs the user out.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
