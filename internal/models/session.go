package models

import (
	"time"
)

// Session is the authenticated user's current session as seen by this client.
// Groups is read from the access token's group claim and never modified.
type Session struct {
	AccessToken string
	Username    string
	Subject     string
	Groups      []string
	ExpiresAt   time.Time
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}
