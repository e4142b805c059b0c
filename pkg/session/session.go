package session

import (
	"maps"
	"time"
)

// Session is the persisted state behind a session cookie.
type Session struct {
	ID             string         `json:"id"`
	Data           map[string]any `json:"data,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
}

func newSession(id string, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:             id,
		Data:           make(map[string]any),
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
	}
}

// IsExpiredAt reports whether the session expired as of now.
func (s *Session) IsExpiredAt(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// TTL returns the time left until expiry as of now.
func (s *Session) TTL(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// clone returns a deep copy of the top-level data map.
func (s *Session) clone() *Session {
	cp := *s
	cp.Data = make(map[string]any, len(s.Data))
	maps.Copy(cp.Data, s.Data)
	return &cp
}
