package domain

import (
	"context"
	"time"
)

// AuthSession is one signed-in browser session. Its ID is carried in the
// JWT so that signing out can revoke the token before it expires.
type AuthSession struct {
	ID        string
	UID       string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Live reports whether the session can still authenticate requests at now.
func (s *AuthSession) Live(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

type AuthSessionRepository interface {
	Create(ctx context.Context, session *AuthSession) error
	GetByID(ctx context.Context, id string) (*AuthSession, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	// DeleteExpired removes sessions that expired or were revoked before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
