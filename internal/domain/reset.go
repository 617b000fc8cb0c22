package domain

import (
	"context"
	"time"
)

// PasswordReset is a single-use password reset grant. Only the SHA-256 of
// the emailed token is stored.
type PasswordReset struct {
	TokenHash string
	UID       string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

type PasswordResetRepository interface {
	Create(ctx context.Context, reset *PasswordReset) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*PasswordReset, error)
	MarkUsed(ctx context.Context, tokenHash string, at time.Time) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
