package domain

import (
	"context"
	"strings"
	"time"
)

// Account is the identity record owned by the identity provider.
// The password hash never leaves the provider.
type Account struct {
	UID          string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByUID(ctx context.Context, uid string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	UpdatePassword(ctx context.Context, uid, passwordHash string) error
	// Delete removes the account along with its sessions and reset grants.
	Delete(ctx context.Context, uid string) error
}

// User is the profile document stored in the users collection, keyed by
// the account UID.
type User struct {
	UID       string
	Email     string
	Username  string // lowercase; empty when never set
	FullName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns the name shown in greetings.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return "GUEST"
	case u.FullName != "":
		return u.FullName
	case u.Username != "":
		return u.Username
	}
	if name, _, ok := strings.Cut(u.Email, "@"); ok && name != "" {
		return name
	}
	return "GUEST"
}

// ProfilePatch carries the profile fields editable from the profile page.
type ProfilePatch struct {
	FullName string
	Email    string
}

// UserRepository defines persistence operations for profile documents.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByUID(ctx context.Context, uid string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, uid string, patch ProfilePatch) error
}
