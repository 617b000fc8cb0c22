package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/msomdec/cool-todo/internal/domain"
)

// SignUpInput carries the fields of the sign-up form.
type SignUpInput struct {
	FullName string
	Email    string
	Username string
	Password string
}

// AccountService runs the account flows that span the identity provider and
// the users collection.
type AccountService struct {
	auth  *AuthService
	users domain.UserRepository
}

// NewAccountService creates a new AccountService.
func NewAccountService(auth *AuthService, users domain.UserRepository) *AccountService {
	return &AccountService{auth: auth, users: users}
}

// SignUp checks that the username is free, creates the account, then the
// profile document keyed by the account UID, and signs the new user in.
// The username check happens before any account exists; a concurrent
// sign-up racing past it is caught by the unique index and its account is
// deleted again.
func (s *AccountService) SignUp(ctx context.Context, in SignUpInput) (*SignedIn, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if username != "" {
		_, err := s.users.GetByUsername(ctx, username)
		switch {
		case err == nil:
			return nil, domain.ErrUsernameTaken
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("check username: %w", err)
		}
	}

	account, err := s.auth.CreateAccount(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		UID:      account.UID,
		Email:    account.Email,
		Username: username,
		FullName: strings.TrimSpace(in.FullName),
	}
	if err := s.users.Create(ctx, user); err != nil {
		// The account must not outlive a failed sign-up.
		if derr := s.auth.accounts.Delete(context.WithoutCancel(ctx), account.UID); derr != nil {
			slog.Error("roll back account", "uid", account.UID, "error", derr)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return s.auth.SignIn(ctx, account.Email, in.Password)
}

// SignIn accepts an email or a username. Anything containing "@" is used as
// the email; otherwise the username is resolved to its profile's email
// first, failing with ErrUsernameNotFound before any password check.
func (s *AccountService) SignIn(ctx context.Context, identifier, password string) (*SignedIn, error) {
	identifier = strings.TrimSpace(identifier)
	email := identifier
	if !strings.Contains(identifier, "@") {
		user, err := s.users.GetByUsername(ctx, identifier)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, domain.ErrUsernameNotFound
			}
			return nil, fmt.Errorf("resolve username: %w", err)
		}

		account, err := s.auth.accounts.GetByUID(ctx, user.UID)
		if err != nil {
			return nil, fmt.Errorf("get account: %w", err)
		}
		email = account.Email
	}
	return s.auth.SignIn(ctx, email, password)
}

// Profile returns the profile document of uid.
func (s *AccountService) Profile(ctx context.Context, uid string) (*domain.User, error) {
	return s.users.GetByUID(ctx, uid)
}

// UpdateProfile replaces the full name and email on the profile document.
// The sign-in email of the account is not changed.
func (s *AccountService) UpdateProfile(ctx context.Context, uid string, patch domain.ProfilePatch) (*domain.User, error) {
	patch.FullName = strings.TrimSpace(patch.FullName)
	patch.Email = strings.TrimSpace(patch.Email)
	if patch.FullName == "" || patch.Email == "" {
		return nil, fmt.Errorf("%w: full name and email are required", domain.ErrInvalidInput)
	}

	if err := s.users.Update(ctx, uid, patch); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.users.GetByUID(ctx, uid)
}
