package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/msomdec/cool-todo/internal/domain"
	"github.com/msomdec/cool-todo/internal/service"
)

func TestAccountService_SignUpCreatesProfile(t *testing.T) {
	env := newTestEnv(t)
	signed := env.signUp(t, "new@example.com", "New_User")

	user, err := env.accounts.Profile(context.Background(), signed.UID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if user.Username != "new_user" || user.FullName != "Test User" || user.Email != "new@example.com" {
		t.Fatalf("unexpected profile: %+v", user)
	}
}

func TestAccountService_SignUpUsernameTakenCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signUp(t, "first@example.com", "alice")

	_, err := env.accounts.SignUp(ctx, service.SignUpInput{
		FullName: "Second",
		Email:    "second@example.com",
		Username: "ALICE",
		Password: "Secret1!",
	})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	// No account was created for the rejected sign-up.
	if _, err := env.db.Accounts().GetByEmail(ctx, "second@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected no account, got %v", err)
	}
}

func TestAccountService_SignInByUsernameOrEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signUp(t, "bob@example.com", "bob")

	if _, err := env.accounts.SignIn(ctx, "BoB", "Secret1!"); err != nil {
		t.Fatalf("SignIn by username: %v", err)
	}
	if _, err := env.accounts.SignIn(ctx, "bob@example.com", "Secret1!"); err != nil {
		t.Fatalf("SignIn by email: %v", err)
	}
	if _, err := env.accounts.SignIn(ctx, "bob", "Wrong1!x"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAccountService_SignInUnknownUsername(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.SignIn(context.Background(), "nobody", "whatever")
	if !errors.Is(err, domain.ErrUsernameNotFound) {
		t.Fatalf("expected ErrUsernameNotFound, got %v", err)
	}
}

func TestAccountService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signed := env.signUp(t, "carol@example.com", "carol")

	user, err := env.accounts.UpdateProfile(ctx, signed.UID, domain.ProfilePatch{FullName: " Carol C ", Email: "carol@work.example"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if user.FullName != "Carol C" || user.Email != "carol@work.example" {
		t.Fatalf("unexpected profile: %+v", user)
	}

	// The sign-in email stays on the account.
	if _, err := env.accounts.SignIn(ctx, "carol@example.com", "Secret1!"); err != nil {
		t.Fatalf("SignIn with original email: %v", err)
	}

	if _, err := env.accounts.UpdateProfile(ctx, signed.UID, domain.ProfilePatch{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// racedUsers loses every username race: GetByUsername finds nothing but
// Create hits the unique index.
type racedUsers struct {
	domain.UserRepository
}

func (racedUsers) Create(context.Context, *domain.User) error {
	return domain.ErrUsernameTaken
}

func TestAccountService_SignUpRaceLeavesNoAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	raced := service.NewAccountService(env.auth, racedUsers{env.db.Users()})

	_, err := raced.SignUp(ctx, service.SignUpInput{
		FullName: "Late Comer",
		Email:    "late@example.com",
		Username: "late",
		Password: "Secret1!",
	})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	if _, err := env.db.Accounts().GetByEmail(ctx, "late@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected account to be rolled back, got %v", err)
	}

	// The email is free for a later sign-up.
	env.signUp(t, "late@example.com", "late_again")
}
