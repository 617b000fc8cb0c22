package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/msomdec/cool-todo/internal/domain"
)

func TestAccountRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := db.Accounts()
	ctx := context.Background()

	account := &domain.Account{UID: "u1", Email: "Ada@Example.com", PasswordHash: "hashedpw"}
	if err := repo.Create(ctx, account); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if account.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}

	got, err := repo.GetByEmail(ctx, "ada@example.COM")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.UID != "u1" || got.Email != "ada@example.com" {
		t.Fatalf("unexpected account: %+v", got)
	}

	if _, err := repo.GetByUID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepository_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	repo := db.Accounts()
	ctx := context.Background()

	if err := repo.Create(ctx, &domain.Account{UID: "u1", Email: "dup@example.com", PasswordHash: "h"}); err != nil {
		t.Fatalf("Create u1: %v", err)
	}
	err := repo.Create(ctx, &domain.Account{UID: "u2", Email: "DUP@example.com", PasswordHash: "h"})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAccountRepository_UpdatePassword(t *testing.T) {
	db := newTestDB(t)
	repo := db.Accounts()
	ctx := context.Background()

	seedAccount(t, db, "u1", "a@example.com", "")

	if err := repo.UpdatePassword(ctx, "u1", "newhash"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	got, err := repo.GetByUID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByUID: %v", err)
	}
	if got.PasswordHash != "newhash" {
		t.Fatalf("expected new hash, got %q", got.PasswordHash)
	}

	if err := repo.UpdatePassword(ctx, "ghost", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_UsernameLookupIsCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedAccount(t, db, "u1", "a@example.com", "Ada_L")

	got, err := db.Users().GetByUsername(ctx, "ADA_l")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.UID != "u1" || got.Username != "ada_l" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestUserRepository_UsernameTaken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seedAccount(t, db, "u1", "a@example.com", "ada")
	if err := db.Accounts().Create(ctx, &domain.Account{UID: "u2", Email: "b@example.com", PasswordHash: "h"}); err != nil {
		t.Fatalf("create account: %v", err)
	}

	err := db.Users().Create(ctx, &domain.User{UID: "u2", Email: "b@example.com", Username: "ADA"})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestUserRepository_EmptyUsernamesDoNotCollide(t *testing.T) {
	db := newTestDB(t)

	seedAccount(t, db, "u1", "a@example.com", "")
	seedAccount(t, db, "u2", "b@example.com", "")

	got, err := db.Users().GetByUID(context.Background(), "u2")
	if err != nil {
		t.Fatalf("GetByUID: %v", err)
	}
	if got.Username != "" {
		t.Fatalf("expected empty username, got %q", got.Username)
	}
}

func TestUserRepository_Update(t *testing.T) {
	db := newTestDB(t)
	repo := db.Users()
	ctx := context.Background()

	seedAccount(t, db, "u1", "a@example.com", "ada")

	if err := repo.Update(ctx, "u1", domain.ProfilePatch{FullName: "Ada Lovelace", Email: "ada@example.com"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.GetByUID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByUID: %v", err)
	}
	if got.FullName != "Ada Lovelace" || got.Email != "ada@example.com" {
		t.Fatalf("unexpected user after update: %+v", got)
	}

	if err := repo.Update(ctx, "ghost", domain.ProfilePatch{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountRepo_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	seedAccount(t, db, "uid-del", "del@example.com", "deleted")

	if err := db.Accounts().Delete(ctx, "uid-del"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Users().GetByUID(ctx, "uid-del"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected profile to be removed, got %v", err)
	}
	if err := db.Accounts().Delete(ctx, "uid-del"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
