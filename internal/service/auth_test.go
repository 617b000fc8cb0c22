package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/msomdec/cool-todo/internal/domain"
	"github.com/msomdec/cool-todo/internal/livequery"
	"github.com/msomdec/cool-todo/internal/repository/sqlite"
	"github.com/msomdec/cool-todo/internal/service"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

// captureMailer records reset links instead of sending them.
type captureMailer struct {
	mu    sync.Mutex
	links map[string]string
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links == nil {
		m.links = make(map[string]string)
	}
	m.links[email] = link
	return nil
}

func (m *captureMailer) token(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[email]
	if !ok {
		t.Fatalf("no reset mail sent to %s", email)
	}
	return link[strings.LastIndex(link, "/")+1:]
}

type testEnv struct {
	db       *sqlite.DB
	auth     *service.AuthService
	accounts *service.AccountService
	tasks    *service.TaskStore
	mailer   *captureMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mailer := &captureMailer{}
	// Use cost 4 for fast tests.
	auth := service.NewAuthService(db.Accounts(), db.Users(), db.Sessions(), db.PasswordResets(), mailer, service.AuthOptions{
		JWTSecret:  testJWTSecret,
		BcryptCost: 4,
		BaseURL:    "http://localhost:8080/",
	})
	return &testEnv{
		db:       db,
		auth:     auth,
		accounts: service.NewAccountService(auth, db.Users()),
		tasks:    service.NewTaskStore(db.Tasks()),
		mailer:   mailer,
	}
}

func (e *testEnv) signUp(t *testing.T, email, username string) *service.SignedIn {
	t.Helper()
	signed, err := e.accounts.SignUp(context.Background(), service.SignUpInput{
		FullName: "Test User",
		Email:    email,
		Username: username,
		Password: "Secret1!",
	})
	if err != nil {
		t.Fatalf("SignUp %s: %v", email, err)
	}
	return signed
}

func TestAuthService_SignInAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.auth.CreateAccount(ctx, "login@example.com", "Secret1!"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	signed, err := env.auth.SignIn(ctx, "LOGIN@example.com", "Secret1!")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if signed.Token == "" || signed.SessionID == "" {
		t.Fatalf("expected token and session, got %+v", signed)
	}

	uid, sessionID, err := env.auth.ValidateToken(signed.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if uid != signed.UID || sessionID != signed.SessionID {
		t.Fatalf("claims mismatch: uid=%s session=%s", uid, sessionID)
	}

	session, err := env.auth.Authenticate(ctx, signed.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if session.UID != signed.UID {
		t.Fatalf("expected uid %s, got %s", signed.UID, session.UID)
	}
}

func TestAuthService_SignInWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.auth.CreateAccount(ctx, "wrong@example.com", "Secret1!"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	if _, err := env.auth.SignIn(ctx, "wrong@example.com", "Nope1!"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := env.auth.SignIn(ctx, "nobody@example.com", "Secret1!"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown email, got %v", err)
	}
}

func TestAuthService_CreateAccountDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.auth.CreateAccount(ctx, "dup@example.com", "Secret1!"); err != nil {
		t.Fatalf("first CreateAccount: %v", err)
	}
	if _, err := env.auth.CreateAccount(ctx, "Dup@Example.com", "Secret1!"); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthService_ValidateTokenRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, _, err := env.auth.ValidateToken(token); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("token %q: expected ErrUnauthorized, got %v", token, err)
		}
	}
}

func TestAuthService_ValidateTokenRejectsOtherSecret(t *testing.T) {
	env := newTestEnv(t)
	signed := env.signUp(t, "secret@example.com", "")

	other := service.NewAuthService(env.db.Accounts(), env.db.Users(), env.db.Sessions(), env.db.PasswordResets(), env.mailer, service.AuthOptions{
		JWTSecret:  "a-completely-different-secret-value-xyz",
		BcryptCost: 4,
	})
	if _, _, err := other.ValidateToken(signed.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthService_SignOutRevokesAndNotifiesWatchers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signed := env.signUp(t, "watch@example.com", "watcher")

	sub, err := env.auth.Watch(ctx, signed.SessionID, signed.UID)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer sub.Cancel()

	select {
	case user := <-sub.C():
		if user == nil || user.Username != "watcher" {
			t.Fatalf("expected current user first, got %+v", user)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for current user")
	}

	if err := env.auth.SignOut(ctx, signed.SessionID); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	select {
	case user := <-sub.C():
		if user != nil {
			t.Fatalf("expected nil after sign-out, got %+v", user)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sign-out signal")
	}

	if _, err := env.auth.Authenticate(ctx, signed.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}

	// Signing out twice is harmless.
	if err := env.auth.SignOut(ctx, signed.SessionID); err != nil {
		t.Fatalf("second SignOut: %v", err)
	}
}

func TestAuthService_PasswordReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.signUp(t, "reset@example.com", "")

	if err := env.auth.SendPasswordReset(ctx, "reset@example.com"); err != nil {
		t.Fatalf("SendPasswordReset: %v", err)
	}
	token := env.mailer.token(t, "reset@example.com")

	if err := env.auth.CheckResetToken(ctx, token); err != nil {
		t.Fatalf("CheckResetToken: %v", err)
	}
	if err := env.auth.ResetPassword(ctx, token, "Changed2@"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	if _, err := env.auth.SignIn(ctx, "reset@example.com", "Secret1!"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("old password should fail, got %v", err)
	}
	if _, err := env.auth.SignIn(ctx, "reset@example.com", "Changed2@"); err != nil {
		t.Fatalf("new password should work: %v", err)
	}

	if err := env.auth.ResetPassword(ctx, token, "Again3#x"); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired on reuse, got %v", err)
	}
	if err := env.auth.ResetPassword(ctx, "unknown-token", "Again3#x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown token, got %v", err)
	}
}

func TestAuthService_PasswordResetUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)

	if err := env.auth.SendPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if len(env.mailer.links) != 0 {
		t.Fatalf("expected no mail, got %v", env.mailer.links)
	}
}

// pausingUsers holds the first GetByUID after its read until release closes.
type pausingUsers struct {
	domain.UserRepository
	once    sync.Once
	paused  chan struct{}
	release chan struct{}
}

func (p *pausingUsers) GetByUID(ctx context.Context, uid string) (*domain.User, error) {
	user, err := p.UserRepository.GetByUID(ctx, uid)
	p.once.Do(func() {
		close(p.paused)
		<-p.release
	})
	return user, err
}

func TestAuthService_WatchSeesSignOutDuringLoad(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	signed := env.signUp(t, "late@example.com", "late_watcher")

	users := &pausingUsers{
		UserRepository: env.db.Users(),
		paused:         make(chan struct{}),
		release:        make(chan struct{}),
	}
	auth := service.NewAuthService(env.db.Accounts(), users, env.db.Sessions(), env.db.PasswordResets(), env.mailer, service.AuthOptions{
		JWTSecret:  testJWTSecret,
		BcryptCost: 4,
	})

	type result struct {
		sub *livequery.Subscription[*domain.User]
		err error
	}
	done := make(chan result, 1)
	go func() {
		sub, err := auth.Watch(ctx, signed.SessionID, signed.UID)
		done <- result{sub, err}
	}()

	<-users.paused
	if err := env.db.Sessions().Revoke(ctx, signed.SessionID, time.Now().UTC()); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	close(users.release)

	res := <-done
	if res.err != nil {
		t.Fatalf("Watch: %v", res.err)
	}
	defer res.sub.Cancel()

	select {
	case user := <-res.sub.C():
		if user != nil {
			t.Fatalf("expected nil for a revoked session, got %+v", user)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first value")
	}
}
