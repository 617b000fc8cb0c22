package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/msomdec/cool-todo/internal/domain"
	"github.com/msomdec/cool-todo/internal/livequery"
	"golang.org/x/crypto/bcrypt"
)

// AuthOptions configures token lifetimes and hashing for AuthService.
type AuthOptions struct {
	JWTSecret     string
	BcryptCost    int
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	// BaseURL prefixes the reset link sent by the mailer.
	BaseURL string
}

// AuthService is the identity provider: it owns accounts, credentials,
// signed-in sessions and password resets.
type AuthService struct {
	accounts   domain.AccountRepository
	users      domain.UserRepository
	sessions   domain.AuthSessionRepository
	resets     domain.PasswordResetRepository
	mailer     Mailer
	identity   *livequery.Hub[string, *domain.User]
	// identityMu orders Watch's first delivery against SignOut's publish.
	identityMu sync.Mutex

	jwtSecret     []byte
	bcryptCost    int
	sessionTTL    time.Duration
	resetTokenTTL time.Duration
	baseURL       string
	now           func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	accounts domain.AccountRepository,
	users domain.UserRepository,
	sessions domain.AuthSessionRepository,
	resets domain.PasswordResetRepository,
	mailer Mailer,
	opts AuthOptions,
) *AuthService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = time.Hour
	}
	return &AuthService{
		accounts:      accounts,
		users:         users,
		sessions:      sessions,
		resets:        resets,
		mailer:        mailer,
		identity:      livequery.NewHub[string, *domain.User](),
		jwtSecret:     []byte(opts.JWTSecret),
		bcryptCost:    opts.BcryptCost,
		sessionTTL:    opts.SessionTTL,
		resetTokenTTL: opts.ResetTokenTTL,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		now:           time.Now,
	}
}

// Claims is the JWT payload stored in the auth cookie. ID carries the
// session row so that sign-out can revoke a token before it expires.
type Claims struct {
	jwt.RegisteredClaims
}

// SignedIn is the result of a successful sign-in.
type SignedIn struct {
	Token     string
	SessionID string
	UID       string
	ExpiresAt time.Time
}

// CreateAccount registers a new credential pair and returns the account.
func (s *AuthService) CreateAccount(ctx context.Context, email, password string) (*domain.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

// SignIn verifies credentials, opens a session row and returns a signed token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*SignedIn, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrUnauthorized
	}

	now := s.now().UTC()
	session := &domain.AuthSession{
		ID:        uuid.NewString(),
		UID:       account.UID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	token, err := s.generateJWT(session)
	if err != nil {
		return nil, fmt.Errorf("generate jwt: %w", err)
	}

	return &SignedIn{
		Token:     token,
		SessionID: session.ID,
		UID:       account.UID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// SignOut revokes the session and tells every watcher of it that nobody is
// signed in any more. Signing out an unknown or already revoked session is
// not an error.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID, s.now().UTC()); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.identityMu.Lock()
	s.identity.Publish(sessionID, nil)
	s.identityMu.Unlock()
	return nil
}

// ValidateToken parses and validates a JWT token string.
// Returns the account UID and the session ID.
func (s *AuthService) ValidateToken(tokenString string) (uid, sessionID string, err error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return "", "", domain.ErrUnauthorized
	}

	if claims.Subject == "" || claims.ID == "" {
		return "", "", domain.ErrUnauthorized
	}
	return claims.Subject, claims.ID, nil
}

// Authenticate validates the token and checks that its session is still live.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*domain.AuthSession, error) {
	uid, sessionID, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.UID != uid || !session.Live(s.now()) {
		return nil, domain.ErrUnauthorized
	}
	return session, nil
}

// CurrentUser loads the profile document of a signed-in account.
func (s *AuthService) CurrentUser(ctx context.Context, uid string) (*domain.User, error) {
	return s.users.GetByUID(ctx, uid)
}

// Watch subscribes to the signed-in user of a session. The current user is
// delivered first; nil follows when the session signs out. A session that
// signs out while Watch is loading delivers nil straight away.
func (s *AuthService) Watch(ctx context.Context, sessionID, uid string) (*livequery.Subscription[*domain.User], error) {
	s.identityMu.Lock()
	defer s.identityMu.Unlock()

	sub := s.identity.Subscribe(ctx, sessionID)
	user, err := s.users.GetByUID(ctx, uid)
	if err != nil {
		sub.Cancel()
		return nil, fmt.Errorf("get user: %w", err)
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		user = nil
	case err != nil:
		sub.Cancel()
		return nil, fmt.Errorf("get session: %w", err)
	case session.UID != uid || !session.Live(s.now()):
		user = nil
	}
	sub.Send(user)
	return sub, nil
}

// SendPasswordReset mails a single-use reset link. Unknown addresses are
// accepted silently so the response does not reveal which emails exist.
func (s *AuthService) SendPasswordReset(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get account: %w", err)
	}

	token, err := randomToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now().UTC()
	reset := &domain.PasswordReset{
		TokenHash: hashToken(token),
		UID:       account.UID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.resetTokenTTL),
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}

	link := s.baseURL + "/reset/" + token
	if err := s.mailer.SendPasswordReset(ctx, account.Email, link); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// CheckResetToken reports whether a reset token can still be used.
func (s *AuthService) CheckResetToken(ctx context.Context, token string) error {
	_, err := s.liveReset(ctx, token)
	return err
}

// ResetPassword replaces the password of the account that owns token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}

	reset, err := s.liveReset(ctx, token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.resets.MarkUsed(ctx, reset.TokenHash, s.now().UTC()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrTokenExpired
		}
		return fmt.Errorf("mark reset used: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, reset.UID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *AuthService) liveReset(ctx context.Context, token string) (*domain.PasswordReset, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	reset, err := s.resets.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get password reset: %w", err)
	}
	if reset.UsedAt != nil || !s.now().Before(reset.ExpiresAt) {
		return nil, domain.ErrTokenExpired
	}
	return reset, nil
}

func (s *AuthService) generateJWT(session *domain.AuthSession) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UID,
			ID:        session.ID,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
