// Package session resolves who is signed in and keeps protected pages away
// from anonymous viewers.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/msomdec/cool-todo/internal/domain"
	"github.com/msomdec/cool-todo/internal/livequery"
	"github.com/starfederation/datastar-go/datastar"
)

// CookieName is the cookie carrying the signed session token.
const CookieName = "auth_token"

// State is the authentication state of a viewer.
type State int

const (
	// Unknown is the state before resolution has run.
	Unknown State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of resolving a request's session.
type Resolution struct {
	State     State
	User      *domain.User
	SessionID string
}

// Authenticator is the slice of the identity provider the gate needs.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.AuthSession, error)
	CurrentUser(ctx context.Context, uid string) (*domain.User, error)
	Watch(ctx context.Context, sessionID, uid string) (*livequery.Subscription[*domain.User], error)
}

// Gate resolves sessions from the auth cookie.
type Gate struct {
	auth Authenticator
}

// NewGate creates a new Gate.
func NewGate(auth Authenticator) *Gate {
	return &Gate{auth: auth}
}

// Resolve reads the auth cookie, checks that its session is live and loads
// the profile. Any failure resolves to Unauthenticated.
func (g *Gate) Resolve(r *http.Request) Resolution {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Resolution{State: Unauthenticated}
	}

	sess, err := g.auth.Authenticate(r.Context(), cookie.Value)
	if err != nil {
		return Resolution{State: Unauthenticated}
	}

	user, err := g.auth.CurrentUser(r.Context(), sess.UID)
	if err != nil {
		slog.Warn("load user for session", "session", sess.ID, "error", err)
		return Resolution{State: Unauthenticated}
	}

	return Resolution{State: Authenticated, User: user, SessionID: sess.ID}
}

// Protect lets authenticated requests through with their Resolution in the
// context and sends everyone else back to the sign-in page.
func (g *Gate) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := g.Resolve(r)
		if res.State != Authenticated {
			Deny(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithResolution(r.Context(), res)))
	})
}

// Optional resolves the session without blocking anonymous requests.
func (g *Gate) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithResolution(r.Context(), g.Resolve(r))))
	})
}

// Watch subscribes to the signed-in user of res. The user arrives first and
// nil follows on sign-out. The subscription ends with ctx or Cancel.
func (g *Gate) Watch(ctx context.Context, res Resolution) (*livequery.Subscription[*domain.User], error) {
	return g.auth.Watch(ctx, res.SessionID, res.User.UID)
}

// Deny replaces the current navigation with the sign-in page: a 303 for
// page loads, a datastar redirect for actions and a 401 for the JSON API.
func Deny(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/api/"):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "Not authenticated."})
	case r.Header.Get("Datastar-Request") == "true":
		sse := datastar.NewSSE(w, r)
		sse.Redirect("/")
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

type contextKey struct{}

// WithResolution stores res in ctx.
func WithResolution(ctx context.Context, res Resolution) context.Context {
	return context.WithValue(ctx, contextKey{}, res)
}

// FromContext returns the Resolution stored by Protect or Optional, or the
// Unknown zero value.
func FromContext(ctx context.Context) Resolution {
	res, _ := ctx.Value(contextKey{}).(Resolution)
	return res
}

// UserFromContext returns the signed-in user, or nil.
func UserFromContext(ctx context.Context) *domain.User {
	return FromContext(ctx).User
}

// SetCookie stores token in the auth cookie until expires.
func SetCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the auth cookie.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
