package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/msomdec/cool-todo/internal/domain"
	"github.com/msomdec/cool-todo/internal/form"
	"github.com/msomdec/cool-todo/internal/service"
	"github.com/msomdec/cool-todo/internal/session"
	"github.com/msomdec/cool-todo/internal/tasklist"
	"github.com/msomdec/cool-todo/internal/view"
	"github.com/starfederation/datastar-go/datastar"
)

// AuthHandler serves sign-in, sign-up and sign-out for the pages and the JSON API.
type AuthHandler struct {
	auth         *service.AuthService
	accounts     *service.AccountService
	views        *tasklist.Registry
	cookieSecure bool

	signIn *form.Schema
	signUp *form.Schema
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, accounts *service.AccountService, views *tasklist.Registry, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		accounts:     accounts,
		views:        views,
		cookieSecure: cookieSecure,
		signIn:       withDescribe(form.SignIn, describeAuthError),
		signUp:       withDescribe(form.SignUp, describeAuthError),
	}
}

// HandleSignInPage renders the sign-in page at the root path.
func (h *AuthHandler) HandleSignInPage(w http.ResponseWriter, r *http.Request) {
	var notice string
	if r.URL.Query().Get("reset") == "done" {
		notice = "Your password has been updated. Please sign in."
	}
	view.SignInPage(view.FormPage{
		Form:    form.SignIn,
		Signals: form.New(h.signIn).Signals(),
		Notice:  notice,
	}).Render(r.Context(), w)
}

// HandleSignIn submits the sign-in form. The identifier is an email when it
// contains "@" and a username otherwise.
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	c, err := readForm(r, h.signIn)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var signed *service.SignedIn
	err = c.Submit(r.Context(), func(ctx context.Context, v map[string]string) error {
		var err error
		signed, err = h.accounts.SignIn(ctx, v["identifier"], v["password"])
		return err
	})
	h.finishAuthForm(w, r, c, signed, err, "sign in")
}

// HandleSignUpPage renders the sign-up page.
func (h *AuthHandler) HandleSignUpPage(w http.ResponseWriter, r *http.Request) {
	view.SignUpPage(view.FormPage{
		Form:    form.SignUp,
		Signals: form.New(h.signUp).Signals(),
	}).Render(r.Context(), w)
}

// HandleSignUp submits the sign-up form and signs the new account in.
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	c, err := readForm(r, h.signUp)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var signed *service.SignedIn
	err = c.Submit(r.Context(), func(ctx context.Context, v map[string]string) error {
		var err error
		signed, err = h.accounts.SignUp(ctx, signUpInput(v))
		return err
	})
	h.finishAuthForm(w, r, c, signed, err, "sign up")
}

// finishAuthForm sets the session cookie and redirects on success, or
// patches the form feedback on failure.
func (h *AuthHandler) finishAuthForm(w http.ResponseWriter, r *http.Request, c *form.Controller, signed *service.SignedIn, err error, op string) {
	if err == nil {
		session.SetCookie(w, signed.Token, signed.ExpiresAt, h.cookieSecure)
		sse := datastar.NewSSE(w, r)
		sse.Redirect(c.Schema().Redirect)
		return
	}
	if !expectedFailure(err) {
		slog.Error(op, "error", err)
	}

	sse := datastar.NewSSE(w, r)
	if err := patchFeedback(sse, c); err != nil {
		slog.Error("patch form feedback", "form", c.Schema().Name, "error", err)
	}
}

// HandleLogout signs the current session out and returns to the sign-in page.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.signOut(w, r)
	if isDatastar(r) {
		sse := datastar.NewSSE(w, r)
		sse.Redirect("/")
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) signOut(w http.ResponseWriter, r *http.Request) {
	res := session.FromContext(r.Context())
	if res.SessionID != "" {
		if err := h.auth.SignOut(r.Context(), res.SessionID); err != nil {
			slog.Error("sign out", "error", err)
		}
		h.views.Drop(res.SessionID)
	}
	session.ClearCookie(w, h.cookieSecure)
}

// HandleAPIRegister handles POST /api/auth/register.
func (h *AuthHandler) HandleAPIRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	c := form.New(h.signUp)
	c.Load(req.values(), nil)
	var signed *service.SignedIn
	err := c.Submit(r.Context(), func(ctx context.Context, v map[string]string) error {
		var err error
		signed, err = h.accounts.SignUp(ctx, signUpInput(v))
		return err
	})
	switch {
	case errors.Is(err, form.ErrInvalid):
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Errors: c.Errors()})
		return
	case errors.Is(err, domain.ErrDuplicateEmail), errors.Is(err, domain.ErrUsernameTaken):
		writeError(w, http.StatusConflict, describeAuthError(err))
		return
	case err != nil:
		slog.Error("register", "error", err)
		writeError(w, http.StatusInternalServerError, "Registration failed.")
		return
	}

	h.respondSignedIn(w, r, signed, http.StatusCreated)
}

// HandleAPILogin handles POST /api/auth/login.
func (h *AuthHandler) HandleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email or username and password are required.")
		return
	}

	signed, err := h.accounts.SignIn(r.Context(), req.Identifier, req.Password)
	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrUsernameNotFound):
		writeError(w, http.StatusUnauthorized, describeAuthError(err))
		return
	case err != nil:
		slog.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed.")
		return
	}

	h.respondSignedIn(w, r, signed, http.StatusOK)
}

func (h *AuthHandler) respondSignedIn(w http.ResponseWriter, r *http.Request, signed *service.SignedIn, status int) {
	user, err := h.accounts.Profile(r.Context(), signed.UID)
	if err != nil {
		slog.Error("load profile", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load profile.")
		return
	}
	session.SetCookie(w, signed.Token, signed.ExpiresAt, h.cookieSecure)
	writeJSON(w, status, toUserDTO(user))
}

// HandleAPILogout handles POST /api/auth/logout.
func (h *AuthHandler) HandleAPILogout(w http.ResponseWriter, r *http.Request) {
	h.signOut(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// HandleAPIMe handles GET /api/auth/me.
func (h *AuthHandler) HandleAPIMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toUserDTO(session.UserFromContext(r.Context())))
}

func signUpInput(v map[string]string) service.SignUpInput {
	return service.SignUpInput{
		FullName: v["fullName"],
		Email:    v["email"],
		Username: v["username"],
		Password: v["password"],
	}
}
