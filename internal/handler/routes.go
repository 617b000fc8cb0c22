package handler

import (
	"net/http"

	"github.com/msomdec/cool-todo/internal/service"
	"github.com/msomdec/cool-todo/internal/session"
	"github.com/msomdec/cool-todo/internal/tasklist"
)

// Deps are the services the routes are built from.
type Deps struct {
	Auth         *service.AuthService
	Accounts     *service.AccountService
	Tasks        *service.TaskStore
	Views        *tasklist.Registry
	Gate         *session.Gate
	Limiter      *service.TokenBucket
	DB           Pinger
	CookieSecure bool
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	authH := NewAuthHandler(d.Auth, d.Accounts, d.Views, d.CookieSecure)
	resetH := NewResetHandler(d.Auth)
	profileH := NewProfileHandler(d.Accounts)
	taskH := NewTaskHandler(d.Tasks, d.Views, d.Gate)

	protect := func(h http.HandlerFunc) http.Handler { return d.Gate.Protect(h) }
	optional := func(h http.HandlerFunc) http.Handler { return d.Gate.Optional(h) }
	limit := func(h http.HandlerFunc) http.Handler { return RateLimit(d.Limiter, h) }

	mux.HandleFunc("GET /healthz", HandleHealthz(d.DB))

	// Public pages.
	mux.HandleFunc("GET /{$}", authH.HandleSignInPage)
	mux.Handle("POST /signin", limit(authH.HandleSignIn))
	mux.HandleFunc("GET /signup", authH.HandleSignUpPage)
	mux.Handle("POST /signup", limit(authH.HandleSignUp))
	mux.HandleFunc("GET /reset", resetH.HandleRequestPage)
	mux.Handle("POST /reset", limit(resetH.HandleRequest))
	mux.HandleFunc("GET /reset/{token}", resetH.HandleConfirmPage)
	mux.Handle("POST /reset/{token}", limit(resetH.HandleConfirm))
	mux.HandleFunc("POST /forms/{form}/validate", HandleValidate)

	// Signed-in pages.
	mux.Handle("POST /logout", protect(authH.HandleLogout))
	mux.Handle("GET /dashboard", protect(HandleDashboard))
	mux.Handle("GET /profile", protect(profileH.HandlePage))
	mux.Handle("POST /profile", protect(profileH.HandleUpdate))

	mux.Handle("GET /tasks", protect(taskH.HandlePage))
	mux.Handle("GET /tasks/stream", protect(taskH.HandleStream))
	mux.Handle("POST /tasks", protect(taskH.HandleCreate))
	mux.Handle("POST /tasks/create/open", protect(taskH.HandleOpenCreate))
	mux.Handle("POST /tasks/create/close", protect(taskH.HandleCloseCreate))
	mux.Handle("POST /tasks/manage/open", protect(taskH.HandleOpenManage))
	mux.Handle("POST /tasks/manage/close", protect(taskH.HandleCloseManage))
	mux.Handle("POST /tasks/notice/dismiss", protect(taskH.HandleDismissNotice))
	mux.Handle("POST /tasks/{id}/edit", protect(taskH.HandleBeginEdit))
	mux.Handle("POST /tasks/{id}/save", protect(taskH.HandleSaveEdit))
	mux.Handle("POST /tasks/{id}/cancel", protect(taskH.HandleCancelEdit))
	mux.Handle("DELETE /tasks/{id}", protect(taskH.HandleDelete))

	// JSON API.
	mux.Handle("POST /api/auth/register", limit(authH.HandleAPIRegister))
	mux.Handle("POST /api/auth/login", limit(authH.HandleAPILogin))
	mux.Handle("POST /api/auth/logout", optional(authH.HandleAPILogout))
	mux.Handle("GET /api/auth/me", protect(authH.HandleAPIMe))
	mux.Handle("GET /api/tasks", protect(taskH.HandleAPIList))
	mux.Handle("POST /api/tasks", protect(taskH.HandleAPICreate))
	mux.Handle("PATCH /api/tasks/{id}", protect(taskH.HandleAPIUpdate))
	mux.Handle("DELETE /api/tasks/{id}", protect(taskH.HandleAPIDelete))

	mux.Handle("/", optional(HandleNotFound))
}
