package handler

import (
	"net/http"

	"github.com/msomdec/cool-todo/internal/session"
	"github.com/msomdec/cool-todo/internal/view"
)

// HandleDashboard renders the dashboard placeholder.
func HandleDashboard(w http.ResponseWriter, r *http.Request) {
	view.DashboardPage(view.Page{User: session.UserFromContext(r.Context())}).Render(r.Context(), w)
}

// HandleNotFound renders the error page for unknown paths.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	view.ErrorPage(view.ErrorData{
		Page:    view.Page{User: session.UserFromContext(r.Context())},
		Status:  http.StatusNotFound,
		Message: "The page you are looking for does not exist.",
	}).Render(r.Context(), w)
}
