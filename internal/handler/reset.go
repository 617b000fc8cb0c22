package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/cool-todo/internal/domain"
	"github.com/msomdec/cool-todo/internal/form"
	"github.com/msomdec/cool-todo/internal/service"
	"github.com/msomdec/cool-todo/internal/view"
	"github.com/starfederation/datastar-go/datastar"
)

const (
	resetSent    = "Password reset email sent! Check your inbox."
	resetInvalid = "This reset link is invalid or has expired."
)

// ResetHandler serves the password reset request and the reset link.
type ResetHandler struct {
	auth    *service.AuthService
	request *form.Schema
	confirm *form.Schema
}

// NewResetHandler creates a new ResetHandler.
func NewResetHandler(auth *service.AuthService) *ResetHandler {
	return &ResetHandler{
		auth: auth,
		request: withDescribe(form.ResetRequest, func(error) string {
			return "Failed to send password reset email"
		}),
		confirm: withDescribe(form.ResetConfirm, func(err error) string {
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrTokenExpired) {
				return resetInvalid
			}
			return ""
		}),
	}
}

// HandleRequestPage renders the "forgot password" form.
func (h *ResetHandler) HandleRequestPage(w http.ResponseWriter, r *http.Request) {
	view.ResetPage(view.FormPage{
		Form:    form.ResetRequest,
		Signals: form.New(h.request).Signals(),
	}).Render(r.Context(), w)
}

// HandleRequest mails a reset link and replaces the form with a notice.
func (h *ResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	c, err := readForm(r, h.request)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	err = c.Submit(r.Context(), func(ctx context.Context, v map[string]string) error {
		return h.auth.SendPasswordReset(ctx, v["email"])
	})

	sse := datastar.NewSSE(w, r)
	if err == nil {
		sse.PatchElementTempl(view.ResetNotice(view.FormPage{
			Form:    form.ResetRequest,
			Signals: c.Signals(),
			Notice:  resetSent,
		}))
		return
	}
	if !expectedFailure(err) {
		slog.Error("send password reset", "error", err)
	}
	if err := patchFeedback(sse, c); err != nil {
		slog.Error("patch form feedback", "form", h.request.Name, "error", err)
	}
}

// HandleConfirmPage renders the new-password form of a reset link, or a
// notice when the link can no longer be used.
func (h *ResetHandler) HandleConfirmPage(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	p := view.FormPage{
		Form:    form.ResetConfirm,
		Signals: form.New(h.confirm).Signals(),
		Action:  "/reset/" + token,
	}

	if err := h.auth.CheckResetToken(r.Context(), token); err != nil {
		if !expectedFailure(err) {
			slog.Error("check reset token", "error", err)
		}
		p.Notice = resetInvalid
	}
	view.ResetConfirmPage(p).Render(r.Context(), w)
}

// HandleConfirm sets the new password and sends the browser to sign in.
func (h *ResetHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	c, err := readForm(r, h.confirm)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	token := r.PathValue("token")
	err = c.Submit(r.Context(), func(ctx context.Context, v map[string]string) error {
		return h.auth.ResetPassword(ctx, token, v["password"])
	})

	sse := datastar.NewSSE(w, r)
	if err == nil {
		sse.Redirect(h.confirm.Redirect + "?reset=done")
		return
	}
	if !expectedFailure(err) {
		slog.Error("reset password", "error", err)
	}
	if err := patchFeedback(sse, c); err != nil {
		slog.Error("patch form feedback", "form", h.confirm.Name, "error", err)
	}
}
