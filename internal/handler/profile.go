package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/cool-todo/internal/domain"
	"github.com/msomdec/cool-todo/internal/form"
	"github.com/msomdec/cool-todo/internal/service"
	"github.com/msomdec/cool-todo/internal/session"
	"github.com/msomdec/cool-todo/internal/view"
	"github.com/starfederation/datastar-go/datastar"
)

const (
	profileUpdated = "✅ Profile updated successfully!"
	profileFailed  = "❌ Failed to update profile."
)

// ProfileHandler serves the profile page and its update form.
type ProfileHandler struct {
	accounts *service.AccountService
	schema   *form.Schema
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(accounts *service.AccountService) *ProfileHandler {
	return &ProfileHandler{
		accounts: accounts,
		schema: withDescribe(form.Profile, func(error) string {
			return "Failed to update profile."
		}),
	}
}

// HandlePage renders the profile form filled with the stored profile.
func (h *ProfileHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	user := session.UserFromContext(r.Context())
	c := form.New(h.schema)
	c.Load(map[string]string{"fullName": user.FullName, "email": user.Email}, nil)

	view.ProfilePage(view.ProfileData{
		FormPage: view.FormPage{
			Page:    view.Page{User: user},
			Form:    form.Profile,
			Signals: c.Signals(),
		},
	}).Render(r.Context(), w)
}

// HandleUpdate saves the full name and email of the profile.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	c, err := readForm(r, h.schema)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	user := session.UserFromContext(r.Context())
	err = c.Submit(r.Context(), func(ctx context.Context, v map[string]string) error {
		_, err := h.accounts.UpdateProfile(ctx, user.UID, domain.ProfilePatch{
			FullName: v["fullName"],
			Email:    v["email"],
		})
		return err
	})

	sse := datastar.NewSSE(w, r)
	if err := patchFeedback(sse, c); err != nil {
		slog.Error("patch form feedback", "form", h.schema.Name, "error", err)
	}
	switch {
	case errors.Is(err, form.ErrInvalid):
		return
	case err != nil:
		if !expectedFailure(err) {
			slog.Error("update profile", "error", err)
		}
		sse.PatchElementTempl(view.ProfileMessage(profileFailed))
	default:
		sse.PatchElementTempl(view.ProfileMessage(profileUpdated))
	}
}
