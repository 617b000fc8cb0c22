package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/cool-todo/internal/domain"
	"github.com/msomdec/cool-todo/internal/form"
	"github.com/starfederation/datastar-go/datastar"
)

// readForm rebuilds a form controller from the datastar signals of the
// request. Signals of other forms on the page are ignored.
func readForm(r *http.Request, schema *form.Schema) (*form.Controller, error) {
	var all map[string]json.RawMessage
	if err := datastar.ReadSignals(r, &all); err != nil {
		return nil, err
	}
	var s form.Signals
	if raw, ok := all[schema.Name]; ok {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
	}
	return form.FromSignals(schema, s), nil
}

// patchFeedback sends the touched flags, field errors and form message of c
// back to the page.
func patchFeedback(sse *datastar.ServerSentEventGenerator, c *form.Controller) error {
	return sse.MarshalAndPatchSignals(map[string]form.Feedback{c.Schema().Name: c.Feedback()})
}

// resetForm replaces every signal of the form with a blank state.
func resetForm(sse *datastar.ServerSentEventGenerator, schema *form.Schema) error {
	return sse.MarshalAndPatchSignals(map[string]form.Signals{schema.Name: form.New(schema).Signals()})
}

// withDescribe returns a copy of the named schema whose failures are
// described by describe.
func withDescribe(name string, describe func(error) string) *form.Schema {
	s := *form.MustLookup(name)
	s.Describe = describe
	return &s
}

// describeAuthError turns identity failures into the messages shown on the
// sign-in and sign-up forms.
func describeAuthError(err error) string {
	switch {
	case errors.Is(err, domain.ErrUsernameNotFound):
		return "No account found with that username."
	case errors.Is(err, domain.ErrUnauthorized):
		return "Invalid email or password."
	case errors.Is(err, domain.ErrUsernameTaken):
		return "Username already taken"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "An account with that email already exists."
	case errors.Is(err, domain.ErrInvalidInput):
		return "Please check the form and try again."
	}
	return ""
}

// expectedFailure reports errors caused by user input rather than the server.
func expectedFailure(err error) bool {
	return errors.Is(err, form.ErrInvalid) ||
		errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, domain.ErrUsernameNotFound) ||
		errors.Is(err, domain.ErrUsernameTaken) ||
		errors.Is(err, domain.ErrDuplicateEmail) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrTokenExpired)
}

// HandleValidate runs field validation for a blur or a keystroke and patches
// the resulting errors back. Nothing is submitted.
func HandleValidate(w http.ResponseWriter, r *http.Request) {
	schema, ok := form.Lookup(r.PathValue("form"))
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	c, err := readForm(r, schema)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := patchFeedback(sse, c); err != nil {
		slog.Error("patch form feedback", "form", schema.Name, "error", err)
	}
}
