package form

// Signals is the datastar signal payload of a form. Field names the input
// that triggered a validate round trip.
type Signals struct {
	Values    map[string]string `json:"values"`
	Touched   map[string]bool   `json:"touched"`
	Errors    map[string]string `json:"errors"`
	FormError string            `json:"formError"`
	Field     string            `json:"field,omitempty"`
}

// FromSignals rebuilds a controller from the browser's signals.
func FromSignals(schema *Schema, s Signals) *Controller {
	c := New(schema)
	c.Load(s.Values, s.Touched)
	if s.Field != "" {
		c.Blur(s.Field)
	}
	return c
}

// Signals returns the controller state to patch back into the page. Every
// declared field has an entry in Errors so stale messages are cleared.
func (c *Controller) Signals() Signals {
	errs := make(map[string]string, len(c.schema.Fields))
	visible := c.VisibleErrors()
	for _, f := range c.schema.Fields {
		errs[f.Name] = visible[f.Name]
	}
	return Signals{
		Values:    c.Values(),
		Touched:   c.touchedCopy(),
		Errors:    errs,
		FormError: c.formError,
	}
}

func (c *Controller) touchedCopy() map[string]bool {
	out := make(map[string]bool, len(c.schema.Fields))
	for _, f := range c.schema.Fields {
		out[f.Name] = c.touched[f.Name]
	}
	return out
}

// Feedback is the part of Signals the server sends back after validating.
// It leaves values alone so that input typed during the round trip is kept.
type Feedback struct {
	Touched   map[string]bool   `json:"touched"`
	Errors    map[string]string `json:"errors"`
	FormError string            `json:"formError"`
}

// Feedback returns the touched flags, visible errors and form message.
func (c *Controller) Feedback() Feedback {
	s := c.Signals()
	return Feedback{Touched: s.Touched, Errors: s.Errors, FormError: s.FormError}
}
