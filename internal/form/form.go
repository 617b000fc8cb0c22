// Package form implements the form controllers shared by every page: field
// values, touched flags and per-field errors evaluated against a declared
// rule list.
package form

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is returned by Submit when a field fails its rules.
var ErrInvalid = errors.New("form has invalid fields")

// Rule is one validator tag and the message shown when it fails. Other
// names a sibling field for cross-field tags such as eqcsfield.
type Rule struct {
	Tag     string
	Other   string
	Message string
}

// Field is a named input and its rules, evaluated in order.
type Field struct {
	Name  string
	Rules []Rule
}

// Schema declares a form: its fields, where to go after a successful
// submit, and whether failed submits produce a form-level message.
type Schema struct {
	Name            string
	Fields          []Field
	Redirect        string
	CaptureFailures bool
	// Describe turns an action error into the form-level message.
	Describe func(error) string
}

// Field returns the declared field called name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

var (
	validate        = newValidator()
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

const specialChars = "#?!@$%^&*-"

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	custom := map[string]func(string) bool{
		"notblank":    func(s string) bool { return strings.TrimSpace(s) != "" },
		"has_digit":   func(s string) bool { return strings.IndexFunc(s, unicode.IsDigit) >= 0 },
		"has_upper":   func(s string) bool { return strings.IndexFunc(s, unicode.IsUpper) >= 0 },
		"has_lower":   func(s string) bool { return strings.IndexFunc(s, unicode.IsLower) >= 0 },
		"has_special": func(s string) bool { return strings.ContainsAny(s, specialChars) },
		"username":    usernamePattern.MatchString,
	}
	for tag, check := range custom {
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		})
		if err != nil {
			panic(fmt.Sprintf("form: register %q: %v", tag, err))
		}
	}
	return v
}

// Check evaluates rules against value and returns the first failing
// message, or "" when every rule passes.
func Check(rules []Rule, value string, values map[string]string) string {
	for _, rule := range rules {
		var err error
		if rule.Other != "" {
			err = validate.VarWithValue(value, values[rule.Other], rule.Tag)
		} else {
			err = validate.Var(value, rule.Tag)
		}
		if err != nil {
			return rule.Message
		}
	}
	return ""
}

// Controller is the state of one form instance.
type Controller struct {
	schema    *Schema
	values    map[string]string
	touched   map[string]bool
	errors    map[string]string
	formError string
}

// New creates an empty, untouched controller for schema.
func New(schema *Schema) *Controller {
	c := &Controller{
		schema:  schema,
		values:  make(map[string]string),
		touched: make(map[string]bool),
		errors:  make(map[string]string),
	}
	for _, f := range schema.Fields {
		c.values[f.Name] = ""
	}
	c.Validate()
	return c
}

// Load replaces the values and touched flags, ignoring undeclared fields,
// and revalidates.
func (c *Controller) Load(values map[string]string, touched map[string]bool) {
	for _, f := range c.schema.Fields {
		c.values[f.Name] = values[f.Name]
		c.touched[f.Name] = touched[f.Name]
	}
	c.Validate()
}

func (c *Controller) Schema() *Schema {
	return c.schema
}

// Value returns the current value of field.
func (c *Controller) Value(field string) string {
	return c.values[field]
}

// Values returns a copy of every field value.
func (c *Controller) Values() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Change sets field to value and revalidates the whole form, so that
// cross-field rules follow the edit.
func (c *Controller) Change(field, value string) {
	if _, ok := c.schema.Field(field); !ok {
		return
	}
	c.values[field] = value
	c.Validate()
}

// Blur marks field as interacted with.
func (c *Controller) Blur(field string) {
	if _, ok := c.schema.Field(field); ok {
		c.touched[field] = true
	}
}

// Touched reports whether field has been interacted with.
func (c *Controller) Touched(field string) bool {
	return c.touched[field]
}

// Validate refreshes the error map and reports whether the form is valid.
func (c *Controller) Validate() bool {
	clear(c.errors)
	for _, f := range c.schema.Fields {
		if msg := Check(f.Rules, c.values[f.Name], c.values); msg != "" {
			c.errors[f.Name] = msg
		}
	}
	return len(c.errors) == 0
}

// Errors returns every current field error, touched or not.
func (c *Controller) Errors() map[string]string {
	out := make(map[string]string, len(c.errors))
	for k, v := range c.errors {
		out[k] = v
	}
	return out
}

// VisibleErrors returns the errors of touched fields only.
func (c *Controller) VisibleErrors() map[string]string {
	out := make(map[string]string)
	for k, v := range c.errors {
		if c.touched[k] {
			out[k] = v
		}
	}
	return out
}

// FormError returns the message captured from the last failed submit.
func (c *Controller) FormError() string {
	return c.formError
}

// Action is the single domain call a form submits to.
type Action func(ctx context.Context, values map[string]string) error

// Submit marks every field touched and, if the form is valid, runs action
// exactly once. Invalid forms return ErrInvalid without calling action.
// When the schema captures failures, an action error is turned into the
// form-level message.
func (c *Controller) Submit(ctx context.Context, action Action) error {
	for _, f := range c.schema.Fields {
		c.touched[f.Name] = true
	}
	c.formError = ""
	if !c.Validate() {
		return ErrInvalid
	}

	err := action(ctx, c.Values())
	if err != nil && c.schema.CaptureFailures {
		c.formError = describe(c.schema, err)
	}
	return err
}

func describe(s *Schema, err error) string {
	if s.Describe != nil {
		if msg := s.Describe(err); msg != "" {
			return msg
		}
	}
	return "Something went wrong. Please try again."
}
