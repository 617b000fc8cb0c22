// Package view renders the pages and live fragments of the app. Pages are
// html/template files embedded in the binary and exposed as templ
// components so handlers can render them directly or patch them over SSE.
package view

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/a-h/templ"
	"github.com/msomdec/cool-todo/internal/domain"
	"github.com/msomdec/cool-todo/internal/form"
	"github.com/msomdec/cool-todo/internal/tasklist"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"signals": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
	"upper": strings.ToUpper,
	"input": func(formName, name, typ, placeholder string) Input {
		return Input{Form: formName, Name: name, Type: typ, Placeholder: placeholder}
	},
	"formError": func(formName string) FormError {
		return FormError{Form: formName}
	},
}

// Input is a form field bound to its form's datastar signals. Blurring it
// marks it touched and asks the server to validate; typing revalidates
// fields already touched.
type Input struct {
	Form        string
	Name        string
	Type        string
	Placeholder string
}

func (i Input) ID() string {
	return i.Form + "-" + i.Name
}

func (i Input) Bind() string {
	return i.Form + ".values." + i.Name
}

func (i Input) ErrorText() string {
	return "$" + i.Form + ".errors." + i.Name
}

// OnBlur and OnInput are built from compile-time form and field names.
func (i Input) OnBlur() template.JS {
	return template.JS(fmt.Sprintf("$%s.field = '%s'; @post('/forms/%s/validate')", i.Form, i.Name, i.Form))
}

func (i Input) OnInput() template.JS {
	return template.JS(fmt.Sprintf("$%s.touched.%s && ($%s.field = '%s', @post('/forms/%s/validate'))", i.Form, i.Name, i.Form, i.Name, i.Form))
}

// FormError is the single failure message of a form.
type FormError struct {
	Form string
}

func (f FormError) Show() string {
	return "!!$" + f.Form + ".formError"
}

func (f FormError) Text() string {
	return "$" + f.Form + ".formError"
}

var pages = map[string]*template.Template{}

func init() {
	for _, page := range []string{"signin", "signup", "reset", "reset_confirm", "tasks", "dashboard", "profile", "error"} {
		pages[page] = template.Must(template.New(page).Funcs(funcs).ParseFS(files,
			"templates/layout.html",
			"templates/sidebar.html",
			"templates/"+page+".html",
		))
	}
}

func render(page, name string, data any) templ.Component {
	return templ.FromGoHTML(pages[page].Lookup(name), data)
}

// Page carries what every page needs.
type Page struct {
	Title  string
	User   *domain.User
	Active string
}

// Greeting is the name shown in the sidebar and on the task page.
func (p Page) Greeting() string {
	return p.User.DisplayName()
}

// FormPage is a page built around a single form.
type FormPage struct {
	Page
	Form    string
	Signals form.Signals
	// Notice is an informational message above the form.
	Notice string
	// Action overrides the submit URL.
	Action string
}

// SignalsJSON wraps the form signals under the form's namespace.
func (p FormPage) SignalsJSON() map[string]form.Signals {
	return map[string]form.Signals{p.Form: p.Signals}
}

func SignInPage(p FormPage) templ.Component {
	p.Title = "Sign In"
	return render("signin", "layout", p)
}

func SignUpPage(p FormPage) templ.Component {
	p.Title = "Sign Up"
	return render("signup", "layout", p)
}

func ResetPage(p FormPage) templ.Component {
	p.Title = "Reset Password"
	return render("reset", "layout", p)
}

// ResetNotice replaces the reset form with a confirmation message.
func ResetNotice(p FormPage) templ.Component {
	return render("reset", "reset-body", p)
}

// ResetConfirmPage renders the new-password form, or Notice alone when the
// link is no longer usable.
func ResetConfirmPage(p FormPage) templ.Component {
	p.Title = "Choose a New Password"
	return render("reset_confirm", "layout", p)
}

// Suggestion is an entry of the "are you bored" list on the task page.
var Suggestions = []string{
	"Write a short story or random thoughts.",
	"Learn a new word or fun fact.",
	"Brainstorm future goals or project ideas.",
	"Do a mini-workout.",
	"Learn a new skill on YouTube.",
	"Practice typing speed or try a coding challenge.",
}

// TasksData is the task page of one viewer.
type TasksData struct {
	Page
	State       tasklist.State
	Suggestions []string
}

// TaskSignals returns the initial signals of the task forms.
func (d TasksData) TaskSignals() map[string]form.Signals {
	return map[string]form.Signals{
		form.TaskCreate: form.New(form.MustLookup(form.TaskCreate)).Signals(),
		form.TaskEdit:   form.New(form.MustLookup(form.TaskEdit)).Signals(),
	}
}

func TasksPage(d TasksData) templ.Component {
	d.Title = "Tasks"
	d.Active = "tasks"
	d.Suggestions = Suggestions
	return render("tasks", "layout", d)
}

// TaskBoard is the live part of the task page, patched by id "task-board".
func TaskBoard(d TasksData) templ.Component {
	d.Suggestions = Suggestions
	return render("tasks", "task-board", d)
}

func DashboardPage(p Page) templ.Component {
	p.Title = "Dashboard"
	p.Active = "dashboard"
	return render("dashboard", "layout", p)
}

// Achievement is a static entry of the profile achievements panel.
type Achievement struct {
	Name    string
	Percent int
	Level   int
	Color   string
}

var Achievements = []Achievement{
	{Name: "Task Streak", Percent: 70, Level: 4, Color: "#facc15"},
	{Name: "Goal Getter", Percent: 45, Level: 2, Color: "#22d3ee"},
	{Name: "Productivity Master", Percent: 80, Level: 5, Color: "#4ade80"},
}

// ProfileData is the profile page.
type ProfileData struct {
	FormPage
	Message      string
	Achievements []Achievement
}

func ProfilePage(d ProfileData) templ.Component {
	d.Title = "Profile"
	d.Active = "profile"
	d.Achievements = Achievements
	return render("profile", "layout", d)
}

// ProfileMessage is the status line under the profile form, patched by id
// "profile-message".
func ProfileMessage(message string) templ.Component {
	return render("profile", "profile-message", ProfileData{Message: message})
}

// ErrorData is the generic error page.
type ErrorData struct {
	Page
	Status  int
	Message string
}

func ErrorPage(d ErrorData) templ.Component {
	d.Title = "Error"
	return render("error", "layout", d)
}

// Toast is a transient message shown in the corner of any page, patched by
// id "toast".
func Toast(message string) templ.Component {
	return render("error", "toast", message)
}
