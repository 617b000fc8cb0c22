package form

// Form names. Each is also the datastar signal namespace of its form.
const (
	SignIn       = "signin"
	SignUp       = "signup"
	Profile      = "profile"
	TaskCreate   = "taskCreate"
	TaskEdit     = "taskEdit"
	ResetRequest = "resetRequest"
	ResetConfirm = "resetConfirm"
)

func passwordRules(required, tooShort, digit, special, upper, lower string) []Rule {
	return []Rule{
		{Tag: "required", Message: required},
		{Tag: "min=6", Message: tooShort},
		{Tag: "has_digit", Message: digit},
		{Tag: "has_special", Message: special},
		{Tag: "has_upper", Message: upper},
		{Tag: "has_lower", Message: lower},
	}
}

var signUpPassword = passwordRules(
	"Password is required",
	"Password must be at least 6 characters",
	"Must contain at least one number",
	"Must contain one special character",
	"Must contain one uppercase letter",
	"Must contain one lowercase letter",
)

var fullNameRules = []Rule{
	{Tag: "required", Message: "Full name is required"},
	{Tag: "min=3", Message: "Full name must be at least 3 characters"},
	{Tag: "max=50", Message: "Full name must be less than 50 characters"},
}

var emailRules = []Rule{
	{Tag: "required", Message: "Email is required"},
	{Tag: "email", Message: "Please enter a valid email"},
}

func confirmRules(other string) []Rule {
	return []Rule{
		{Tag: "required", Message: "Please confirm your password"},
		{Tag: "eqcsfield", Other: other, Message: "Passwords must match"},
	}
}

var schemas = map[string]*Schema{
	SignIn: {
		Name: SignIn,
		Fields: []Field{
			{Name: "identifier", Rules: []Rule{
				{Tag: "notblank", Message: "An email or username is required"},
			}},
			{Name: "password", Rules: passwordRules(
				"A password is required",
				"Too Short!",
				"Password must contain at least one number",
				"Password must contain at least one special character",
				"Password must contain at least one uppercase letter",
				"Password must contain at least one lowercase letter",
			)},
		},
		Redirect:        "/profile",
		CaptureFailures: true,
	},
	SignUp: {
		Name: SignUp,
		Fields: []Field{
			{Name: "fullName", Rules: fullNameRules},
			{Name: "email", Rules: emailRules},
			{Name: "username", Rules: []Rule{
				{Tag: "required", Message: "Username is required"},
				{Tag: "min=3", Message: "Username must be at least 3 characters"},
				{Tag: "max=30", Message: "Username must be less than 30 characters"},
				{Tag: "username", Message: "Only letters, numbers, and underscores allowed"},
			}},
			{Name: "password", Rules: signUpPassword},
			{Name: "confirmPassword", Rules: confirmRules("password")},
		},
		Redirect:        "/profile",
		CaptureFailures: true,
	},
	Profile: {
		Name: Profile,
		Fields: []Field{
			{Name: "fullName", Rules: fullNameRules},
			{Name: "email", Rules: emailRules},
		},
		CaptureFailures: true,
	},
	TaskCreate: {
		Name: TaskCreate,
		Fields: []Field{
			{Name: "title", Rules: []Rule{{Tag: "notblank", Message: "Title is required"}}},
			{Name: "description"},
			{Name: "startTime"},
			{Name: "endTime"},
		},
	},
	TaskEdit: {
		Name: TaskEdit,
		Fields: []Field{
			{Name: "title", Rules: []Rule{{Tag: "notblank", Message: "Title is required"}}},
			{Name: "description"},
		},
	},
	ResetRequest: {
		Name:            ResetRequest,
		Fields:          []Field{{Name: "email", Rules: emailRules}},
		CaptureFailures: true,
	},
	ResetConfirm: {
		Name: ResetConfirm,
		Fields: []Field{
			{Name: "password", Rules: signUpPassword},
			{Name: "confirmPassword", Rules: confirmRules("password")},
		},
		Redirect:        "/",
		CaptureFailures: true,
	},
}

// Lookup returns the schema registered under name.
func Lookup(name string) (*Schema, bool) {
	s, ok := schemas[name]
	return s, ok
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(name string) *Schema {
	s, ok := schemas[name]
	if !ok {
		panic("form: unknown schema " + name)
	}
	return s
}
