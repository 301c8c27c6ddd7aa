package render_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-modelview/pkg/model"
	"github.com/goliatone/go-modelview/pkg/render"
)

type signupForm struct {
	Username string
	Password string
	Plan     string
	Agree    bool
}

var signupDescriptor = model.Describe[*signupForm]("SignupForm").
	String("username", func(f *signupForm) string { return f.Username }, func(f *signupForm, v string) { f.Username = v }).
	String("password", func(f *signupForm) string { return f.Password }, func(f *signupForm, v string) { f.Password = v }).
	String("plan", func(f *signupForm) string { return f.Plan }, func(f *signupForm, v string) { f.Plan = v }).
	Bool("agree", func(f *signupForm) bool { return f.Agree }, func(f *signupForm, v bool) { f.Agree = v }).
	MustBuild()

func (f *signupForm) Descriptor() *model.Descriptor { return signupDescriptor }

type signupPage struct {
	Signup *signupForm
}

var signupPageDescriptor = model.Describe[*signupPage]("SignupPage").
	ModelField("signup", func(p *signupPage) model.Model {
		if p.Signup == nil {
			return nil
		}
		return p.Signup
	}).
	MustBuild()

func (p *signupPage) Descriptor() *model.Descriptor { return signupPageDescriptor }

func renderForm(t *testing.T, body string, form *signupForm) string {
	t.Helper()
	source := `<form id="signup" method="post">` + body + `</form>`
	return renderHTML(t, newRenderer(), source, &signupPage{Signup: form}, render.Options{})
}

func TestPrefillTextInput(t *testing.T) {
	got := renderForm(t, `<input name="username" type="text">`, &signupForm{Username: "Ada"})
	if !strings.Contains(got, `<input name="username" type="text" value="Ada">`) {
		t.Fatalf("text input not pre-filled: %q", got)
	}
}

func TestPrefillOverridesStaleValue(t *testing.T) {
	got := renderForm(t, `<input name="username" type="text" value="old">`, &signupForm{Username: "Ada"})
	if strings.Contains(got, `value="old"`) || !strings.Contains(got, `value="Ada"`) {
		t.Fatalf("stale value attribute survived: %q", got)
	}
}

func TestPrefillNeverTouchesPasswordInput(t *testing.T) {
	got := renderForm(t, `<input name="password" type="password">`, &signupForm{Password: "hunter2"})
	if strings.Contains(got, "hunter2") {
		t.Fatalf("password value leaked: %q", got)
	}
	if !strings.Contains(got, `<input name="password" type="password">`) {
		t.Fatalf("password input altered: %q", got)
	}
}

func TestPrefillRadioByValueEquality(t *testing.T) {
	body := `<input type="radio" name="plan" value="free"><input type="radio" name="plan" value="pro">`
	got := renderForm(t, body, &signupForm{Plan: "pro"})
	if !strings.Contains(got, `<input type="radio" name="plan" value="pro" checked>`) {
		t.Fatalf("matching radio not checked: %q", got)
	}
	if strings.Contains(got, `value="free" checked`) {
		t.Fatalf("non-matching radio checked: %q", got)
	}
}

func TestPrefillCheckbox(t *testing.T) {
	got := renderForm(t, `<input type="checkbox" name="agree">`, &signupForm{Agree: true})
	if !strings.Contains(got, `<input type="checkbox" name="agree" checked>`) {
		t.Fatalf("checkbox not checked: %q", got)
	}

	got = renderForm(t, `<input type="checkbox" name="agree" checked>`, &signupForm{Agree: false})
	if strings.Contains(got, "checked") {
		t.Fatalf("stale checked attribute survived: %q", got)
	}
}

func TestPrefillSelectOption(t *testing.T) {
	body := `<select name="plan"><option value="free">Free</option><option value="pro">Pro</option></select>`
	got := renderForm(t, body, &signupForm{Plan: "pro"})
	if !strings.Contains(got, `<option value="pro" selected>`) {
		t.Fatalf("matching option not selected: %q", got)
	}
	if strings.Contains(got, `<option value="free" selected>`) {
		t.Fatalf("non-matching option selected: %q", got)
	}
}

func TestPrefillOptionFallsBackToText(t *testing.T) {
	body := `<select name="plan"><option>free</option><option>pro</option></select>`
	got := renderForm(t, body, &signupForm{Plan: "pro"})
	if !strings.Contains(got, `<option selected>pro</option>`) {
		t.Fatalf("option text equality ignored: %q", got)
	}
}

func TestPrefillSkippedOutsideBoundForm(t *testing.T) {
	source := `<form id="other" method="post"><input name="username" type="text"></form>`
	got := renderHTML(t, newRenderer(), source, &signupPage{Signup: &signupForm{Username: "Ada"}}, render.Options{})
	if strings.Contains(got, "Ada") {
		t.Fatalf("prefill applied without a bound form model: %q", got)
	}
}
