package urlpolicy_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-modelview/pkg/urlpolicy"
)

func TestIsURLAttributeWhitelist(t *testing.T) {
	p := urlpolicy.New()
	yes := [][2]string{
		{"a", "href"}, {"img", "src"}, {"form", "action"}, {"link", "href"},
		{"object", "data"}, {"video", "poster"},
	}
	for _, pair := range yes {
		if !p.IsURLAttribute(pair[0], pair[1]) {
			t.Fatalf("expected %s.%s to be URL-typed", pair[0], pair[1])
		}
	}
	no := [][2]string{
		{"div", "href"}, {"a", "title"}, {"span", "class"}, {"img", "alt"},
	}
	for _, pair := range no {
		if p.IsURLAttribute(pair[0], pair[1]) {
			t.Fatalf("expected %s.%s to not be URL-typed", pair[0], pair[1])
		}
	}
}

func TestIsURLAttributeCaseInsensitive(t *testing.T) {
	p := urlpolicy.New()
	if !p.IsURLAttribute("A", "HREF") {
		t.Fatal("expected classification to ignore case")
	}
}

func TestIsURLAttributeExtensions(t *testing.T) {
	p := urlpolicy.New("my-widget.data-src")
	if !p.IsURLAttribute("my-widget", "data-src") {
		t.Fatal("expected configured extension to be URL-typed")
	}
	if urlpolicy.New().IsURLAttribute("my-widget", "data-src") {
		t.Fatal("extension leaked into a fresh policy")
	}
}

func TestValidateRejectsUnsafeSchemes(t *testing.T) {
	for _, raw := range []string{
		"javascript:alert(1)",
		"JAVASCRIPT:alert(1)",
		"data:text/html;base64,PHNjcmlwdD4=",
		"file:///etc/passwd",
		"mhtml:http://evil/x",
	} {
		_, err := urlpolicy.Validate(raw, "a", "href")
		if !errors.Is(err, urlpolicy.ErrUnsafeScheme) {
			t.Fatalf("expected ErrUnsafeScheme for %q, got %v", raw, err)
		}
	}
}

func TestValidateMailtoOnlyInAnchorHref(t *testing.T) {
	if _, err := urlpolicy.Validate("mailto:a@b.example", "a", "href"); err != nil {
		t.Fatalf("mailto in a.href should pass, got %v", err)
	}
	_, err := urlpolicy.Validate("mailto:a@b.example", "img", "src")
	if !errors.Is(err, urlpolicy.ErrSchemeContext) {
		t.Fatalf("expected ErrSchemeContext, got %v", err)
	}
	_, err = urlpolicy.Validate("tel:+15551234", "form", "action")
	if !errors.Is(err, urlpolicy.ErrSchemeContext) {
		t.Fatalf("expected ErrSchemeContext for tel, got %v", err)
	}
}

func TestValidateUnknownScheme(t *testing.T) {
	_, err := urlpolicy.Validate("ftp://host/file", "a", "href")
	if !errors.Is(err, urlpolicy.ErrUnknownScheme) {
		t.Fatalf("expected ErrUnknownScheme, got %v", err)
	}
}

func TestValidateForbiddenCharacters(t *testing.T) {
	for _, raw := range []string{
		"/path/<script>",
		"/path\"quoted",
		"/path'quoted",
		"/back\\slash",
		"/ctrl\x01char",
		"/café",
	} {
		_, err := urlpolicy.Validate(raw, "a", "href")
		if !errors.Is(err, urlpolicy.ErrForbiddenCharacter) {
			t.Fatalf("expected ErrForbiddenCharacter for %q, got %v", raw, err)
		}
	}
}

func TestValidateLocalURLs(t *testing.T) {
	parsed, err := urlpolicy.Validate("/css/app.css", "link", "href")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !parsed.Local {
		t.Fatal("expected /css/app.css to classify as local")
	}

	parsed, err = urlpolicy.Validate("https://cdn.example/app.css", "link", "href")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Local {
		t.Fatal("absolute URL must not classify as local")
	}

	parsed, err = urlpolicy.Validate("//cdn.example/app.css", "link", "href")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Local {
		t.Fatal("protocol-relative URL must not classify as local")
	}
}
