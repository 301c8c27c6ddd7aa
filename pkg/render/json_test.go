package render_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-modelview/pkg/model"
	"github.com/goliatone/go-modelview/pkg/render"
)

func TestJSONSendableFieldsOnly(t *testing.T) {
	page := &settingsPage{
		Title:    "Hello",
		StyleURL: "/css/app.css",
		Bio:      "short",
		Tags:     []string{"a", "b"},
		Token:    "hidden-value",
		Profile:  &profile{Name: "Ada", Email: "ada@example.com", Theme: "dark"},
	}
	out, err := render.JSON(page, model.Resolver{Routes: func(string) (string, bool) { return "/home", true }}, false)
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if _, ok := decoded["token"]; ok {
		t.Fatalf("private field serialized: %s", out)
	}
	want := map[string]any{
		"title":    "Hello",
		"styleUrl": "/css/app.css",
		"bio":      "short",
		"tags":     []any{"a", "b"},
		"homeRef":  "/home",
		"profile": map[string]any{
			"name":  "Ada",
			"email": "ada@example.com",
			"theme": "dark",
			"admin": false,
		},
	}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Fatalf("unexpected document (-want +got):\n%s", diff)
	}
}

func TestJSONNilNestedModel(t *testing.T) {
	out, err := render.JSON(&settingsPage{HomeRef: "home"}, model.Resolver{Routes: func(string) (string, bool) { return "/home", true }}, false)
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if decoded["profile"] != nil {
		t.Fatalf("expected null nested model, got %v", decoded["profile"])
	}
}

func TestJSONStringEscaping(t *testing.T) {
	page := &settingsPage{Title: "a\"b\\c\nd\x01e"}
	out, err := render.JSON(page, model.Resolver{Routes: func(string) (string, bool) { return "", true }}, false)
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	if !strings.Contains(string(out), `a\"b\\c\nde`) {
		t.Fatalf("string not escaped: %s", out)
	}
}

func TestJSONPrettySortsFields(t *testing.T) {
	page := &settingsPage{Title: "x", Bio: "y"}
	out, err := render.JSON(page, model.Resolver{Routes: func(string) (string, bool) { return "", true }}, true)
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	s := string(out)
	bio := strings.Index(s, `"bio"`)
	title := strings.Index(s, `"title"`)
	if bio < 0 || title < 0 || bio > title {
		t.Fatalf("pretty output not sorted by field name:\n%s", s)
	}
	if !strings.Contains(s, "\n") {
		t.Fatalf("pretty output not indented:\n%s", s)
	}
}
