package bind_test

import (
	"bytes"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-modelview/pkg/bind"
	"github.com/goliatone/go-modelview/pkg/model"
)

type registration struct {
	ID         string
	Username   string
	Email      string
	FullName   string
	Motto      string
	Age        int64
	Newsletter bool
	Interests  []string
	Birthday   time.Time
	Avatar     *multipart.FileHeader
	Karma      int64

	usernameSets int
}

var registrationDescriptor = model.Describe[*registration]("Registration").
	ID("id", func(r *registration) string { return r.ID }).
	String("username", func(r *registration) string { return r.Username },
		func(r *registration, v string) { r.Username = v; r.usernameSets++ },
		model.Rules(model.Required(), model.MinLength(3), model.MaxLength(20))).
	String("email", func(r *registration) string { return r.Email },
		func(r *registration, v string) { r.Email = v },
		model.Rules(model.Required(), model.Email())).
	String("fullName", func(r *registration) string { return r.FullName },
		func(r *registration, v string) { r.FullName = v },
		model.Tags(model.TagNormalizeSpacing)).
	String("motto", func(r *registration) string { return r.Motto },
		func(r *registration, v string) { r.Motto = v },
		model.Tags(model.TagNoTrim)).
	Int("age", func(r *registration) int64 { return r.Age },
		func(r *registration, v int64) { r.Age = v },
		model.Rules(model.MinValue(13), model.MaxValue(120))).
	Bool("newsletter", func(r *registration) bool { return r.Newsletter },
		func(r *registration, v bool) { r.Newsletter = v }).
	Strings("interests", func(r *registration) []string { return r.Interests },
		func(r *registration, v []string) { r.Interests = v }).
	Time("birthday", func(r *registration) time.Time { return r.Birthday },
		func(r *registration, v time.Time) { r.Birthday = v }).
	File("avatar", func(r *registration) *multipart.FileHeader { return r.Avatar },
		func(r *registration, v *multipart.FileHeader) { r.Avatar = v }).
	Int("karma", func(r *registration) int64 { return r.Karma }, nil).
	MustBuild()

func (r *registration) Descriptor() *model.Descriptor { return registrationDescriptor }

func baseValues() url.Values {
	return url.Values{
		"username": {"ada"},
		"email":    {"ada@example.com"},
	}
}

func TestBindTrimsAndSets(t *testing.T) {
	values := baseValues()
	values.Set("username", "  ada  ")
	var dst registration
	if err := bind.New().Bind(&dst, values, nil); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if dst.Username != "ada" {
		t.Fatalf("expected trimmed username, got %q", dst.Username)
	}
}

func TestBindNoTrimPreservesWhitespace(t *testing.T) {
	values := baseValues()
	values.Set("motto", "  onwards  ")
	var dst registration
	if err := bind.New().Bind(&dst, values, nil); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if dst.Motto != "  onwards  " {
		t.Fatalf("NoTrim field altered: %q", dst.Motto)
	}
}

func TestBindNormalizesSpacing(t *testing.T) {
	values := baseValues()
	values.Set("fullName", "Ada   Lovelace\t King")
	var dst registration
	if err := bind.New().Bind(&dst, values, nil); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if dst.FullName != "Ada Lovelace King" {
		t.Fatalf("spacing not normalized: %q", dst.FullName)
	}
}

func TestBindLowercasesEmail(t *testing.T) {
	values := baseValues()
	values.Set("email", "Ada@Example.COM")
	var dst registration
	if err := bind.New().Bind(&dst, values, nil); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if dst.Email != "ada@example.com" {
		t.Fatalf("email not lowercased: %q", dst.Email)
	}
}

func TestBindRequiredMissing(t *testing.T) {
	values := baseValues()
	values.Del("email")
	var dst registration
	err := bind.New().Bind(&dst, values, nil)
	var errs bind.Errors
	if !errors.As(err, &errs) {
		t.Fatalf("expected bind.Errors, got %v", err)
	}
	if msg := errs.ByField()["email"]; msg != "is required" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestBindCollectsEveryFailure(t *testing.T) {
	values := url.Values{
		"username": {"ab"},
		"email":    {"not-an-email"},
		"age":      {"7"},
	}
	var dst registration
	err := bind.New().Bind(&dst, values, nil)
	var errs bind.Errors
	if !errors.As(err, &errs) {
		t.Fatalf("expected bind.Errors, got %v", err)
	}
	byField := errs.ByField()
	for _, field := range []string{"username", "email", "age"} {
		if byField[field] == "" {
			t.Fatalf("missing failure for %s in %v", field, errs)
		}
	}
}

func TestBindIntParsingAndRange(t *testing.T) {
	values := baseValues()
	values.Set("age", "30")
	var dst registration
	if err := bind.New().Bind(&dst, values, nil); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if dst.Age != 30 {
		t.Fatalf("expected 30, got %d", dst.Age)
	}

	values.Set("age", "abc")
	err := bind.New().Bind(&registration{}, values, nil)
	var errs bind.Errors
	if !errors.As(err, &errs) || errs.ByField()["age"] != "must be an integer" {
		t.Fatalf("expected integer parse failure, got %v", err)
	}
}

func TestBindCheckboxAbsentMeansFalse(t *testing.T) {
	dst := registration{Newsletter: true}
	if err := bind.New().Bind(&dst, baseValues(), nil); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if dst.Newsletter {
		t.Fatal("absent checkbox should bind false")
	}

	values := baseValues()
	values.Set("newsletter", "on")
	if err := bind.New().Bind(&dst, values, nil); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if !dst.Newsletter {
		t.Fatal("checked checkbox should bind true")
	}
}

func TestBindMultiValueField(t *testing.T) {
	values := baseValues()
	values["interests"] = []string{" go ", "html"}
	var dst registration
	if err := bind.New().Bind(&dst, values, nil); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if diff := cmp.Diff([]string{"go", "html"}, dst.Interests); diff != "" {
		t.Fatalf("unexpected interests (-want +got):\n%s", diff)
	}
}

func TestBindTimeFormats(t *testing.T) {
	values := baseValues()
	values.Set("birthday", "1990-12-10")
	var dst registration
	if err := bind.New().Bind(&dst, values, nil); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if got := dst.Birthday.Format("2006-01-02"); got != "1990-12-10" {
		t.Fatalf("unexpected birthday %s", got)
	}
}

func TestBindEmptyOptionalNumberSkipped(t *testing.T) {
	values := baseValues()
	values.Set("age", "")
	dst := registration{Age: 42}
	if err := bind.New().Bind(&dst, values, nil); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if dst.Age != 42 {
		t.Fatalf("empty optional number overwrote value: %d", dst.Age)
	}
}

func TestBindSkipsWriteWhenUnchanged(t *testing.T) {
	var dst registration
	if err := bind.New().Bind(&dst, baseValues(), nil); err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if dst.usernameSets != 1 {
		t.Fatalf("expected one setter call, got %d", dst.usernameSets)
	}
	if err := bind.New().Bind(&dst, baseValues(), nil); err != nil {
		t.Fatalf("rebind failed: %v", err)
	}
	if dst.usernameSets != 1 {
		t.Fatalf("unchanged value written again: %d setter calls", dst.usernameSets)
	}
}

func TestBindFileUpload(t *testing.T) {
	header := &multipart.FileHeader{Filename: "avatar.png"}
	var dst registration
	err := bind.New().Bind(&dst, baseValues(), map[string][]*multipart.FileHeader{
		"avatar": {header},
	})
	if err != nil {
		t.Fatalf("bind failed: %v", err)
	}
	if dst.Avatar != header {
		t.Fatal("file handle not bound")
	}
}

func TestBindWarnsOnUnknownAndNonReceivable(t *testing.T) {
	var logBuf bytes.Buffer
	binder := bind.New(bind.WithLogger(slog.New(slog.NewTextHandler(&logBuf, nil))))

	values := baseValues()
	values.Set("bogus", "x")
	values.Set("karma", "999")
	values.Set("id", "42")
	var dst registration
	if err := binder.Bind(&dst, values, nil); err != nil {
		t.Fatalf("bind failed: %v", err)
	}

	logged := logBuf.String()
	if !strings.Contains(logged, "bogus") {
		t.Fatalf("unknown parameter not logged: %s", logged)
	}
	if !strings.Contains(logged, "karma") || !strings.Contains(logged, "id") {
		t.Fatalf("non-receivable parameters not logged: %s", logged)
	}
	if dst.Karma != 0 || dst.ID != "" {
		t.Fatalf("non-receivable field mutated: %+v", dst)
	}
}
