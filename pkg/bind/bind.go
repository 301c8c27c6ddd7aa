// Package bind populates model instances from submitted form data. It
// consults the same field visibility predicates as rendering and JSON
// export, so a field the client never sees is also a field the client can
// never set.
package bind

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/goliatone/go-modelview/pkg/model"
)

// FieldError reports one constraint or parse failure on a submitted value.
// It is always client fault, never a server defect.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("bind: %s: %s", e.Field, e.Message)
}

// Errors collects every field failure from one Bind call, so a form can be
// redisplayed with all problems at once.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return strings.Join(parts, "; ")
}

// ByField indexes the failures by field name for template redisplay.
func (e Errors) ByField() map[string]string {
	out := make(map[string]string, len(e))
	for _, fe := range e {
		if _, seen := out[fe.Field]; !seen {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger routes unknown-parameter warnings to the given logger.
func WithLogger(log *slog.Logger) Option {
	return func(b *Binder) {
		if log != nil {
			b.log = log
		}
	}
}

// Binder populates receivable model fields from form submissions. The zero
// configuration from New is ready to use and safe for concurrent Bind
// calls; each call must own its destination model.
type Binder struct {
	log *slog.Logger
}

func New(options ...Option) *Binder {
	b := &Binder{log: slog.Default()}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// Bind fills dst's receivable fields from the parameter multimap and the
// optional multipart file handles. Unknown parameter names are logged and
// ignored. A non-nil error is always an Errors value describing every
// failed field; dst may be partially populated when binding fails.
func (b *Binder) Bind(dst model.Model, values url.Values, files map[string][]*multipart.FileHeader) error {
	desc := dst.Descriptor()
	b.warnUnknown(desc, values, files)

	var errs Errors
	fields := desc.Fields()
	for i := range fields {
		f := &fields[i]
		if !f.IsReceivable() {
			continue
		}
		if f.Kind == model.KindUpload {
			if err := bindUpload(dst, f, files[f.Name]); err != nil {
				errs = append(errs, *err)
			}
			continue
		}
		if err := b.bindField(dst, f, values); err != nil {
			errs = append(errs, *err)
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (b *Binder) warnUnknown(desc *model.Descriptor, values url.Values, files map[string][]*multipart.FileHeader) {
	for name := range values {
		f, ok := desc.Field(name)
		switch {
		case !ok:
			b.log.Warn("ignoring unknown form parameter",
				slog.String("model", desc.Name()), slog.String("param", name))
		case !f.IsReceivable():
			b.log.Warn("ignoring parameter for non-receivable field",
				slog.String("model", desc.Name()), slog.String("param", name))
		}
	}
	for name := range files {
		f, ok := desc.Field(name)
		if !ok || f.Kind != model.KindUpload || !f.IsReceivable() {
			b.log.Warn("ignoring unexpected file upload",
				slog.String("model", desc.Name()), slog.String("param", name))
		}
	}
}

func bindUpload(dst model.Model, f *model.Field, handles []*multipart.FileHeader) *FieldError {
	if len(handles) == 0 {
		if f.HasRule(model.RuleRequired) {
			return &FieldError{Field: f.Name, Message: "is required"}
		}
		return nil
	}
	assign(dst, f, handles[0])
	return nil
}

func (b *Binder) bindField(dst model.Model, f *model.Field, values url.Values) *FieldError {
	submitted, present := values[f.Name]

	// Unchecked checkboxes never reach the server, so an absent boolean
	// parameter means false rather than "leave as-is".
	if !present && f.Kind == model.KindBool {
		assign(dst, f, false)
		return nil
	}
	if !present {
		if f.HasRule(model.RuleRequired) {
			return &FieldError{Field: f.Name, Message: "is required"}
		}
		return nil
	}

	if f.Kind == model.KindStrings {
		normalized := make([]string, 0, len(submitted))
		for _, s := range submitted {
			s = normalize(f, s)
			if msg := checkText(f, s); msg != "" {
				return &FieldError{Field: f.Name, Message: msg}
			}
			normalized = append(normalized, s)
		}
		assign(dst, f, normalized)
		return nil
	}

	text := normalize(f, submitted[0])
	if text == "" && f.HasRule(model.RuleRequired) {
		return &FieldError{Field: f.Name, Message: "is required"}
	}
	if text == "" {
		switch f.Kind {
		case model.KindInt, model.KindFloat, model.KindChar, model.KindTime:
			// An empty optional control means "no value", not a parse error.
			return nil
		}
	}
	if msg := checkText(f, text); msg != "" {
		return &FieldError{Field: f.Name, Message: msg}
	}

	parsed, msg := parseScalar(f, text)
	if msg != "" {
		return &FieldError{Field: f.Name, Message: msg}
	}
	if msg := checkNumber(f, parsed); msg != "" {
		return &FieldError{Field: f.Name, Message: msg}
	}
	assign(dst, f, parsed)
	return nil
}

// normalize applies the field's textual normalization markers: trimming
// unless NoTrim, interior whitespace collapsing under NormalizeSpacing,
// and lowercasing for email-ruled fields.
func normalize(f *model.Field, s string) string {
	if f.Tags&model.TagNoTrim == 0 {
		s = strings.TrimSpace(s)
	}
	if f.Tags&model.TagNormalizeSpacing != 0 {
		s = collapseSpacing(s)
	}
	if f.HasRule(model.RuleEmail) {
		s = strings.ToLower(s)
	}
	return s
}

func collapseSpacing(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	inRun := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inRun {
				out.WriteByte(' ')
				inRun = true
			}
			continue
		}
		inRun = false
		out.WriteRune(r)
	}
	return out.String()
}

func checkText(f *model.Field, s string) string {
	for _, r := range f.Rules {
		if err := r.CheckText(s); err != nil {
			return err.Error()
		}
	}
	return ""
}

func checkNumber(f *model.Field, v any) string {
	var n float64
	switch x := v.(type) {
	case int64:
		n = float64(x)
	case float64:
		n = x
	default:
		return ""
	}
	for _, r := range f.Rules {
		if err := r.CheckNumber(n); err != nil {
			return err.Error()
		}
	}
	return ""
}

// timeFormats covers RFC 3339 plus the literal shapes of HTML date,
// datetime-local and time controls.
var timeFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02",
	"15:04",
}

func parseScalar(f *model.Field, text string) (any, string) {
	switch f.Kind {
	case model.KindString, model.KindTrustedHTML:
		return text, ""
	case model.KindInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, "must be an integer"
		}
		return n, ""
	case model.KindFloat:
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, "must be a number"
		}
		return n, ""
	case model.KindBool:
		switch text {
		case "on", "true", "1":
			return true, ""
		case "", "off", "false", "0":
			return false, ""
		}
		return nil, "must be a boolean"
	case model.KindChar:
		r, size := utf8.DecodeRuneInString(text)
		if size == 0 || size != len(text) || r == utf8.RuneError {
			return nil, "must be a single character"
		}
		return r, ""
	case model.KindTime:
		for _, layout := range timeFormats {
			if t, err := time.Parse(layout, text); err == nil {
				return t, ""
			}
		}
		return nil, "must be a valid date or time"
	}
	return nil, "cannot be set from client input"
}

// assign writes the parsed value through the field's setter, skipping the
// write when the model already holds an equal value.
func assign(dst model.Model, f *model.Field, v any) {
	if f.Get != nil && valuesEqual(f.Get(dst), v) {
		return
	}
	f.Set(dst, v)
}

func valuesEqual(a, b any) bool {
	switch x := a.(type) {
	case []string:
		y, ok := b.([]string)
		return ok && slices.Equal(x, y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case *multipart.FileHeader:
		y, ok := b.(*multipart.FileHeader)
		return ok && x == y
	}
	return a == b
}
