package model

import (
	"errors"
	"fmt"
	"mime/multipart"
	"regexp"
	"time"
)

// Model is implemented by every application type that participates in
// template rendering, JSON export, or request binding. The descriptor is
// built once (typically in a package-level var) and shared by all
// instances of the type.
type Model interface {
	Descriptor() *Descriptor
}

// Kind classifies a field's native type for the resolver and binder.
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindChar
	KindTime
	KindStrings
	KindStringMap
	KindModel
	KindModelSlice
	KindRoute
	KindTrustedHTML
	KindUpload
)

// Tag is a bitmask of visibility and normalization markers on a field.
type Tag uint16

const (
	// TagPrivate fields are never sent to or received from the client.
	TagPrivate Tag = 1 << iota
	// TagSendOnly fields render but are never bound from client input.
	TagSendOnly
	// TagReceiveOnly fields bind from client input but never render back.
	TagReceiveOnly
	// TagIsURL forces the URL validation path for any attribute the field
	// value is substituted into, whitelisted or not.
	TagIsURL
	// TagNoTrim suppresses the binder's leading/trailing whitespace trim.
	TagNoTrim
	// TagNormalizeSpacing collapses interior whitespace runs when binding.
	TagNormalizeSpacing
)

// Field describes one bindable/renderable field of a model type. Get and
// Set are explicit accessors; the dynamic type each works with is fixed by
// Kind (string for KindString, int64 for KindInt, and so on).
type Field struct {
	Name       string
	Kind       Kind
	Tags       Tag
	Rules      []Rule
	Identifier bool

	Get func(Model) any
	Set func(Model, any)
}

// IsSendable reports whether the field may flow to the client, in template
// output or JSON export. Private fields, persisted identifiers, and
// receive-only fields never do; neither does a field without a getter.
func (f *Field) IsSendable() bool {
	if f.Get == nil || f.Identifier {
		return false
	}
	return f.Tags&(TagPrivate|TagReceiveOnly) == 0
}

// IsReceivable reports whether the field may be set from client input.
func (f *Field) IsReceivable() bool {
	if f.Set == nil || f.Identifier {
		return false
	}
	return f.Tags&(TagPrivate|TagSendOnly) == 0
}

// HasRule reports whether the field carries a rule of the given kind.
func (f *Field) HasRule(kind RuleKind) bool {
	for _, r := range f.Rules {
		if r.Kind == kind {
			return true
		}
	}
	return false
}

// Descriptor is the immutable field table for one model type. Construct
// with Describe; never mutate after registration.
type Descriptor struct {
	name   string
	fields []Field
	index  map[string]int
}

// Name returns the model type's registered name, which also selects its
// template by naming convention.
func (d *Descriptor) Name() string { return d.name }

// Fields returns the ordered field table. Callers must not mutate it.
func (d *Descriptor) Fields() []Field { return d.fields }

// Field looks a field up by its exact, case-sensitive name.
func (d *Descriptor) Field(name string) (*Field, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return &d.fields[i], true
}

// placeholder names share the identifier syntax of the template language.
var fieldNameRx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Builder assembles a Descriptor for model type T. Errors accumulate and
// surface from Build so call sites stay fluent.
type Builder[T Model] struct {
	d    *Descriptor
	errs []error
}

// Describe starts a descriptor for model type T under the given name.
func Describe[T Model](name string) *Builder[T] {
	b := &Builder[T]{d: &Descriptor{name: name, index: make(map[string]int)}}
	if name == "" {
		b.errs = append(b.errs, errors.New("model: descriptor name is required"))
	}
	return b
}

func (b *Builder[T]) add(f Field) *Builder[T] {
	if !fieldNameRx.MatchString(f.Name) {
		b.errs = append(b.errs, fmt.Errorf("model: %s: invalid field name %q", b.d.name, f.Name))
		return b
	}
	if _, exists := b.d.index[f.Name]; exists {
		b.errs = append(b.errs, fmt.Errorf("model: %s: duplicate field %q", b.d.name, f.Name))
		return b
	}
	if f.Tags&TagSendOnly != 0 && f.Tags&TagReceiveOnly != 0 {
		b.errs = append(b.errs, fmt.Errorf("model: %s.%s: SendOnly and ReceiveOnly are mutually exclusive", b.d.name, f.Name))
		return b
	}
	for _, r := range f.Rules {
		if r.err != nil {
			b.errs = append(b.errs, fmt.Errorf("model: %s.%s: %w", b.d.name, f.Name, r.err))
		}
	}
	b.d.index[f.Name] = len(b.d.fields)
	b.d.fields = append(b.d.fields, f)
	return b
}

// FieldOption customises a field during Describe.
type FieldOption func(*Field)

// Tags attaches visibility/normalization markers to the field.
func Tags(t Tag) FieldOption {
	return func(f *Field) { f.Tags |= t }
}

// Rules attaches binding constraints to the field.
func Rules(rules ...Rule) FieldOption {
	return func(f *Field) { f.Rules = append(f.Rules, rules...) }
}

func applyOptions(f *Field, opts []FieldOption) {
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
}

func wrapGet[T Model, V any](get func(T) V) func(Model) any {
	if get == nil {
		return nil
	}
	return func(m Model) any { return get(m.(T)) }
}

func wrapSet[T Model, V any](set func(T, V)) func(Model, any) {
	if set == nil {
		return nil
	}
	return func(m Model, v any) { set(m.(T), v.(V)) }
}

func addTyped[T Model, V any](b *Builder[T], name string, kind Kind, get func(T) V, set func(T, V), opts []FieldOption) *Builder[T] {
	f := Field{Name: name, Kind: kind, Get: wrapGet(get), Set: wrapSet(set)}
	applyOptions(&f, opts)
	return b.add(f)
}

// String declares a text field.
func (b *Builder[T]) String(name string, get func(T) string, set func(T, string), opts ...FieldOption) *Builder[T] {
	return addTyped(b, name, KindString, get, set, opts)
}

// Int declares an integer field.
func (b *Builder[T]) Int(name string, get func(T) int64, set func(T, int64), opts ...FieldOption) *Builder[T] {
	return addTyped(b, name, KindInt, get, set, opts)
}

// Float declares a floating-point field.
func (b *Builder[T]) Float(name string, get func(T) float64, set func(T, float64), opts ...FieldOption) *Builder[T] {
	return addTyped(b, name, KindFloat, get, set, opts)
}

// Bool declares a boolean field.
func (b *Builder[T]) Bool(name string, get func(T) bool, set func(T, bool), opts ...FieldOption) *Builder[T] {
	return addTyped(b, name, KindBool, get, set, opts)
}

// Char declares a single-character field.
func (b *Builder[T]) Char(name string, get func(T) rune, set func(T, rune), opts ...FieldOption) *Builder[T] {
	return addTyped(b, name, KindChar, get, set, opts)
}

// Time declares a timestamp field, rendered in RFC 3339 form.
func (b *Builder[T]) Time(name string, get func(T) time.Time, set func(T, time.Time), opts ...FieldOption) *Builder[T] {
	return addTyped(b, name, KindTime, get, set, opts)
}

// Strings declares an ordered scalar collection field. When binding, every
// submitted value under the field's name is collected in order.
func (b *Builder[T]) Strings(name string, get func(T) []string, set func(T, []string), opts ...FieldOption) *Builder[T] {
	return addTyped(b, name, KindStrings, get, set, opts)
}

// StringMap declares an associative field, serialized as a JSON object.
func (b *Builder[T]) StringMap(name string, get func(T) map[string]string, opts ...FieldOption) *Builder[T] {
	return addTyped[T, map[string]string](b, name, KindStringMap, get, nil, opts)
}

// ModelField declares a nested-model field. A form whose id names this
// field binds its inputs against the nested instance during rendering.
func (b *Builder[T]) ModelField(name string, get func(T) Model, opts ...FieldOption) *Builder[T] {
	return addTyped[T, Model](b, name, KindModel, get, nil, opts)
}

// Models declares an ordered collection of nested models, rendered in
// sequence.
func (b *Builder[T]) Models(name string, get func(T) []Model, opts ...FieldOption) *Builder[T] {
	return addTyped[T, []Model](b, name, KindModelSlice, get, nil, opts)
}

// Route declares a field holding a route identifier. Its substitution
// output is the route's canonical path, written without escaping since the
// path is server-derived.
func (b *Builder[T]) Route(name string, get func(T) string, opts ...FieldOption) *Builder[T] {
	return addTyped[T, string](b, name, KindRoute, get, nil, opts)
}

// TrustedHTML declares a rich-text field whose value is sanitized and then
// emitted as markup in text context instead of being entity-escaped.
func (b *Builder[T]) TrustedHTML(name string, get func(T) string, set func(T, string), opts ...FieldOption) *Builder[T] {
	return addTyped(b, name, KindTrustedHTML, get, set, opts)
}

// File declares a file-upload field. It is populated from multipart form
// data during binding and never renders.
func (b *Builder[T]) File(name string, get func(T) *multipart.FileHeader, set func(T, *multipart.FileHeader), opts ...FieldOption) *Builder[T] {
	return addTyped(b, name, KindUpload, get, set, opts)
}

// ID declares the persisted-record identifier. It is implicitly private:
// never rendered, never bound.
func (b *Builder[T]) ID(name string, get func(T) string) *Builder[T] {
	f := Field{Name: name, Kind: KindString, Identifier: true, Get: wrapGet(get)}
	return b.add(f)
}

// Build freezes and returns the descriptor, or the accumulated
// configuration errors.
func (b *Builder[T]) Build() (*Descriptor, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return b.d, nil
}

// MustBuild is Build for package-level vars; it panics on error.
func (b *Builder[T]) MustBuild() *Descriptor {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}
