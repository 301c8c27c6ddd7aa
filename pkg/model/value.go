package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Value is the closed variant a field's native value is converted into
// before rendering or serialization. The renderer and the JSON serializer
// switch exhaustively over the concrete types below; there is no
// open-ended dynamic dispatch over arbitrary application types.
type Value interface {
	isValue()
}

// Null is the absence of output: a nil nested model, or a field withheld
// by the visibility policy.
type Null struct{}

// Scalar is a value whose canonical text form is already a valid JSON
// literal token (integers, floats, booleans). It needs no escaping in any
// output context.
type Scalar struct {
	Literal string
}

// Text is a string value that must be escaped for whatever context it is
// written into.
type Text struct {
	S string
}

// Sequence is an ordered collection of values.
type Sequence struct {
	Items []Value
}

// Mapping is an ordered set of key/value pairs, serialized as a JSON
// object. Keys are sorted at resolution time so output is deterministic.
type Mapping struct {
	Pairs []Pair
}

// Pair is one Mapping entry.
type Pair struct {
	Key string
	Val Value
}

// ModelVal wraps a nested model instance, rendered by recursing into its
// own template or serialized recursively to JSON.
type ModelVal struct {
	M Model
}

// RouteVal is a resolved route path. It is server-derived and written
// without escaping.
type RouteVal struct {
	Path string
}

// HTMLVal is pre-authored markup from a TrustedHTML field. The renderer
// sanitizes it before emission; it is only legal in text content.
type HTMLVal struct {
	Markup string
}

func (Null) isValue()     {}
func (Scalar) isValue()   {}
func (Text) isValue()     {}
func (Sequence) isValue() {}
func (Mapping) isValue()  {}
func (ModelVal) isValue() {}
func (RouteVal) isValue() {}
func (HTMLVal) isValue()  {}

// ErrUnknownRoute reports a route-reference field naming a route the
// resolver does not know. Always a configuration defect.
var ErrUnknownRoute = errors.New("model: unknown route reference")

// Resolver converts a model field's native value into the Value variant.
// The zero value works for models without route-reference fields.
type Resolver struct {
	// Routes maps a route identifier to its canonical path. Required only
	// when descriptors declare Route fields.
	Routes func(name string) (string, bool)
}

// Resolve looks up and converts the field's current value. A field the
// visibility policy withholds resolves to Null rather than an error so
// private data never leaks, even into error messages.
func (r Resolver) Resolve(m Model, f *Field) (Value, error) {
	if !f.IsSendable() {
		return Null{}, nil
	}

	switch f.Kind {
	case KindString:
		return Text{S: f.Get(m).(string)}, nil
	case KindChar:
		return Text{S: string(f.Get(m).(rune))}, nil
	case KindInt:
		return Scalar{Literal: strconv.FormatInt(f.Get(m).(int64), 10)}, nil
	case KindFloat:
		return Scalar{Literal: strconv.FormatFloat(f.Get(m).(float64), 'g', -1, 64)}, nil
	case KindBool:
		return Scalar{Literal: strconv.FormatBool(f.Get(m).(bool))}, nil
	case KindTime:
		return Text{S: f.Get(m).(time.Time).Format(time.RFC3339)}, nil
	case KindStrings:
		items := f.Get(m).([]string)
		seq := Sequence{Items: make([]Value, 0, len(items))}
		for _, s := range items {
			seq.Items = append(seq.Items, Text{S: s})
		}
		return seq, nil
	case KindStringMap:
		entries := f.Get(m).(map[string]string)
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		mp := Mapping{Pairs: make([]Pair, 0, len(keys))}
		for _, k := range keys {
			mp.Pairs = append(mp.Pairs, Pair{Key: k, Val: Text{S: entries[k]}})
		}
		return mp, nil
	case KindModel:
		nested, _ := f.Get(m).(Model)
		if nested == nil {
			return Null{}, nil
		}
		return ModelVal{M: nested}, nil
	case KindModelSlice:
		items, _ := f.Get(m).([]Model)
		seq := Sequence{Items: make([]Value, 0, len(items))}
		for _, item := range items {
			if item == nil {
				continue
			}
			seq.Items = append(seq.Items, ModelVal{M: item})
		}
		return seq, nil
	case KindRoute:
		name := f.Get(m).(string)
		if r.Routes == nil {
			return Null{}, fmt.Errorf("%w: %q (no route resolver configured)", ErrUnknownRoute, name)
		}
		path, ok := r.Routes(name)
		if !ok {
			return Null{}, fmt.Errorf("%w: %q", ErrUnknownRoute, name)
		}
		return RouteVal{Path: path}, nil
	case KindTrustedHTML:
		return HTMLVal{Markup: f.Get(m).(string)}, nil
	case KindUpload:
		return Null{}, nil
	}
	return Null{}, fmt.Errorf("model: %s: unhandled field kind %d", f.Name, f.Kind)
}

// ScalarText returns the plain-text form of a resolved scalar-like value
// and reports whether v is scalar-like at all. Model, sequence-of-model,
// and HTML values return false.
func ScalarText(v Value) (string, bool) {
	switch val := v.(type) {
	case Scalar:
		return val.Literal, true
	case Text:
		return val.S, true
	case RouteVal:
		return val.Path, true
	case Null:
		return "", true
	}
	return "", false
}
