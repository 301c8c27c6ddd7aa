package render

import (
	"fmt"
	"path"
	"strings"

	"github.com/goliatone/go-modelview/pkg/escape"
	"github.com/goliatone/go-modelview/pkg/model"
	"github.com/goliatone/go-modelview/pkg/template"
	"github.com/goliatone/go-modelview/pkg/urlpolicy"
)

// Attributes that may be written bare when their value is empty.
var booleanAttributes = map[string]struct{}{
	"checked": {}, "selected": {}, "disabled": {}, "readonly": {},
	"required": {}, "multiple": {}, "autofocus": {}, "novalidate": {},
}

// Input types whose value attribute is replaced with the bound field's
// textual value. Password is deliberately absent: it is never pre-filled.
var textualInputTypes = map[string]struct{}{
	"text": {}, "search": {}, "email": {}, "url": {}, "tel": {},
	"number": {}, "hidden": {}, "date": {}, "time": {},
	"datetime-local": {}, "month": {}, "week": {}, "color": {}, "range": {},
}

// prefill captures the attribute adjustments a bound form model imposes on
// one input or option element.
type prefill struct {
	value   *string
	checked *bool
}

// formPrefill computes the adjustment for an input/option element inside a
// form bound to a model. A nil result leaves the attribute set untouched.
func (st *renderState) formPrefill(n *template.Node, bound model.Model) (*prefill, error) {
	if bound == nil {
		return nil, nil
	}

	switch n.Tag {
	case "input":
		name, ok := n.Attr("name")
		if !ok || name == "" {
			return nil, nil
		}
		f, ok := bound.Descriptor().Field(name)
		if !ok || !f.IsSendable() {
			return nil, nil
		}
		typ, _ := n.Attr("type")
		if typ == "" {
			typ = "text"
		}
		switch typ {
		case "password":
			// Never reflected back, even for a sendable field.
			return nil, nil
		case "radio":
			text, err := st.boundFieldText(bound, f)
			if err != nil {
				return nil, err
			}
			optVal, _ := n.Attr("value")
			match := text == optVal
			return &prefill{checked: &match}, nil
		case "checkbox":
			text, err := st.boundFieldText(bound, f)
			if err != nil {
				return nil, err
			}
			match := text == "true"
			return &prefill{checked: &match}, nil
		default:
			if _, ok := textualInputTypes[typ]; !ok {
				return nil, nil
			}
			text, err := st.boundFieldText(bound, f)
			if err != nil {
				return nil, err
			}
			return &prefill{value: &text}, nil
		}

	case "option":
		if st.selectName == "" {
			return nil, nil
		}
		f, ok := bound.Descriptor().Field(st.selectName)
		if !ok || !f.IsSendable() {
			return nil, nil
		}
		text, err := st.boundFieldText(bound, f)
		if err != nil {
			return nil, err
		}
		optVal, ok := n.Attr("value")
		if !ok {
			optVal = optionText(n)
		}
		match := text == optVal
		return &prefill{checked: &match}, nil
	}
	return nil, nil
}

// optionText is the literal content of an <option> without a value
// attribute.
func optionText(n *template.Node) string {
	var text string
	for _, c := range n.Children {
		if c.Type != template.TextNode {
			continue
		}
		for _, seg := range c.Segments {
			if !seg.Placeholder {
				text += seg.Text
			}
		}
	}
	return strings.TrimSpace(text)
}

func (st *renderState) boundFieldText(bound model.Model, f *model.Field) (string, error) {
	v, err := st.r.resolver.Resolve(bound, f)
	if err != nil {
		return "", err
	}
	text, ok := model.ScalarText(v)
	if !ok {
		return "", fmt.Errorf("render: field %s.%s is not scalar, cannot pre-fill a control",
			bound.Descriptor().Name(), f.Name)
	}
	return text, nil
}

func (st *renderState) renderAttrs(n *template.Node, m, bound model.Model) error {
	adjust, err := st.formPrefill(n, bound)
	if err != nil {
		return err
	}

	checkedAttr := "checked"
	if n.Tag == "option" {
		checkedAttr = "selected"
	}
	hadValue := false

	for _, attr := range n.Attrs {
		if adjust != nil {
			if attr.Name == checkedAttr && adjust.checked != nil {
				continue
			}
			if attr.Name == "value" && adjust.value != nil {
				hadValue = true
				if err := st.writeAttr(n.Tag, attr.Name, *adjust.value, false); err != nil {
					return err
				}
				continue
			}
		}

		raw, forceURL, err := st.evalAttrValue(n, attr, m)
		if err != nil {
			return err
		}
		isURL := forceURL || st.r.policy.IsURLAttribute(n.Tag, attr.Name)
		if err := st.writeAttr(n.Tag, attr.Name, raw, isURL); err != nil {
			return err
		}
	}

	if adjust != nil {
		if adjust.value != nil && !hadValue {
			if err := st.writeAttr(n.Tag, "value", *adjust.value, false); err != nil {
				return err
			}
		}
		if adjust.checked != nil && *adjust.checked {
			st.buf.WriteByte(' ')
			st.buf.WriteString(checkedAttr)
		}
	}
	return nil
}

// evalAttrValue resolves an attribute's segments into the raw, unescaped
// value string. Only scalar-like values are legal here; a nested model or
// markup value in an attribute aborts the render.
func (st *renderState) evalAttrValue(n *template.Node, attr template.Attr, m model.Model) (string, bool, error) {
	var raw strings.Builder
	forceURL := false
	for _, seg := range attr.Segments {
		if !seg.Placeholder {
			raw.WriteString(seg.Text)
			continue
		}
		f, ok := m.Descriptor().Field(seg.Text)
		if !ok {
			return "", false, fmt.Errorf("render: placeholder ${%s} has no field on %s", seg.Text, m.Descriptor().Name())
		}
		if f.Tags&model.TagIsURL != 0 {
			forceURL = true
		}
		v, err := st.r.resolver.Resolve(m, f)
		if err != nil {
			return "", false, err
		}
		text, err := attrValueText(v, n.Tag, attr.Name)
		if err != nil {
			return "", false, err
		}
		raw.WriteString(text)
	}
	return raw.String(), forceURL, nil
}

func attrValueText(v model.Value, tag, attr string) (string, error) {
	if text, ok := model.ScalarText(v); ok {
		return text, nil
	}
	switch val := v.(type) {
	case model.ModelVal:
		return "", fmt.Errorf("%w: <%s %s>", ErrModelInAttribute, tag, attr)
	case model.HTMLVal:
		return "", fmt.Errorf("%w: <%s %s>", ErrMarkupInAttribute, tag, attr)
	case model.Mapping:
		return "", fmt.Errorf("%w: mapping in <%s %s>", ErrModelInAttribute, tag, attr)
	case model.Sequence:
		parts := make([]string, 0, len(val.Items))
		for _, item := range val.Items {
			text, ok := model.ScalarText(item)
			if !ok {
				return "", fmt.Errorf("%w: sequence element in <%s %s>", ErrModelInAttribute, tag, attr)
			}
			parts = append(parts, text)
		}
		return strings.Join(parts, " "), nil
	}
	return "", fmt.Errorf("render: unhandled attribute value %T", v)
}

// writeAttr emits one attribute. URL-typed attributes are validated and,
// when local with a known content hash, rewritten: the escaped value is
// written first, then truncated back and replaced by the hashed URL.
func (st *renderState) writeAttr(tag, name, raw string, isURL bool) error {
	if raw == "" {
		if _, ok := booleanAttributes[name]; ok {
			st.buf.WriteByte(' ')
			st.buf.WriteString(name)
			return nil
		}
	}

	st.buf.WriteByte(' ')
	st.buf.WriteString(name)
	st.buf.WriteString(`="`)

	if !isURL {
		escape.HTMLAttribute(&st.buf, raw)
		st.buf.WriteByte('"')
		return nil
	}

	parsed, err := urlpolicy.Validate(raw, tag, name)
	if err != nil {
		return err
	}

	mark := st.buf.Len()
	escape.HTMLAttribute(&st.buf, raw)

	if parsed.Local && st.r.hash != nil {
		lookup := raw
		if !strings.HasPrefix(lookup, "/") && st.opts.BaseURL != "" {
			lookup = path.Join(st.opts.BaseURL, lookup)
		}
		if entry, ok := st.r.hash.Lookup(lookup); ok {
			st.buf.Truncate(mark)
			escape.HTMLAttribute(&st.buf, entry.HashedURL)
		}
	}

	st.buf.WriteByte('"')
	return nil
}
