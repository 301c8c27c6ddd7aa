package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-modelview/pkg/model"
	"github.com/goliatone/go-modelview/pkg/urlpolicy"
)

// ValidationError aggregates every defect found while cross-checking a
// template against its model descriptor. It is returned from Validate at
// registration time and is always fatal: a template that fails validation
// must never serve a request.
type ValidationError struct {
	Template string
	Model    string
	Issues   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("template %s does not validate against model %s:\n  %s",
		e.Template, e.Model, strings.Join(e.Issues, "\n  "))
}

// Elements inside which placeholders are forbidden entirely, attributes
// included. Script and style because substituted text would execute;
// applet and object because their parameters reach plugin code.
var forbiddenContainers = map[string]struct{}{
	"script": {}, "style": {}, "applet": {}, "object": {},
}

// Attributes with layout or descriptive semantics only, safe to carry
// substituted text.
var xssSafeAttributes = map[string]struct{}{
	"class": {}, "title": {}, "alt": {}, "placeholder": {}, "value": {},
	"label": {}, "width": {}, "height": {}, "size": {}, "rows": {},
	"cols": {}, "maxlength": {}, "min": {}, "max": {}, "step": {},
	"colspan": {}, "rowspan": {}, "span": {}, "start": {}, "tabindex": {},
	"lang": {}, "dir": {}, "datetime": {},
}

type validation struct {
	desc   *model.Descriptor
	policy *urlpolicy.Policy
	used   map[string]struct{}
	issues []string
}

// Validate cross-checks a parsed template against the descriptor of the
// model class that will render it. All defects are collected into a
// single *ValidationError so a bad template reports everything at once.
func Validate(t *Template, desc *model.Descriptor, policy *urlpolicy.Policy) error {
	v := &validation{
		desc:   desc,
		policy: policy,
		used:   make(map[string]struct{}),
	}
	for _, root := range t.Roots {
		v.walk(root, false)
	}
	v.checkCorrespondence()

	if len(v.issues) > 0 {
		return &ValidationError{Template: t.Name, Model: desc.Name(), Issues: v.issues}
	}
	return nil
}

func (v *validation) addf(format string, args ...any) {
	v.issues = append(v.issues, fmt.Sprintf(format, args...))
}

func (v *validation) walk(n *Node, inForbidden bool) {
	switch n.Type {
	case RawDataNode:
		if strings.Contains(n.Raw, "${") {
			v.addf("placeholder inside raw script/style content: %q", strings.TrimSpace(n.Raw))
		}

	case TextNode:
		for _, seg := range n.Segments {
			if !seg.Placeholder {
				continue
			}
			if inForbidden {
				v.addf("placeholder ${%s} inside a script/style/applet/object element", seg.Text)
				continue
			}
			v.checkField(seg.Text, "text content")
		}

	case ElementNode:
		forbidden := inForbidden
		if _, ok := forbiddenContainers[n.Tag]; ok {
			forbidden = true
		}
		for _, attr := range n.Attrs {
			v.checkAttr(n, attr, forbidden)
		}
		if n.Tag == "form" {
			v.checkFormID(n)
		}
		for _, c := range n.Children {
			v.walk(c, forbidden)
		}
	}
}

func (v *validation) checkAttr(n *Node, attr Attr, inForbidden bool) {
	hasPlaceholder := false
	for _, seg := range attr.Segments {
		if seg.Placeholder {
			hasPlaceholder = true
			break
		}
	}
	if !hasPlaceholder {
		return
	}
	if inForbidden {
		v.addf("placeholder in attribute %s of forbidden element <%s>", attr.Name, n.Tag)
		return
	}

	// Fatal contexts first: these attributes execute or redirect, so the
	// restriction wins even where the attribute is URL-typed.
	if attr.Name == "style" || attr.Name == "data" || attr.Name == "action" || strings.HasPrefix(attr.Name, "on") {
		v.addf("placeholder in unsafe attribute %s on <%s>", attr.Name, n.Tag)
		return
	}

	var fields []*model.Field
	for _, seg := range attr.Segments {
		if !seg.Placeholder {
			continue
		}
		if f := v.checkField(seg.Text, fmt.Sprintf("attribute %s on <%s>", attr.Name, n.Tag)); f != nil {
			fields = append(fields, f)
		}
	}

	if v.policy.IsURLAttribute(n.Tag, attr.Name) {
		return
	}
	for _, f := range fields {
		if f.Tags&model.TagIsURL != 0 {
			// An IsURL field forces the URL validation path for this
			// site, whitelisted or not.
			return
		}
	}
	if _, ok := xssSafeAttributes[attr.Name]; ok {
		return
	}
	if attr.Name == "id" || attr.Name == "name" {
		if len(attr.Segments) > 0 && !attr.Segments[0].Placeholder && attr.Segments[0].Text != "" {
			return
		}
		v.addf("placeholder in %s attribute on <%s> needs a non-empty literal prefix", attr.Name, n.Tag)
		return
	}
	if strings.Contains(n.Tag, "-") {
		// Custom element: attribute semantics are programmer-controlled.
		return
	}
	v.addf("placeholder in attribute %s on <%s> is not in a permitted context", attr.Name, n.Tag)
}

func (v *validation) checkField(name, site string) *model.Field {
	f, ok := v.desc.Field(name)
	if !ok {
		v.addf("placeholder ${%s} in %s does not name a field of %s", name, site, v.desc.Name())
		return nil
	}
	if !f.IsSendable() {
		v.addf("placeholder ${%s} in %s names a field that is not sendable", name, site)
		return nil
	}
	v.used[name] = struct{}{}
	return f
}

// checkFormID records a form whose id names a nested-model field; that
// field becomes the form's bound model at render time.
func (v *validation) checkFormID(n *Node) {
	id, ok := n.Attr("id")
	if !ok || id == "" {
		return
	}
	f, ok := v.desc.Field(id)
	if !ok {
		return
	}
	if f.Kind != model.KindModel {
		v.addf("form id %q names field %s.%s which is not a nested model", id, v.desc.Name(), id)
		return
	}
	if !f.IsSendable() {
		v.addf("form id %q names a field that is not sendable", id)
		return
	}
	v.used[id] = struct{}{}
}

// checkCorrespondence enforces the exact 1:1 rule: every sendable field
// must appear in the template and every discovered name must be a
// sendable field. Unused fields and dangling placeholders are both
// configuration defects.
func (v *validation) checkCorrespondence() {
	var unused []string
	for i := range v.desc.Fields() {
		f := &v.desc.Fields()[i]
		if !f.IsSendable() {
			continue
		}
		if _, ok := v.used[f.Name]; !ok {
			unused = append(unused, f.Name)
		}
	}
	sort.Strings(unused)
	for _, name := range unused {
		v.addf("sendable field %s.%s is never used by the template", v.desc.Name(), name)
	}
}
