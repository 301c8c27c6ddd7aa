// Package render walks a validated template tree with a model instance
// and produces the final HTML (or JSON) output. Rendering is pure CPU
// work over an in-memory buffer: no I/O, no blocking calls, no shared
// mutable state, so any number of renders may run concurrently as long as
// each owns its model instance.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-modelview/pkg/escape"
	"github.com/goliatone/go-modelview/pkg/hashcache"
	"github.com/goliatone/go-modelview/pkg/model"
	"github.com/goliatone/go-modelview/pkg/template"
	"github.com/goliatone/go-modelview/pkg/urlpolicy"
)

var (
	// ErrModelInAttribute reports a nested-model value substituted into
	// an attribute. Attribute values are plain text slots, never markup
	// slots, so this is always a programming defect.
	ErrModelInAttribute = errors.New("render: model value in attribute context")
	// ErrMarkupInAttribute reports a trusted-HTML value substituted into
	// an attribute.
	ErrMarkupInAttribute = errors.New("render: markup value in attribute context")
	// ErrNoNestedTemplate reports a nested model whose type has no
	// registered template.
	ErrNoNestedTemplate = errors.New("render: no template registered for nested model")
)

// Options carry the per-invocation render context. The zero value renders
// compact output with no CSRF injection.
type Options struct {
	// Pretty enables indented, human-readable output.
	Pretty bool
	// Indent is the per-level indent string when Pretty is set. Defaults
	// to two spaces.
	Indent string
	// BaseURL is the request's base path, used to resolve relative local
	// URLs before consulting the hash cache.
	BaseURL string
	// CSRFToken, when non-empty, is injected into every rendered form as
	// a hidden _csrf input.
	CSRFToken string
}

// CSRFFieldName is the hidden input name carrying the per-request token.
const CSRFFieldName = "_csrf"

// Renderer renders validated templates. Construct once with New and share
// freely; Renderer itself is stateless across renders.
type Renderer struct {
	templates func(modelName string) (*template.Template, bool)
	hash      hashcache.Lookup
	policy    *urlpolicy.Policy
	resolver  model.Resolver
	sanitizer *bluemonday.Policy
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithTemplates supplies the lookup used to find the template of a nested
// model by its descriptor name.
func WithTemplates(lookup func(modelName string) (*template.Template, bool)) Option {
	return func(r *Renderer) { r.templates = lookup }
}

// WithHashCache supplies the content-hash lookup for local URL rewriting.
func WithHashCache(lookup hashcache.Lookup) Option {
	return func(r *Renderer) { r.hash = lookup }
}

// WithURLPolicy overrides the URL attribute classification policy.
func WithURLPolicy(policy *urlpolicy.Policy) Option {
	return func(r *Renderer) { r.policy = policy }
}

// WithResolver overrides the parameter resolver, typically to install a
// route lookup.
func WithResolver(resolver model.Resolver) Option {
	return func(r *Renderer) { r.resolver = resolver }
}

// WithSanitizer overrides the policy applied to TrustedHTML field values.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(r *Renderer) {
		if policy != nil {
			r.sanitizer = policy
		}
	}
}

// New constructs a Renderer with the given options.
func New(options ...Option) *Renderer {
	r := &Renderer{
		policy:    urlpolicy.New(),
		sanitizer: bluemonday.UGCPolicy(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// HTML renders tmpl with m and returns the completed buffer. Any error
// aborts the whole render; partially escaped output is never returned.
func (r *Renderer) HTML(tmpl *template.Template, m model.Model, opts Options) ([]byte, error) {
	if opts.Indent == "" {
		opts.Indent = "  "
	}
	st := &renderState{r: r, opts: opts}
	if err := st.renderNodes(tmpl.Roots, m, nil); err != nil {
		return nil, err
	}
	return st.buf.Bytes(), nil
}

type renderState struct {
	r    *Renderer
	opts Options
	buf  bytes.Buffer
	// depth is the current pretty-print indent level.
	depth int
	// pre counts enclosing <pre> elements; normalization and indentation
	// are suspended while it is positive.
	pre int
	// selectName is the name of the nearest enclosing <select>, consulted
	// by option elements for value matching.
	selectName string
}

func (st *renderState) indent() {
	if !st.opts.Pretty || st.pre > 0 {
		return
	}
	if st.buf.Len() > 0 {
		st.buf.WriteByte('\n')
	}
	for i := 0; i < st.depth; i++ {
		st.buf.WriteString(st.opts.Indent)
	}
}

func (st *renderState) renderNodes(nodes []*template.Node, m, bound model.Model) error {
	for _, n := range nodes {
		if err := st.renderNode(n, m, bound); err != nil {
			return err
		}
	}
	return nil
}

func isConditionalComment(raw string) bool {
	return strings.Contains(raw, "[if ") || strings.Contains(raw, "[endif]")
}

func (st *renderState) renderNode(n *template.Node, m, bound model.Model) error {
	switch n.Type {
	case template.DoctypeNode:
		st.buf.WriteString("<!DOCTYPE ")
		st.buf.WriteString(n.Raw)
		st.buf.WriteByte('>')
		return nil

	case template.CommentNode:
		if !st.opts.Pretty && !isConditionalComment(n.Raw) {
			return nil
		}
		st.indent()
		st.buf.WriteString("<!--")
		st.buf.WriteString(n.Raw)
		st.buf.WriteString("-->")
		return nil

	case template.RawDataNode:
		st.renderRawData(n.Raw)
		return nil

	case template.TextNode:
		return st.renderText(n, m)

	case template.ElementNode:
		return st.renderElement(n, m, bound)
	}
	return nil
}

// renderRawData passes script/style bodies through verbatim, re-indenting
// line by line only when pretty-printing.
func (st *renderState) renderRawData(raw string) {
	if !st.opts.Pretty {
		st.buf.WriteString(raw)
		return
	}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		st.indent()
		st.buf.WriteString(line)
	}
}

func (st *renderState) renderText(n *template.Node, m model.Model) error {
	for _, seg := range n.Segments {
		if !seg.Placeholder {
			if st.opts.Pretty && st.pre == 0 && strings.TrimSpace(seg.Text) == "" {
				continue
			}
			escape.HTMLText(&st.buf, seg.Text, escape.TextOptions{PreserveWhitespace: st.pre > 0})
			continue
		}
		f, ok := m.Descriptor().Field(seg.Text)
		if !ok {
			// Static validation guarantees the field exists; reaching
			// this means the template was never validated.
			return fmt.Errorf("render: placeholder ${%s} has no field on %s", seg.Text, m.Descriptor().Name())
		}
		v, err := st.r.resolver.Resolve(m, f)
		if err != nil {
			return err
		}
		if err := st.writeTextValue(v); err != nil {
			return err
		}
	}
	return nil
}

// writeTextValue emits a resolved value in text content.
func (st *renderState) writeTextValue(v model.Value) error {
	switch val := v.(type) {
	case model.Null:
		return nil
	case model.Scalar:
		st.buf.WriteString(val.Literal)
		return nil
	case model.Text:
		escape.HTMLText(&st.buf, val.S, escape.TextOptions{
			PreserveWhitespace: st.pre > 0,
			NewlineToBreak:     st.pre == 0,
		})
		return nil
	case model.RouteVal:
		// Server-derived path, trusted and written unescaped.
		st.buf.WriteString(val.Path)
		return nil
	case model.HTMLVal:
		st.buf.WriteString(st.r.sanitizer.Sanitize(val.Markup))
		return nil
	case model.Mapping:
		// An associative value in markup renders as its JSON object
		// form, escaped like any other text.
		var js bytes.Buffer
		if err := writeJSONValue(&js, val, st.r.resolver, false, 0); err != nil {
			return err
		}
		escape.HTMLText(&st.buf, js.String(), escape.TextOptions{PreserveWhitespace: st.pre > 0})
		return nil
	case model.Sequence:
		for i, item := range val.Items {
			if mv, ok := item.(model.ModelVal); ok {
				if err := st.renderNested(mv.M); err != nil {
					return err
				}
				continue
			}
			if i > 0 {
				// Keep adjacent scalar values from concatenating.
				st.buf.WriteByte(' ')
			}
			if err := st.writeTextValue(item); err != nil {
				return err
			}
		}
		return nil
	case model.ModelVal:
		return st.renderNested(val.M)
	}
	return fmt.Errorf("render: unhandled value %T", v)
}

// renderNested recurses into the template registered for a nested model.
func (st *renderState) renderNested(m model.Model) error {
	name := m.Descriptor().Name()
	if st.r.templates == nil {
		return fmt.Errorf("%w: %s", ErrNoNestedTemplate, name)
	}
	tmpl, ok := st.r.templates(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoNestedTemplate, name)
	}
	return st.renderNodes(tmpl.Roots, m, nil)
}

func (st *renderState) renderElement(n *template.Node, m, bound model.Model) error {
	childBound := bound
	if n.Tag == "form" {
		if fm := st.formModel(n, m); fm != nil {
			childBound = fm
		}
	}

	st.indent()
	st.buf.WriteByte('<')
	st.buf.WriteString(n.Tag)

	if err := st.renderAttrs(n, m, bound); err != nil {
		return err
	}
	st.buf.WriteByte('>')

	if n.Void {
		return nil
	}

	prevSelect := st.selectName
	if n.Tag == "select" {
		if name, ok := n.Attr("name"); ok {
			st.selectName = name
		}
	}
	if n.Tag == "pre" {
		st.pre++
	}

	st.depth++
	err := st.renderNodes(n.Children, m, childBound)
	st.depth--

	if n.Tag == "pre" {
		st.pre--
	}
	st.selectName = prevSelect
	if err != nil {
		return err
	}

	if n.Tag == "form" && st.opts.CSRFToken != "" {
		st.indent()
		st.buf.WriteString(`<input type="hidden" name="` + CSRFFieldName + `" value="`)
		escape.HTMLAttribute(&st.buf, st.opts.CSRFToken)
		st.buf.WriteString(`">`)
	}

	if hasElementChildren(n) {
		st.indent()
	}
	st.buf.WriteString("</")
	st.buf.WriteString(n.Tag)
	st.buf.WriteByte('>')
	return nil
}

func hasElementChildren(n *template.Node) bool {
	for _, c := range n.Children {
		if c.Type == template.ElementNode || c.Type == template.CommentNode || c.Type == template.RawDataNode {
			return true
		}
	}
	return false
}

// formModel returns the nested model bound to a form element, if its id
// names a sendable nested-model field of m.
func (st *renderState) formModel(n *template.Node, m model.Model) model.Model {
	id, ok := n.Attr("id")
	if !ok || id == "" {
		return nil
	}
	f, ok := m.Descriptor().Field(id)
	if !ok || f.Kind != model.KindModel || !f.IsSendable() {
		return nil
	}
	nested, _ := f.Get(m).(model.Model)
	return nested
}
