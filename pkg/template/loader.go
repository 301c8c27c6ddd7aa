// Package template parses HTML source into an immutable node tree with
// pre-split ${name} placeholders, and statically validates each tree
// against the model descriptor it will render. Parsing and validation
// happen once at registration; failures are configuration errors, fatal
// before any request is served.
package template

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrUnterminatedPlaceholder reports a "${" without a closing brace.
var ErrUnterminatedPlaceholder = errors.New("template: unterminated placeholder")

// Template is one parsed, validated-once, process-lifetime template.
type Template struct {
	Name  string
	Roots []*Node
}

// Parse converts HTML source into a Template. Sources that open with a
// doctype or an <html> tag parse as full documents; anything else parses
// as a body fragment.
func Parse(name, source string) (*Template, error) {
	var parsed []*html.Node

	trimmed := strings.TrimSpace(source)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		doc, err := html.Parse(strings.NewReader(source))
		if err != nil {
			return nil, fmt.Errorf("template: parse %s: %w", name, err)
		}
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			parsed = append(parsed, c)
		}
	} else {
		ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
		frag, err := html.ParseFragment(strings.NewReader(source), ctx)
		if err != nil {
			return nil, fmt.Errorf("template: parse %s: %w", name, err)
		}
		parsed = frag
	}

	tmpl := &Template{Name: name}
	for _, n := range parsed {
		node, err := convert(n, false)
		if err != nil {
			return nil, fmt.Errorf("template: %s: %w", name, err)
		}
		if node != nil {
			tmpl.Roots = append(tmpl.Roots, node)
		}
	}
	return tmpl, nil
}

func convert(n *html.Node, rawParent bool) (*Node, error) {
	switch n.Type {
	case html.DoctypeNode:
		return &Node{Type: DoctypeNode, Raw: n.Data}, nil

	case html.CommentNode:
		return &Node{Type: CommentNode, Raw: n.Data}, nil

	case html.TextNode:
		if rawParent {
			return &Node{Type: RawDataNode, Raw: n.Data}, nil
		}
		segs, err := splitSegments(n.Data)
		if err != nil {
			return nil, err
		}
		return &Node{Type: TextNode, Segments: segs}, nil

	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		node := &Node{Type: ElementNode, Tag: tag, Void: IsVoidElement(tag)}
		for _, a := range n.Attr {
			segs, err := splitSegments(a.Val)
			if err != nil {
				return nil, fmt.Errorf("attribute %s on <%s>: %w", a.Key, tag, err)
			}
			node.Attrs = append(node.Attrs, Attr{Name: strings.ToLower(a.Key), Segments: segs})
		}
		_, raw := rawTextElements[tag]
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			child, err := convert(c, raw)
			if err != nil {
				return nil, err
			}
			if child != nil {
				node.Children = append(node.Children, child)
			}
		}
		return node, nil
	}
	return nil, nil
}

// splitSegments divides s at every ${name} marker. A "${" without its
// closing brace is a configuration error, never silently treated as
// literal text.
func splitSegments(s string) ([]Segment, error) {
	var segs []Segment
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			break
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnterminatedPlaceholder, s)
		}
		if start > 0 {
			segs = append(segs, Segment{Text: s[:start]})
		}
		segs = append(segs, Segment{Text: s[start+2 : start+end], Placeholder: true})
		s = s[start+end+1:]
	}
	if s != "" || len(segs) == 0 {
		segs = append(segs, Segment{Text: s})
	}
	return segs, nil
}
