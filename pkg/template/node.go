package template

// NodeType discriminates the members of a parsed template tree.
type NodeType uint8

const (
	// ElementNode is a tag with attributes and children.
	ElementNode NodeType = iota
	// TextNode is character data, pre-split into placeholder segments.
	TextNode
	// CommentNode is an HTML comment, emitted only when pretty-printing
	// unless it is a legacy conditional comment.
	CommentNode
	// RawDataNode is the verbatim body of a script or style element.
	// Raw data is never placeholder-substituted.
	RawDataNode
	// DoctypeNode is the document type declaration.
	DoctypeNode
)

// Segment is one run of an attribute value or text node: either a literal
// or a ${name} placeholder.
type Segment struct {
	Text        string
	Placeholder bool
}

// Attr is one attribute with its value pre-split into segments.
type Attr struct {
	Name     string
	Segments []Segment
}

// Node is one node of an immutable template tree. After parsing, nodes
// are never mutated; any number of renders may read them concurrently.
type Node struct {
	Type     NodeType
	Tag      string
	Attrs    []Attr
	Segments []Segment
	Raw      string
	Children []*Node
	Void     bool
}

// Attr returns the joined literal text of the named attribute and whether
// the attribute exists. Placeholder segments contribute nothing.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			var text string
			for _, seg := range a.Segments {
				if !seg.Placeholder {
					text += seg.Text
				}
			}
			return text, true
		}
	}
	return "", false
}

// voidElements never hold children and never emit a closing tag.
var voidElements = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {},
	"img": {}, "input": {}, "link": {}, "meta": {}, "param": {},
	"source": {}, "track": {}, "wbr": {},
}

// rawTextElements carry uninterpreted character data bodies.
var rawTextElements = map[string]struct{}{
	"script": {}, "style": {},
}

// IsVoidElement reports whether tag is self-closing by specification.
func IsVoidElement(tag string) bool {
	_, ok := voidElements[tag]
	return ok
}
