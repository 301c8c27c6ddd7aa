// Package escape provides the leaf text transforms used by the renderer:
// HTML text and attribute escaping, JSON string escaping, and URL segment
// percent encoding. All transforms are pure and append into a caller-owned
// builder so the renderer can keep a single output buffer per request.
//
// The escaping posture is deliberately liberal: characters that are only
// dangerous in some contexts (single quotes, backslashes) are escaped in
// every context rather than trusting the call site to pick the right
// variant.
package escape

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// TextOptions control HTML text escaping. The zero value collapses
// whitespace runs and leaves newlines as ordinary whitespace.
type TextOptions struct {
	// PreserveWhitespace keeps whitespace and control runs byte-for-byte
	// instead of collapsing them. Used inside <pre> subtrees.
	PreserveWhitespace bool
	// NewlineToBreak converts each newline in a collapsed run into a <br>
	// element. Only meaningful when PreserveWhitespace is false, and only
	// valid in text content, never in attribute values.
	NewlineToBreak bool
}

// Named entities for the characters that are always escaped, plus a small
// set of typographic characters that survive transport more reliably as
// entities than as raw UTF-8.
var htmlEntities = map[rune]string{
	'&':      "&amp;",
	'<':      "&lt;",
	'>':      "&gt;",
	'"':      "&quot;",
	'\'':     "&#39;",
	'\\':     "&#92;",
	'–': "&ndash;",
	'—': "&mdash;",
	'‘': "&lsquo;",
	'’': "&rsquo;",
	'“': "&ldquo;",
	'”': "&rdquo;",
	'«': "&laquo;",
	'»': "&raquo;",
	' ': "&nbsp;",
	'©': "&copy;",
	'®': "&reg;",
	'£': "&pound;",
}

func isCollapsible(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v' || (r < 0x20)
}

// HTMLText appends s to dst with HTML text-context escaping applied.
// Runs of whitespace and control characters collapse to a single space
// unless opts.PreserveWhitespace is set; with opts.NewlineToBreak each
// newline in a run becomes a <br> element instead.
func HTMLText(dst *bytes.Buffer, s string, opts TextOptions) {
	i := 0
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !opts.PreserveWhitespace && isCollapsible(r) {
			// Consume the whole run before deciding what to emit.
			breaks := 0
			for i < len(s) {
				r2, sz2 := utf8.DecodeRuneInString(s[i:])
				if !isCollapsible(r2) {
					break
				}
				if r2 == '\n' {
					breaks++
				}
				i += sz2
			}
			if opts.NewlineToBreak && breaks > 0 {
				for n := 0; n < breaks; n++ {
					dst.WriteString("<br>")
				}
			} else {
				dst.WriteByte(' ')
			}
			continue
		}
		if ent, ok := htmlEntities[r]; ok {
			dst.WriteString(ent)
		} else {
			dst.WriteString(s[i : i+size])
		}
		i += size
	}
}

// HTMLAttribute appends s to dst with HTML attribute-value escaping.
// The character set is identical to HTMLText; newlines never become
// break elements because attribute values are plain text slots.
func HTMLAttribute(dst *bytes.Buffer, s string) {
	HTMLText(dst, s, TextOptions{})
}

const hexDigits = "0123456789abcdef"

// JSONString appends s to dst escaped for inclusion inside a JSON string
// literal (without the surrounding quotes).
func JSONString(dst *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '\\':
			dst.WriteString(`\\`)
		case '"':
			dst.WriteString(`\"`)
		case '\b':
			dst.WriteString(`\b`)
		case '\t':
			dst.WriteString(`\t`)
		case '\n':
			dst.WriteString(`\n`)
		case '\f':
			dst.WriteString(`\f`)
		case '\r':
			dst.WriteString(`\r`)
		default:
			if r < 0x20 {
				dst.WriteString(`\u00`)
				dst.WriteByte(hexDigits[byte(r)>>4])
				dst.WriteByte(hexDigits[byte(r)&0xf])
			} else {
				dst.WriteRune(r)
			}
		}
	}
}

func isUnreservedURLByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '-' || b == '.' || b == '_' || b == '~':
		return true
	}
	return false
}

// URLSegment appends s to dst with percent encoding applied to every byte
// outside the unreserved set. Encoding operates on UTF-8 bytes, so a
// multi-byte character becomes one %XX triplet per byte.
func URLSegment(dst *bytes.Buffer, s string) {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if isUnreservedURLByte(b) {
			dst.WriteByte(b)
			continue
		}
		dst.WriteByte('%')
		dst.WriteByte(hexDigits[b>>4])
		dst.WriteByte(hexDigits[b&0xf])
	}
}

func hexVal(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}

// UnescapeURLSegment reverses URLSegment. Because the input arrives from
// untrusted clients, malformed escapes are dropped rather than reported:
// a truncated or non-hex %-sequence contributes nothing to the output.
func UnescapeURLSegment(s string) string {
	var dst strings.Builder
	dst.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] != '%' {
			dst.WriteByte(s[i])
			i++
			continue
		}
		if i+2 < len(s) {
			hi, okHi := hexVal(s[i+1])
			lo, okLo := hexVal(s[i+2])
			if okHi && okLo {
				dst.WriteByte(hi<<4 | lo)
				i += 3
				continue
			}
		}
		// Malformed or truncated escape: drop the '%' and continue.
		i++
	}
	return dst.String()
}
