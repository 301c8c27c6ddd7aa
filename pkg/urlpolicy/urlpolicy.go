// Package urlpolicy decides which tag/attribute pairs carry URLs and
// enforces the scheme policy for values substituted into them. Rendering a
// URL that fails validation is always treated as a programming defect, so
// every rejection here surfaces as an error rather than a degraded value.
package urlpolicy

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrForbiddenCharacter rejects URLs containing bytes outside the
	// printable-ASCII set or any of < > ' " \.
	ErrForbiddenCharacter = errors.New("urlpolicy: forbidden character in URL")
	// ErrMalformed rejects strings that do not parse as a generic URI.
	ErrMalformed = errors.New("urlpolicy: malformed URL")
	// ErrUnsafeScheme rejects javascript, data, mhtml and file URLs.
	ErrUnsafeScheme = errors.New("urlpolicy: unsafe URL scheme")
	// ErrSchemeContext rejects mailto/tel URLs outside an <a href> site.
	ErrSchemeContext = errors.New("urlpolicy: scheme not allowed in this attribute")
	// ErrUnknownScheme rejects any remaining scheme that is not http(s).
	ErrUnknownScheme = errors.New("urlpolicy: scheme must be http or https")
)

// urlAttributes is the fixed whitelist of tag/attribute pairs the HTML
// specification defines as URL-valued.
var urlAttributes = map[string]struct{}{
	"a.href":            {},
	"area.href":         {},
	"base.href":         {},
	"link.href":         {},
	"img.src":           {},
	"iframe.src":        {},
	"embed.src":         {},
	"audio.src":         {},
	"video.src":         {},
	"source.src":        {},
	"track.src":         {},
	"input.src":         {},
	"script.src":        {},
	"img.srcset":        {},
	"source.srcset":     {},
	"form.action":       {},
	"input.formaction":  {},
	"button.formaction": {},
	"blockquote.cite":   {},
	"q.cite":            {},
	"ins.cite":          {},
	"del.cite":          {},
	"object.data":       {},
	"video.poster":      {},
	"html.manifest":     {},
}

// Policy answers URL-attribute classification queries. The zero value is
// not usable; construct with New.
type Policy struct {
	extra map[string]struct{}
}

// New builds a Policy. Custom tag/attribute pairs (for component tags the
// fixed whitelist cannot know about) are given as "tag.attr" strings.
func New(extraAttributes ...string) *Policy {
	p := &Policy{extra: make(map[string]struct{}, len(extraAttributes))}
	for _, pair := range extraAttributes {
		pair = strings.ToLower(strings.TrimSpace(pair))
		if pair == "" || !strings.Contains(pair, ".") {
			continue
		}
		p.extra[pair] = struct{}{}
	}
	return p
}

// IsURLAttribute reports whether attr on tag is URL-valued, either per the
// HTML specification or per configuration-time extensions.
func (p *Policy) IsURLAttribute(tag, attr string) bool {
	key := strings.ToLower(tag) + "." + strings.ToLower(attr)
	if _, ok := urlAttributes[key]; ok {
		return true
	}
	if p == nil {
		return false
	}
	_, ok := p.extra[key]
	return ok
}

// ParsedURL is the result of a successful validation.
type ParsedURL struct {
	URL *url.URL
	// Local is true when the URL has neither scheme nor host and is
	// therefore eligible for hash-cache rewriting.
	Local bool
}

func forbiddenByte(b byte) bool {
	if b < 0x20 || b > 0x7e {
		return true
	}
	switch b {
	case '<', '>', '\'', '"', '\\':
		return true
	}
	return false
}

// Validate parses and polices a candidate URL destined for attr on tag.
// tag and attr identify the substitution site and gate the mailto/tel
// exception. Any error means the enclosing render must abort.
func Validate(raw, tag, attr string) (ParsedURL, error) {
	for i := 0; i < len(raw); i++ {
		if forbiddenByte(raw[i]) {
			return ParsedURL{}, fmt.Errorf("%w: %q", ErrForbiddenCharacter, raw)
		}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ParsedURL{}, fmt.Errorf("%w: %q: %v", ErrMalformed, raw, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "javascript", "data", "mhtml", "file":
		return ParsedURL{}, fmt.Errorf("%w: %q", ErrUnsafeScheme, raw)
	case "mailto", "tel":
		if !strings.EqualFold(tag, "a") || !strings.EqualFold(attr, "href") {
			return ParsedURL{}, fmt.Errorf("%w: %s URL in <%s %s>", ErrSchemeContext, scheme, tag, attr)
		}
		return ParsedURL{URL: parsed}, nil
	case "http", "https":
		return ParsedURL{URL: parsed}, nil
	case "":
		if parsed.Host == "" {
			return ParsedURL{URL: parsed, Local: true}, nil
		}
		// Protocol-relative URL (//host/path): treated as external.
		return ParsedURL{URL: parsed}, nil
	default:
		return ParsedURL{}, fmt.Errorf("%w: got %q in %q", ErrUnknownScheme, scheme, raw)
	}
}
