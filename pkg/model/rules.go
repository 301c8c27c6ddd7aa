package model

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// RuleKind identifies a binding constraint. Rules are evaluated only when
// a field is populated from client input, never when rendering.
type RuleKind uint8

const (
	RuleRequired RuleKind = iota
	RuleMinLength
	RuleMaxLength
	RuleRegex
	RuleEmail
	RuleMinValue
	RuleMaxValue
)

func (k RuleKind) String() string {
	switch k {
	case RuleRequired:
		return "required"
	case RuleMinLength:
		return "minLength"
	case RuleMaxLength:
		return "maxLength"
	case RuleRegex:
		return "regex"
	case RuleEmail:
		return "email"
	case RuleMinValue:
		return "minValue"
	case RuleMaxValue:
		return "maxValue"
	}
	return "unknown"
}

// Rule is one constraint on a field's bound value. Construct rules with
// the package functions below; a malformed rule (bad regex) is carried as
// an error and rejected when the descriptor is built, so the defect is
// fatal at startup rather than at request time.
type Rule struct {
	Kind    RuleKind
	Length  int
	Bound   float64
	Pattern *regexp.Regexp

	err error
}

// Required fails binding when the parameter is absent or empty.
func Required() Rule { return Rule{Kind: RuleRequired} }

// MinLength constrains the bound text to at least n characters.
func MinLength(n int) Rule { return Rule{Kind: RuleMinLength, Length: n} }

// MaxLength constrains the bound text to at most n characters.
func MaxLength(n int) Rule { return Rule{Kind: RuleMaxLength, Length: n} }

// Regex constrains the bound text to match the anchored pattern.
func Regex(pattern string) Rule {
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{Kind: RuleRegex, err: fmt.Errorf("invalid regex rule %q: %w", pattern, err)}
	}
	return Rule{Kind: RuleRegex, Pattern: rx}
}

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Email constrains the bound text to an email shape. The binder also
// lowercases values bound through an email-ruled field so addresses
// compare canonically.
func Email() Rule { return Rule{Kind: RuleEmail} }

// MinValue constrains a numeric field's bound value from below.
func MinValue(bound float64) Rule { return Rule{Kind: RuleMinValue, Bound: bound} }

// MaxValue constrains a numeric field's bound value from above.
func MaxValue(bound float64) Rule { return Rule{Kind: RuleMaxValue, Bound: bound} }

// CheckText evaluates the rule against a bound textual value. Numeric
// bound rules are ignored here; they apply through CheckNumber once the
// binder has parsed the literal.
func (r Rule) CheckText(s string) error {
	switch r.Kind {
	case RuleMinLength:
		if utf8.RuneCountInString(s) < r.Length {
			return fmt.Errorf("must be at least %d characters", r.Length)
		}
	case RuleMaxLength:
		if utf8.RuneCountInString(s) > r.Length {
			return fmt.Errorf("must be at most %d characters", r.Length)
		}
	case RuleRegex:
		if r.Pattern != nil && !r.Pattern.MatchString(s) {
			return fmt.Errorf("must match pattern %s", r.Pattern)
		}
	case RuleEmail:
		if !emailRx.MatchString(s) {
			return fmt.Errorf("must be a valid email address")
		}
	}
	return nil
}

// CheckNumber evaluates numeric bound rules against a parsed value.
func (r Rule) CheckNumber(v float64) error {
	switch r.Kind {
	case RuleMinValue:
		if v < r.Bound {
			return fmt.Errorf("must be at least %v", r.Bound)
		}
	case RuleMaxValue:
		if v > r.Bound {
			return fmt.Errorf("must be at most %v", r.Bound)
		}
	}
	return nil
}
