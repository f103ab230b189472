// Package pattern compiles the search expression and the filename filter.
//
// The search expression is matched with "find anywhere" semantics: a line,
// name or literal matches when any substring of it matches the expression.
package pattern

import (
	"fmt"
	"regexp"
)

// Matcher reports whether a string contains a match.
type Matcher interface {
	MatchString(s string) bool
}

// Options controls how an expression is compiled.
type Options struct {
	// Literal treats the expression as a fixed string (-F)
	Literal bool
	// IgnoreCase enables case-insensitive matching (-i)
	IgnoreCase bool
}

// Regexp is the compiled search expression.
type Regexp struct {
	expr string
	re   *regexp.Regexp
}

// Compile compiles expr according to opts.
func Compile(expr string, opts Options) (*Regexp, error) {
	source := expr
	if opts.Literal {
		source = regexp.QuoteMeta(source)
	}
	if opts.IgnoreCase {
		source = "(?i)" + source
	}

	re, err := regexp.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}

	return &Regexp{expr: expr, re: re}, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level literals.
func MustCompile(expr string, opts Options) *Regexp {
	r, err := Compile(expr, opts)
	if err != nil {
		panic(err)
	}
	return r
}

// MatchString reports whether s contains a match.
func (r *Regexp) MatchString(s string) bool {
	return r.re.MatchString(s)
}

// FindAllStringIndex returns the byte ranges of every match in s.
func (r *Regexp) FindAllStringIndex(s string) [][]int {
	return r.re.FindAllStringIndex(s, -1)
}

// String returns the expression as given by the user.
func (r *Regexp) String() string {
	return r.expr
}
