package pattern

// Filter decides which nested entries are descended into.
//
// Accepts(name) == Exclude XOR (Pattern == nil || Pattern matches name).
// The zero Filter accepts everything.
type Filter struct {
	Pattern Matcher
	Exclude bool
}

// NewInclude returns a filter accepting only names matched by m.
func NewInclude(m Matcher) Filter {
	return Filter{Pattern: m}
}

// NewExclude returns a filter rejecting names matched by m.
func NewExclude(m Matcher) Filter {
	return Filter{Pattern: m, Exclude: true}
}

// Accepts reports whether name passes the filter.
func (f Filter) Accepts(name string) bool {
	matched := f.Pattern == nil || f.Pattern.MatchString(name)
	return matched != f.Exclude
}
