package trail

import (
	"strings"

	"github.com/fatih/color"
)

// Highlighter locates the matched parts of a payload. *pattern.Regexp
// satisfies it.
type Highlighter interface {
	FindAllStringIndex(s string) [][]int
}

// painter decorates trail output. A nil painter renders plain text.
type painter struct {
	kind  *color.Color
	match *color.Color
	hl    Highlighter
}

func newPainter(h Highlighter) *painter {
	kind := color.New(color.FgCyan)
	kind.EnableColor()
	match := color.New(color.FgRed, color.Bold)
	match.EnableColor()
	return &painter{kind: kind, match: match, hl: h}
}

func (p *painter) frame(f Frame) string {
	if p == nil {
		return f.Label()
	}
	word := p.kind.Sprint(f.Kind.String())
	if f.Kind == KindFieldValue || f.Kind == KindMethodBody {
		return word
	}
	return word + " " + f.Name
}

func (p *painter) payload(s string) string {
	if p == nil || p.hl == nil {
		return s
	}
	spans := p.hl.FindAllStringIndex(s)
	if len(spans) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, span := range spans {
		if span[0] == span[1] {
			continue
		}
		b.WriteString(s[last:span[0]])
		b.WriteString(p.match.Sprint(s[span[0]:span[1]]))
		last = span[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
