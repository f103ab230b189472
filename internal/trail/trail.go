// Package trail tracks where the search cursor is (file, nested entry,
// class, member) and renders that location as an indented tree whenever a
// match is reported.
//
// A Stack belongs to exactly one traversal goroutine. Several stacks may
// share one Sink; every event block reaches the sink in a single WriteBlock
// call so blocks from different stacks never interleave.
package trail

import (
	"strings"
	"sync"
)

// Kind identifies what a frame describes.
type Kind int

const (
	KindFile Kind = iota
	KindClass
	KindField
	KindFieldValue
	KindMethod
	KindMethodBody
)

var kindWords = [...]string{
	KindFile:       "file",
	KindClass:      "class",
	KindField:      "field",
	KindFieldValue: "field value",
	KindMethod:     "method",
	KindMethodBody: "method body",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindWords) {
		return kindWords[k]
	}
	return "unknown"
}

// Frame is one level of the trail.
type Frame struct {
	Kind Kind
	Name string
}

func File(name string) Frame   { return Frame{Kind: KindFile, Name: name} }
func Class(name string) Frame  { return Frame{Kind: KindClass, Name: name} }
func Field(name string) Frame  { return Frame{Kind: KindField, Name: name} }
func Method(name string) Frame { return Frame{Kind: KindMethod, Name: name} }
func FieldValue() Frame        { return Frame{Kind: KindFieldValue} }
func MethodBody() Frame        { return Frame{Kind: KindMethodBody} }

// Label renders the frame as it appears in output, e.g. "class a/b/C".
func (f Frame) Label() string {
	if f.Kind == KindFieldValue || f.Kind == KindMethodBody {
		return f.Kind.String()
	}
	return f.Kind.String() + " " + f.Name
}

// Sink receives complete event blocks.
type Sink interface {
	WriteBlock(block []byte) error
}

// Stack is the location trail of one traversal.
type Stack struct {
	frames    []Frame
	underflow int
	sink      Sink
	paint     *painter
	err       error
}

// Option configures a Stack.
type Option func(*Stack)

// WithColor renders frame kinds in cyan and, when h is non-nil, the parts
// of each payload that h finds in bold red.
func WithColor(h Highlighter) Option {
	return func(s *Stack) {
		s.paint = newPainter(h)
	}
}

// NewStack creates an empty stack writing to sink.
func NewStack(sink Sink, opts ...Option) *Stack {
	s := &Stack{sink: sink}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push enters a new frame. Pair every Push with a deferred Pop.
func (s *Stack) Push(f Frame) {
	s.frames = append(s.frames, f)
}

// Pop leaves the innermost frame. Popping an empty stack is recorded and
// makes Balanced report false.
func (s *Stack) Pop() {
	if len(s.frames) == 0 {
		s.underflow++
		return
	}
	s.frames = s.frames[:len(s.frames)-1]
}

// Depth returns the number of frames currently on the stack.
func (s *Stack) Depth() int {
	return len(s.frames)
}

// Empty reports whether no frame is on the stack.
func (s *Stack) Empty() bool {
	return len(s.frames) == 0
}

// Balanced reports whether every Push has been matched by exactly one Pop.
func (s *Stack) Balanced() bool {
	return len(s.frames) == 0 && s.underflow == 0
}

// Frames returns a copy of the current trail, outermost first.
func (s *Stack) Frames() []Frame {
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Err returns the first error reported by the sink.
func (s *Stack) Err() error {
	return s.err
}

// Emit reports a match with payload rendered one level below the
// innermost frame.
func (s *Stack) Emit(payload string) {
	s.write(s.render(payload, true))
}

// EmitHeader reports a match on the innermost frame itself.
func (s *Stack) EmitHeader() {
	s.write(s.render("", false))
}

func (s *Stack) render(payload string, withPayload bool) []byte {
	var b strings.Builder
	for depth, f := range s.frames {
		b.WriteString(Indent(depth))
		b.WriteString(s.paint.frame(f))
		b.WriteByte('\n')
	}
	if withPayload {
		b.WriteString(Indent(len(s.frames)))
		b.WriteString(s.paint.payload(payload))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func (s *Stack) write(block []byte) {
	if s.sink == nil {
		return
	}
	if err := s.sink.WriteBlock(block); err != nil && s.err == nil {
		s.err = err
	}
}

var indents sync.Map // int -> string

// Indent returns the prefix for a line at depth: nothing for depth 0,
// otherwise 3*depth characters ending in `\- `.
func Indent(depth int) string {
	if depth <= 0 {
		return ""
	}
	if v, ok := indents.Load(depth); ok {
		return v.(string)
	}
	v, _ := indents.LoadOrStore(depth, strings.Repeat(" ", 3*depth-3)+`\- `)
	return v.(string)
}
