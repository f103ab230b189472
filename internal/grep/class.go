package grep

import (
	"github.com/harrison/jargrep/internal/classfile"
	"github.com/harrison/jargrep/internal/trail"
)

const ldcPrefix = "ldc: "

// scanClass searches the declared members of a class file. It returns false
// when the class cannot be decoded; a single marker is emitted in that case.
func (s *Searcher) scanClass(data []byte, stack *trail.Stack) bool {
	c, err := classfile.Decode(data)
	if err != nil {
		s.debugf("%s: %v", location(stack), err)
		stack.Emit(MarkerCorruptClass)
		return false
	}

	stack.Push(trail.Class(c.Name()))
	defer stack.Pop()

	if s.opts.FieldNames || s.opts.FieldValues {
		for i := range c.Fields {
			s.scanField(&c.Fields[i], stack)
		}
	}

	if s.opts.MethodNames || s.opts.LDC {
		for i := range c.Methods {
			if !s.scanMethod(c, &c.Methods[i], stack) {
				return false
			}
		}
	}
	return true
}

func (s *Searcher) scanField(f *classfile.Field, stack *trail.Stack) {
	stack.Push(trail.Field(f.Name))
	defer stack.Pop()

	if s.opts.FieldNames && s.opts.Matcher.MatchString(f.Name) {
		stack.EmitHeader()
	}

	if f.Value == nil || !s.opts.FieldValues {
		return
	}
	if value := f.Value.String(); s.opts.Matcher.MatchString(value) {
		stack.Push(trail.FieldValue())
		stack.Emit(value)
		stack.Pop()
	}
}

// scanMethod reports false when the method's instructions cannot be walked.
func (s *Searcher) scanMethod(c *classfile.Class, m *classfile.Method, stack *trail.Stack) bool {
	stack.Push(trail.Method(m.Name))
	defer stack.Pop()

	if s.opts.MethodNames && s.opts.Matcher.MatchString(m.Name) {
		stack.EmitHeader()
	}

	if !s.opts.LDC || m.Code == nil {
		return true
	}

	stack.Push(trail.MethodBody())
	defer stack.Pop()

	err := c.Literals(m.Code, func(_ int, lit classfile.Literal) bool {
		if text := lit.String(); s.opts.Matcher.MatchString(text) {
			stack.Emit(ldcPrefix + text)
		}
		return true
	})
	if err != nil {
		s.debugf("%s: %v", location(stack), err)
		stack.Emit(MarkerCorruptClass)
		return false
	}
	return true
}
