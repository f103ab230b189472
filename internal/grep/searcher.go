// Package grep walks targets as a tree of units: files, entries of zip
// containers (to any depth) and the members of class files. Every match is
// reported through a trail.Stack describing where it was found.
package grep

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/harrison/jargrep/internal/archive"
	"github.com/harrison/jargrep/internal/trail"
)

// Payloads of marker events.
const (
	MarkerCorruptZip   = "corrupt zip"
	MarkerCorruptClass = "corrupt class"
	MarkerBinaryMatch  = "Binary file matches"
)

const classSuffix = ".class"

// Logger receives diagnostics. Matches never go through it.
type Logger interface {
	LogDebug(message string)
	LogError(message string)
	LogSummary(summary Summary)
}

// Searcher holds the configuration of one run. It is safe for concurrent
// use as long as each goroutine passes its own Stack.
type Searcher struct {
	opts   Options
	sink   trail.Sink
	logger Logger
	// visit processes a top-level target; Process unless replaced in tests.
	visit func(name string, data []byte, stack *trail.Stack) bool
}

// NewSearcher creates a Searcher reporting matches to sink. logger may be
// nil.
func NewSearcher(opts Options, sink trail.Sink, logger Logger) *Searcher {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	if opts.ContainerExtensions == nil {
		opts.ContainerExtensions = DefaultContainerExtensions
	}
	s := &Searcher{opts: opts, sink: sink, logger: logger}
	s.visit = s.Process
	return s
}

// NewStack returns an empty trail writing to the searcher's sink.
func (s *Searcher) NewStack() *trail.Stack {
	return trail.NewStack(s.sink, s.opts.StackOptions...)
}

// Process searches one named unit and everything nested in it. It returns
// whether the unit was handled as a container or a class file. The stack
// depth is the same on return as on entry.
func (s *Searcher) Process(name string, data []byte, stack *trail.Stack) bool {
	if !stack.Empty() && !s.opts.Filter.Accepts(name) {
		return false
	}

	stack.Push(trail.File(name))
	defer stack.Pop()

	if s.opts.SearchFilenames && s.opts.Matcher.MatchString(name) {
		stack.EmitHeader()
	}

	kind := Classify(data)
	special := false

	if s.isContainer(name) {
		special = s.processContainer(data, stack)
	}
	if s.opts.SearchClasses && strings.HasSuffix(name, classSuffix) {
		special = s.scanClass(data, stack)
	}

	if s.opts.SearchContents && s.shouldSearch(kind, special) {
		s.searchLines(data, kind, stack)
	}
	return special
}

func (s *Searcher) isContainer(name string) bool {
	for _, ext := range s.opts.ContainerExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// processContainer visits every accepted file entry. A malformed container
// emits one marker, keeps what was already reported and counts as not
// special.
func (s *Searcher) processContainer(data []byte, stack *trail.Stack) bool {
	r := archive.NewReader(data)
	for {
		entry, err := r.Next()
		if err == io.EOF {
			return true
		}
		if err != nil {
			s.debugf("%s: %v", location(stack), err)
			stack.Emit(MarkerCorruptZip)
			return false
		}
		if entry.IsDir || !s.opts.Filter.Accepts(entry.Name) {
			continue
		}
		s.Process(entry.Name, entry.Data, stack)
	}
}

// shouldSearch decides whether a unit's bytes are line-searched.
//
//	text                          search
//	binary, without-match         skip
//	binary, not special           search
//	binary, special               search only with search-inside-special
//
// Containers and class files are handled structurally, so --text alone
// does not line-search their raw bytes.
func (s *Searcher) shouldSearch(kind Kind, special bool) bool {
	if kind == Text {
		return true
	}
	return s.opts.Binary != BinaryWithoutMatch && (!special || s.opts.SearchInsideSpecial)
}

// searchLines emits every matching line. Binary content in report mode
// emits a single marker for the first match instead.
func (s *Searcher) searchLines(data []byte, kind Kind, stack *trail.Stack) {
	summarize := kind == Binary && s.opts.Binary == BinaryReport
	eachLine(data, func(line string) bool {
		if !s.opts.Matcher.MatchString(line) {
			return true
		}
		if summarize {
			stack.Emit(MarkerBinaryMatch)
			return false
		}
		stack.Emit(line)
		return true
	})
}

// eachLine calls fn for every line of data until fn returns false. Lines
// end at '\n' with a trailing '\r' removed; empty lines at the end of data
// are not visited.
func eachLine(data []byte, fn func(line string) bool) {
	end := len(data)
	for end > 0 && (data[end-1] == '\n' || data[end-1] == '\r') {
		end--
	}
	data = data[:end]

	for len(data) > 0 {
		line := data
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			line, data = data[:i], data[i+1:]
		} else {
			data = nil
		}
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if !fn(string(line)) {
			return
		}
	}
}

func (s *Searcher) debugf(format string, args ...any) {
	if s.logger != nil {
		s.logger.LogDebug(fmt.Sprintf(format, args...))
	}
}

// location renders the trail on one line for diagnostics.
func location(stack *trail.Stack) string {
	frames := stack.Frames()
	labels := make([]string, len(frames))
	for i, f := range frames {
		labels[i] = f.Label()
	}
	return strings.Join(labels, " > ")
}
