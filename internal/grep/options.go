package grep

import (
	"fmt"
	"strings"

	"github.com/harrison/jargrep/internal/pattern"
	"github.com/harrison/jargrep/internal/trail"
)

// BinaryMode controls how content classified Binary is line-searched.
type BinaryMode int

const (
	// BinaryReport prints "Binary file matches" once per matching unit.
	BinaryReport BinaryMode = iota
	// BinaryWithoutMatch never searches binary content.
	BinaryWithoutMatch
	// BinaryText searches binary content line by line like text.
	BinaryText
)

var binaryModeNames = map[BinaryMode]string{
	BinaryReport:       "binary",
	BinaryWithoutMatch: "without-match",
	BinaryText:         "text",
}

func (m BinaryMode) String() string {
	if name, ok := binaryModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("BinaryMode(%d)", int(m))
}

// ParseBinaryMode parses the --binary-files value.
func ParseBinaryMode(s string) (BinaryMode, error) {
	for mode, name := range binaryModeNames {
		if strings.EqualFold(s, name) {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("invalid binary files mode %q (want binary, without-match or text)", s)
}

// Options is the read-only search configuration shared by every worker.
type Options struct {
	Matcher pattern.Matcher
	// Filter decides which nested entries are visited.
	Filter pattern.Filter

	SearchFilenames bool
	SearchContents  bool
	SearchClasses   bool
	FieldNames      bool
	FieldValues     bool
	MethodNames     bool
	LDC             bool

	Binary              BinaryMode
	SearchInsideSpecial bool

	// ContainerExtensions lists file name suffixes treated as zip
	// containers.
	ContainerExtensions []string

	// Jobs is the number of top-level targets searched concurrently.
	Jobs int
	// StackOptions are applied to the trail of every target.
	StackOptions []trail.Option
}

// DefaultContainerExtensions are the suffixes recognised as containers.
var DefaultContainerExtensions = []string{".jar", ".zip"}

// DefaultOptions returns every search enabled, binary content reported as
// "Binary file matches", and one worker.
func DefaultOptions(m pattern.Matcher) Options {
	return Options{
		Matcher:             m,
		SearchFilenames:     true,
		SearchContents:      true,
		SearchClasses:       true,
		FieldNames:          true,
		FieldValues:         true,
		MethodNames:         true,
		LDC:                 true,
		Binary:              BinaryReport,
		ContainerExtensions: DefaultContainerExtensions,
		Jobs:                1,
	}
}
