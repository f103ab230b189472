package grep

import (
	"bytes"
	"encoding/binary"

	"github.com/harrison/jargrep/internal/classfile"
)

// Kind is the content classification of a unit.
type Kind int

const (
	Text Kind = iota
	Binary
)

func (k Kind) String() string {
	if k == Binary {
		return "binary"
	}
	return "text"
}

// binaryWindow is how many leading bytes are checked for NUL, as grep does.
const binaryWindow = 32767

// Classify reports whether data looks binary: it starts with the class file
// magic, or has a NUL byte within the first binaryWindow bytes.
func Classify(data []byte) Kind {
	if len(data) >= 4 && binary.BigEndian.Uint32(data) == classfile.Magic {
		return Binary
	}
	window := data[:min(len(data), binaryWindow)]
	if bytes.IndexByte(window, 0) >= 0 {
		return Binary
	}
	return Text
}
