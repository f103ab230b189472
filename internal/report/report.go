// Package report is the destination for match output. Every sink writes
// whole event blocks under a mutex so that concurrent target workers never
// interleave their trails.
package report

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// Sink receives complete event blocks and is safe for concurrent use.
type Sink interface {
	WriteBlock(block []byte) error
	// Blocks returns the number of blocks written so far.
	Blocks() int
	Close() error
}

// Writer streams blocks to an io.Writer such as os.Stdout.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	blocks int
}

// NewWriter creates a sink writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteBlock writes block in a single call to the underlying writer.
func (s *Writer) WriteBlock(block []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(block); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	s.blocks++
	return nil
}

// Blocks returns the number of blocks written.
func (s *Writer) Blocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocks
}

// Close is a no-op; the underlying writer belongs to the caller.
func (s *Writer) Close() error {
	return nil
}

// File collects the report in memory and publishes it to path on Close,
// under an exclusive lock and with an atomic rename. Readers of path see
// either the previous report or the complete new one.
type File struct {
	mu     sync.Mutex
	path   string
	buf    bytes.Buffer
	blocks int
	closed bool
}

// NewFile creates a sink that will write the report to path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the destination path.
func (f *File) Path() string {
	return f.path
}

// WriteBlock appends block to the pending report.
func (f *File) WriteBlock(block []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("report %s already written", f.path)
	}
	f.buf.Write(block)
	f.blocks++
	return nil
}

// Blocks returns the number of blocks written.
func (f *File) Blocks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocks
}

// Close writes the collected report. Calling Close again does nothing.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	return LockAndWrite(f.path, f.buf.Bytes())
}
