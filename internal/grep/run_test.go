package grep

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/jargrep/internal/pattern"
	"github.com/harrison/jargrep/internal/report"
	"github.com/harrison/jargrep/internal/trail"
)

type recordingLogger struct {
	mu      sync.Mutex
	debug   []string
	errors  []string
	summary *Summary
}

func (l *recordingLogger) LogDebug(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = append(l.debug, message)
}

func (l *recordingLogger) LogError(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, message)
}

func (l *recordingLogger) LogSummary(summary Summary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.summary = &summary
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func newRunSearcher(expr string, jobs int) (*Searcher, *bytes.Buffer, *recordingLogger) {
	var buf bytes.Buffer
	log := &recordingLogger{}
	opts := DefaultOptions(pattern.MustCompile(expr, pattern.Options{}))
	opts.Jobs = jobs
	return NewSearcher(opts, report.NewWriter(&buf), log), &buf, log
}

func TestRunKeepsTargetOrderWithOneJob(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", []byte("foo a\n"))
	b := writeFile(t, dir, "b.txt", []byte("nothing\n"))
	c := writeFile(t, dir, "c.txt", []byte("foo c1\nfoo c2\n"))

	s, out, log := newRunSearcher("foo", 1)
	summary, err := s.Run(context.Background(), []string{a, b, c})
	require.NoError(t, err)

	want := event("foo a", "file "+a) + event("foo c1", "file "+c) + event("foo c2", "file "+c)
	assert.Equal(t, want, out.String())
	assert.Equal(t, Summary{Targets: 3, Searched: 3, Skipped: 0, Duration: summary.Duration}, summary)
	require.NotNil(t, log.summary)
	assert.Equal(t, 3, log.summary.Searched)
}

func TestRunCorruptTargetDoesNotAffectOthers(t *testing.T) {
	dir := t.TempDir()
	valid := jar(t, file{"a.txt", []byte("foo")})
	bad := writeFile(t, dir, "bad.jar", valid[:20])
	good := writeFile(t, dir, "good.txt", []byte("foo here\n"))

	s, out, log := newRunSearcher("foo", 1)
	_, err := s.Run(context.Background(), []string{bad, good})
	require.NoError(t, err)

	want := event(MarkerCorruptZip, "file "+bad) + event("foo here", "file "+good)
	assert.Equal(t, want, out.String())

	var sawZipError bool
	for _, msg := range log.debug {
		if strings.Contains(msg, "malformed zip") {
			sawZipError = true
		}
	}
	assert.True(t, sawZipError, "the absorbed error is logged at debug level: %v", log.debug)
}

func TestRunSkipsUnreadableTargets(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.jar")
	good := writeFile(t, dir, "good.txt", []byte("foo\n"))

	s, out, log := newRunSearcher("foo", 2)
	summary, err := s.Run(context.Background(), []string{missing, good})
	require.NoError(t, err)

	assert.Equal(t, event("foo", "file "+good), out.String())
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Searched)
	require.Len(t, log.errors, 1)
	assert.Contains(t, log.errors[0], missing)
}

func TestRunCleansTargetNames(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", []byte("foo\n"))

	s, out, _ := newRunSearcher("foo", 1)
	_, err := s.Run(context.Background(), []string{dir + "/./a.txt"})
	require.NoError(t, err)
	assert.Equal(t, event("foo", "file "+a), out.String())
}

func TestParseBinaryMode(t *testing.T) {
	tests := []struct {
		in      string
		want    BinaryMode
		wantErr bool
	}{
		{"binary", BinaryReport, false},
		{"without-match", BinaryWithoutMatch, false},
		{"text", BinaryText, false},
		{"TEXT", BinaryText, false},
		{"", 0, true},
		{"skip", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBinaryMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.ToLower(tt.in), got.String())
		})
	}
}

func TestRunConcurrentBlocksStayWhole(t *testing.T) {
	dir := t.TempDir()
	const files, lines = 6, 40

	var targets []string
	for f := 0; f < files; f++ {
		var content strings.Builder
		for l := 0; l < lines; l++ {
			fmt.Fprintf(&content, "foo %d %d\n", f, l)
		}
		targets = append(targets, writeFile(t, dir, fmt.Sprintf("f%d.txt", f), []byte(content.String())))
	}

	s, out, _ := newRunSearcher("foo", 4)
	summary, err := s.Run(context.Background(), targets)
	require.NoError(t, err)
	assert.Equal(t, files, summary.Searched)

	blocks := strings.Split(strings.TrimSuffix(out.String(), "\n\n"), "\n\n")
	require.Len(t, blocks, files*lines)
	for _, block := range blocks {
		parts := strings.Split(block, "\n")
		require.Len(t, parts, 2, "block %q", block)

		var f, l int
		_, err := fmt.Sscanf(strings.TrimPrefix(parts[1], trail.Indent(1)), "foo %d %d", &f, &l)
		require.NoError(t, err)
		assert.Equal(t, "file "+targets[f], parts[0], "payload and trail belong to the same target")
	}
}

func TestRunReportsStackImbalance(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", []byte("foo\n"))
	b := writeFile(t, dir, "b.txt", []byte("foo\n"))

	s, out, _ := newRunSearcher("foo", 1)
	s.visit = func(name string, _ []byte, stack *trail.Stack) bool {
		stack.Push(trail.File(name))
		return false
	}

	summary, err := s.Run(context.Background(), []string{a, b})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStackImbalance)
	assert.Equal(t, event(BugMessage, "file "+a), out.String())
	assert.Equal(t, 1, summary.Searched, "the run stops after the failing target")
}

func TestRunHonoursCancelledContext(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", []byte("foo\n"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, out, _ := newRunSearcher("foo", 1)
	summary, err := s.Run(ctx, []string{a})
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Equal(t, 0, summary.Searched)
}
