package grep

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrStackImbalance means a traversal left frames on its trail or popped
// more than it pushed. It indicates a bug, never bad input.
var ErrStackImbalance = errors.New("context stack imbalance")

// BugMessage is reported when a trail is unbalanced after a target.
const BugMessage = "{jargrep bug} Seems like I pushed more than I popped...!"

// Summary describes a completed run.
type Summary struct {
	Targets  int
	Searched int
	Skipped  int
	Duration time.Duration
}

// Run searches each target file. Targets are independent: up to Jobs run at
// once, each with its own trail, and with one job the output follows target
// order. Unreadable targets are logged and skipped. A stack imbalance stops
// the run once in-flight targets finish.
func (s *Searcher) Run(ctx context.Context, targets []string) (Summary, error) {
	start := time.Now()
	var searched, skipped atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Jobs)

	for _, target := range targets {
		if ctx.Err() != nil {
			break
		}
		target := target
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			ok, err := s.searchTarget(target)
			if ok {
				searched.Add(1)
			} else {
				skipped.Add(1)
			}
			return err
		})
	}
	err := g.Wait()

	summary := Summary{
		Targets:  len(targets),
		Searched: int(searched.Load()),
		Skipped:  int(skipped.Load()),
		Duration: time.Since(start),
	}
	if s.logger != nil {
		s.logger.LogSummary(summary)
	}
	return summary, err
}

// searchTarget reads and processes one top-level file. ok is false when the
// file could not be read.
func (s *Searcher) searchTarget(target string) (ok bool, err error) {
	data, err := os.ReadFile(target)
	if err != nil {
		if s.logger != nil {
			s.logger.LogError(fmt.Sprintf("skipping %s: %v", target, err))
		}
		return false, nil
	}

	s.debugf("searching %s (%d bytes)", target, len(data))
	stack := s.NewStack()
	s.visit(filepath.Clean(target), data, stack)

	if !stack.Balanced() {
		stack.Emit(BugMessage)
		return true, fmt.Errorf("%w after %s (depth %d)", ErrStackImbalance, target, stack.Depth())
	}
	if err := stack.Err(); err != nil {
		return true, fmt.Errorf("failed to report matches for %s: %w", target, err)
	}
	return true, nil
}
