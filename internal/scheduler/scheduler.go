// Package scheduler highlights documents concurrently and numbers the
// results so they can be written in the order the documents were found.
package scheduler

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dl/gogrok/internal/output"
	"github.com/dl/gogrok/internal/walker"
)

// Highlighter produces the context of one document. Implementations may
// keep per-document scratch state; the scheduler never shares one between
// goroutines.
type Highlighter interface {
	Highlight(ctx context.Context, entry walker.FileEntry) output.Result
}

// Scheduler runs Highlighters on a bounded number of goroutines.
type Scheduler struct {
	workers int
	factory func() Highlighter
}

// New creates a Scheduler. factory is called whenever a goroutine needs a
// Highlighter and none is idle, so at most workers are ever created. If
// workers is 0, it defaults to NumCPU.
func New(workers int, factory func() Highlighter) *Scheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scheduler{workers: workers, factory: factory}
}

// Run highlights every entry received from files. Results carry sequence
// numbers starting at 1 in receive order. The results channel is closed once
// all work is done; wait then returns the cancellation error, if any.
func (s *Scheduler) Run(ctx context.Context, files <-chan walker.FileEntry) (results <-chan output.Result, wait func() error) {
	resultCh := make(chan output.Result, s.workers*2)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	idle := make(chan Highlighter, s.workers)
	acquire := func() Highlighter {
		select {
		case h := <-idle:
			return h
		default:
			return s.factory()
		}
	}
	release := func(h Highlighter) {
		select {
		case idle <- h:
		default:
		}
	}

	var err error
	done := make(chan struct{})
	go func() {
		seq := 0
	loop:
		for {
			select {
			case <-gctx.Done():
				break loop
			case entry, ok := <-files:
				if !ok {
					break loop
				}
				seq++
				n := seq
				g.Go(func() error {
					h := acquire()
					defer release(h)
					r := h.Highlight(gctx, entry)
					r.SeqNum = n
					select {
					case resultCh <- r:
						return nil
					case <-gctx.Done():
						return gctx.Err()
					}
				})
			}
		}
		err = g.Wait()
		if err == nil {
			err = ctx.Err()
		}
		close(resultCh)
		close(done)
	}()

	return resultCh, func() error {
		<-done
		return err
	}
}
