package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dl/gogrok/internal/output"
	"github.com/dl/gogrok/internal/walker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeHighlighter flags concurrent use of one instance.
type fakeHighlighter struct {
	busy  atomic.Bool
	reuse *atomic.Bool
	delay time.Duration
}

func (f *fakeHighlighter) Highlight(_ context.Context, e walker.FileEntry) output.Result {
	if !f.busy.CompareAndSwap(false, true) {
		f.reuse.Store(true)
	}
	defer f.busy.Store(false)
	time.Sleep(f.delay)
	return output.Result{Path: e.Rel}
}

func feed(n int) <-chan walker.FileEntry {
	ch := make(chan walker.FileEntry, n)
	for i := range n {
		ch <- walker.FileEntry{Rel: fmt.Sprintf("/f%03d", i)}
	}
	close(ch)
	return ch
}

func TestRun_SequenceFollowsInput(t *testing.T) {
	var created atomic.Int32
	var shared atomic.Bool
	s := New(4, func() Highlighter {
		created.Add(1)
		return &fakeHighlighter{reuse: &shared, delay: time.Millisecond}
	})

	results, wait := s.Run(context.Background(), feed(50))
	bySeq := map[int]string{}
	for r := range results {
		bySeq[r.SeqNum] = r.Path
	}
	require.NoError(t, wait())

	require.Len(t, bySeq, 50)
	for i := range 50 {
		assert.Equal(t, fmt.Sprintf("/f%03d", i), bySeq[i+1])
	}
	assert.LessOrEqual(t, created.Load(), int32(4))
	assert.False(t, shared.Load(), "a highlighter was used by two goroutines at once")
}

func TestRun_OrderedOutput(t *testing.T) {
	var shared atomic.Bool
	s := New(3, func() Highlighter { return &fakeHighlighter{reuse: &shared} })
	results, wait := s.Run(context.Background(), feed(20))

	var order []string
	ow := output.NewOrderedWriter(discard{}, output.NewTextFormatter(output.NoStyles(), false, true))
	err := ow.WriteOrdered(results, func(r output.Result) {
		order = append(order, r.Path)
	})
	require.NoError(t, err)
	require.NoError(t, wait())

	require.Len(t, order, 20)
	for i, p := range order {
		assert.Equal(t, fmt.Sprintf("/f%03d", i), p)
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	files := make(chan walker.FileEntry)
	var shared atomic.Bool
	s := New(2, func() Highlighter { return &fakeHighlighter{reuse: &shared} })

	results, wait := s.Run(ctx, files)
	files <- walker.FileEntry{Rel: "/first"}
	r := <-results
	assert.Equal(t, 1, r.SeqNum)

	cancel()
	for range results {
	}
	assert.ErrorIs(t, wait(), context.Canceled)
}

func TestNew_DefaultWorkers(t *testing.T) {
	s := New(0, nil)
	assert.Positive(t, s.workers)
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
