package indexer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl/gogrok/internal/store"
	"github.com/dl/gogrok/internal/symbols"
	"github.com/dl/gogrok/internal/walker"
	"github.com/dl/gogrok/internal/watch"
)

var quiet = log.New(io.Discard)

func setup(t *testing.T, files map[string]string) (string, *store.Store) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		write(t, root, name, content)
	}
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "gogrok.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return root, st
}

func write(t *testing.T, root, name, content string) string {
	t.Helper()
	p := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func paths(t *testing.T, st *store.Store) []string {
	t.Helper()
	got, err := st.Paths(context.Background(), store.Filter{})
	require.NoError(t, err)
	return got
}

func TestIndex(t *testing.T) {
	ctx := context.Background()
	root, st := setup(t, map[string]string{
		"src/main.c":  "int main(void) { return 0; }\n",
		"src/util.go": "package util\n",
		"src/blob.c":  "\x00\x01\x02",
		".gitignore":  "*.log\n",
		"debug.log":   "ignored\n",
	})
	tags, err := symbols.ParseCtags(strings.NewReader("main\tsrc/main.c\t/^int main(void) {$/;\"\tf\tline:1\n"))
	require.NoError(t, err)

	ix := New(st, Options{Walk: walker.WalkOptions{Root: root}, Tags: tags, Logger: quiet})
	stats, err := ix.Index(ctx, []string{root})
	require.NoError(t, err)
	assert.Equal(t, Stats{Indexed: 2, Skipped: 1}, stats)
	assert.Equal(t, []string{"/src/main.c", "/src/util.go"}, paths(t, st))

	doc, err := st.Get(ctx, "/src/main.c")
	require.NoError(t, err)
	assert.Equal(t, "c", doc.Type)
	assert.True(t, doc.Definitions().HasSymbol("main"))
	assert.Equal(t, store.Fingerprint([]byte(doc.Content)), doc.Fingerprint)

	// A second pass finds nothing new.
	stats, err = ix.Index(ctx, []string{root})
	require.NoError(t, err)
	assert.Equal(t, Stats{Unchanged: 2, Skipped: 1}, stats)

	// Changes and removals are picked up.
	require.NoError(t, os.Remove(filepath.Join(root, "src/util.go")))
	write(t, root, "src/main.c", "int main(void) { return 1; }\n")
	stats, err = ix.Index(ctx, []string{root})
	require.NoError(t, err)
	assert.Equal(t, Stats{Indexed: 1, Skipped: 1, Removed: 1}, stats)
	assert.Equal(t, []string{"/src/main.c"}, paths(t, st))
}

func TestIndex_Subtree(t *testing.T) {
	ctx := context.Background()
	root, st := setup(t, map[string]string{
		"a/x.c": "x\n",
		"b/y.c": "y\n",
	})
	ix := New(st, Options{Walk: walker.WalkOptions{Root: root}, Logger: quiet})
	_, err := ix.Index(ctx, []string{root})
	require.NoError(t, err)

	// Pruning a subtree leaves documents outside it alone.
	require.NoError(t, os.Remove(filepath.Join(root, "a/x.c")))
	stats, err := ix.Index(ctx, []string{filepath.Join(root, "a")})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, []string{"/b/y.c"}, paths(t, st))
}

func TestIndex_Canceled(t *testing.T) {
	root, st := setup(t, map[string]string{"a.c": "a\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(st, Options{Walk: walker.WalkOptions{Root: root}, Logger: quiet}).Index(ctx, []string{root})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	root, st := setup(t, map[string]string{"keep.c": "k\n"})
	ix := New(st, Options{Walk: walker.WalkOptions{Root: root}, Logger: quiet})

	p := write(t, root, "new.c", "n\n")
	stats, err := ix.Update(ctx, watch.Event{Path: p, Type: watch.EventChanged})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)

	ignored := write(t, root, ".hidden.c", "h\n")
	stats, err = ix.Update(ctx, watch.Event{Path: ignored, Type: watch.EventChanged})
	require.NoError(t, err)
	assert.Zero(t, stats.Indexed)

	write(t, root, "pkg/a.c", "a\n")
	write(t, root, "pkg/b.c", "b\n")
	stats, err = ix.Update(ctx, watch.Event{Path: filepath.Join(root, "pkg"), Type: watch.EventChanged, Dir: true})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Indexed)
	assert.Equal(t, []string{"/new.c", "/pkg/a.c", "/pkg/b.c"}, paths(t, st))

	_, err = ix.Update(ctx, watch.Event{Path: filepath.Join(root, "pkg"), Type: watch.EventRemoved, Dir: true})
	require.NoError(t, err)
	_, err = ix.Update(ctx, watch.Event{Path: p, Type: watch.EventRemoved})
	require.NoError(t, err)
	assert.Empty(t, paths(t, st))
}

func TestWatch(t *testing.T) {
	root, st := setup(t, nil)
	w, err := watch.New()
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	ix := New(st, Options{Walk: walker.WalkOptions{Root: root}, Logger: quiet})
	go func() { done <- ix.Watch(ctx, w) }()

	// Wait for the watch to be set up before writing.
	require.Eventually(t, func() bool { return w.Len() > 0 }, 2*time.Second, 10*time.Millisecond)
	write(t, root, "live.c", "int live;\n")
	require.Eventually(t, func() bool {
		_, err := st.Get(context.Background(), "/live.c")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
