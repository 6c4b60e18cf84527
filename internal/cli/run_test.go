package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl/gogrok/internal/query"
)

type testTree struct {
	root  string
	store string
}

func newTree(t *testing.T, files map[string]string) testTree {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return testTree{root: root, store: filepath.Join(t.TempDir(), "gogrok.db")}
}

// run executes one command line with default config and returns what it
// printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runLogged(t, args...)
	return out, err
}

// runLogged is run that also returns the log output.
func runLogged(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer out.Close()

	var logs bytes.Buffer
	cfg := DefaultConfig()
	cmd := NewRootCommand(&cfg, out)
	cmd.SetArgs(args)
	cmd.SetErr(&logs)
	runErr := cmd.ExecuteContext(context.Background())

	data, err := os.ReadFile(out.Name())
	require.NoError(t, err)
	return string(data), logs.String(), runErr
}

func (tr testTree) args(args ...string) []string {
	return append([]string{args[0], "--root", tr.root, "--store", tr.store, "--log-level", "error"}, args[1:]...)
}

var sources = map[string]string{
	"src/main.c": "int main(void) {\n  return helper();\n}\n",
	"src/util.c": "int helper(void) { return 0; }\n",
	"notes.txt":  "nothing to see\n",
}

func TestIndexThenSearch(t *testing.T) {
	tr := newTree(t, sources)

	out, err := run(t, tr.args("index")...)
	require.NoError(t, err)
	assert.Equal(t, "indexed 3, unchanged 0, skipped 0, removed 0\n", out)

	out, err = run(t, tr.args("index")...)
	require.NoError(t, err)
	assert.Equal(t, "indexed 0, unchanged 3, skipped 0, removed 0\n", out)

	out, err = run(t, tr.args("search", "--full", "helper", "--files")...)
	require.NoError(t, err)
	assert.Equal(t, "/src/main.c\n/src/util.c\n", out)

	out, err = run(t, tr.args("search", "--full", "helper", "--color", "never")...)
	require.NoError(t, err)
	assert.Contains(t, out, "/src/main.c\n")
	assert.Contains(t, out, "2:  return helper();\n")
	assert.Contains(t, out, "1:int helper(void) { return 0; }\n")

	out, err = run(t, tr.args("search", "--full", "helper", "--count")...)
	require.NoError(t, err)
	assert.Equal(t, "/src/main.c:1\n/src/util.c:1\n", out)

	out, err = run(t, tr.args("search", "--full", "nothing", "--dir", "/src", "--files")...)
	assert.ErrorIs(t, err, errNoMatch)
	assert.Empty(t, out)

	out, err = run(t, tr.args("search", "--full", "nothing", "--type", "plain", "--files")...)
	require.NoError(t, err)
	assert.Equal(t, "/notes.txt\n", out)
}

func TestSearch_Live(t *testing.T) {
	tr := newTree(t, sources)

	// No store: documents are found by walking the source root.
	out, err := run(t, tr.args("search", "--full", "main", "--files")...)
	require.NoError(t, err)
	assert.Equal(t, "/src/main.c\n", out)

	out, err = run(t, tr.args("search", "--full", "helper", "--type", "c", "--dir", "/src", "--files")...)
	require.NoError(t, err)
	assert.Equal(t, "/src/main.c\n/src/util.c\n", out)

	out, err = run(t, tr.args("search", "--full", "see", "--dir", "/src", "--files")...)
	assert.ErrorIs(t, err, errNoMatch)
	assert.Empty(t, out)
}

func TestSearch_Stdin(t *testing.T) {
	tr := newTree(t, nil)
	in, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	_, err = in.WriteString("first line\nneedle here\n")
	require.NoError(t, err)
	_, err = in.Seek(0, 0)
	require.NoError(t, err)
	stdin := os.Stdin
	os.Stdin = in
	t.Cleanup(func() { os.Stdin = stdin; in.Close() })

	out, err := run(t, tr.args("search", "--full", "needle", "--color", "never", "-")...)
	require.NoError(t, err)
	assert.Equal(t, "(standard input)\n2:needle here\n", out)
}

func TestSearch_HTML(t *testing.T) {
	tr := newTree(t, sources)
	out, err := run(t, tr.args("search", "--full", "main", "--format", "html")...)
	require.NoError(t, err)
	assert.Contains(t, out, `<dt><a href="/source/xref/src/main.c">/src/main.c</a></dt>`)
	assert.Contains(t, out, `<em>main</em>`)
}

func TestSearch_Path(t *testing.T) {
	tr := newTree(t, sources)
	_, err := run(t, tr.args("index")...)
	require.NoError(t, err)

	out, err := run(t, tr.args("search", "--path", "util.c")...)
	require.NoError(t, err)
	assert.Equal(t, "/src/util.c\n", out)

	_, err = run(t, tr.args("search", "--path", "missing")...)
	assert.ErrorIs(t, err, errNoMatch)

	out, err = run(t, tr.args("search", "--type", "c")...)
	require.NoError(t, err)
	assert.Equal(t, "/src/main.c\n/src/util.c\n", out)
}

func TestSearch_UnreadableDocument(t *testing.T) {
	tr := newTree(t, sources)
	_, err := run(t, tr.args("index")...)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(tr.root, "src", "util.c")))

	out, logs, err := runLogged(t, tr.args("search", "--full", "main", "--files", "--log-level", "info")...)
	require.NoError(t, err)
	assert.Equal(t, "/src/main.c\n", out)
	assert.NotContains(t, logs, "no context")

	_, logs, err = runLogged(t, tr.args("search", "--full", "main", "--files", "--log-level", "debug")...)
	require.NoError(t, err)
	assert.Contains(t, logs, "no context")
	assert.Contains(t, logs, "/src/util.c")
}

func TestSearch_Errors(t *testing.T) {
	tr := newTree(t, sources)

	_, err := run(t, tr.args("search")...)
	assert.ErrorContains(t, err, "no query")

	_, err = run(t, tr.args("search", "--full", "x", "--limit", "0")...)
	assert.Error(t, err)

	_, err = run(t, tr.args("search", "--full", "x", "--engine", "posix")...)
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	tr := newTree(t, nil)
	repo, err := git.PlainInit(tr.root, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	p := filepath.Join(tr.root, "parser.c")
	require.NoError(t, os.WriteFile(p, []byte("int parse;\n"), 0o644))
	_, err = wt.Add("parser.c")
	require.NoError(t, err)
	_, err = wt.Commit("fix the parser crash", &git.CommitOptions{
		Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)

	out, err := run(t, tr.args("history", p, "--hist", "crash", "--color", "never")...)
	require.NoError(t, err)
	assert.Contains(t, out, "/parser.c\n")
	assert.Contains(t, out, ":fix the parser crash\n")

	_, err = run(t, tr.args("history", p, "--hist", "segfault")...)
	assert.ErrorIs(t, err, errNoMatch)
}

func TestDirKey(t *testing.T) {
	out, err := run(t, "dirkey", "/src/lib")
	require.NoError(t, err)
	assert.Equal(t, query.DirPathKey("/src/lib")+"\n", out)
}

func TestUnderDir(t *testing.T) {
	assert.True(t, underDir("/src/a.c", "/src"))
	assert.True(t, underDir("/src/a.c", "src/"))
	assert.True(t, underDir("/src/a.c", "/"))
	assert.False(t, underDir("/srcx/a.c", "/src"))
	assert.False(t, underDir("/src", "/src"))
}
