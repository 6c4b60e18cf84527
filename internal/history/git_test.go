package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commitFile writes content to name in the worktree and commits it.
func commitFile(t *testing.T, wt *git.Worktree, dir, name, content, msg string, when time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	_, err := wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: when},
	})
	require.NoError(t, err)
}

func TestGitSource_History(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	commitFile(t, wt, dir, "a.txt", "one\n", "add a\n", base)
	commitFile(t, wt, dir, "b.txt", "other\n", "add b\n", base.Add(time.Hour))
	commitFile(t, wt, dir, "a.txt", "two\n", "fix bug17582 in a\n", base.Add(2*time.Hour))

	src, err := OpenGit(dir)
	require.NoError(t, err)

	entries, err := src.History(context.Background(), "a.txt")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "fix bug17582 in a", entries[0].Message)
	assert.Equal(t, "add a", entries[1].Message)
	assert.Equal(t, "Dev", entries[0].Author)
	assert.Len(t, entries[0].Revision, 40)

	abs, err := src.History(context.Background(), filepath.Join(src.Root(), "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, entries, abs)

	src.Limit = 1
	entries, err = src.History(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = src.History(context.Background(), "missing.txt")
	assert.ErrorIs(t, err, ErrNoHistory)

	_, err = src.History(context.Background(), filepath.Join(filepath.Dir(src.Root()), "elsewhere.txt"))
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	_, err := Static(nil).History(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoHistory)

	s := Static{{Revision: "r1", Message: "m"}}
	got, err := s.History(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []Entry(s), got)
}
