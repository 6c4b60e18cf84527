package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// GitSource reads file history from a git repository.
type GitSource struct {
	repo *git.Repository
	root string
	// Limit caps the number of entries returned per file; 0 means no cap.
	Limit int
}

// OpenGit opens the repository containing path.
func OpenGit(path string) (*GitSource, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}
	return &GitSource{repo: repo, root: wt.Filesystem.Root()}, nil
}

// Root returns the top directory of the working tree.
func (g *GitSource) Root() string { return g.root }

// History returns the commits touching path, newest first. path may be
// absolute or relative to the working tree root.
func (g *GitSource) History(ctx context.Context, path string) ([]Entry, error) {
	rel, err := g.relative(path)
	if err != nil {
		return nil, err
	}

	iter, err := g.repo.Log(&git.LogOptions{
		FileName: &rel,
		Order:    git.LogOrderCommitterTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read log of %s: %w", rel, err)
	}
	defer iter.Close()

	var entries []Entry
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries = append(entries, Entry{
			Revision: c.Hash.String(),
			Author:   c.Author.Name,
			Date:     c.Author.When,
			Message:  strings.TrimRight(c.Message, "\n"),
		})
		if g.Limit > 0 && len(entries) >= g.Limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("failed to walk log of %s: %w", rel, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", rel, ErrNoHistory)
	}
	return entries, nil
}

func (g *GitSource) relative(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path)), nil
	}
	rel, err := filepath.Rel(g.root, path)
	if err != nil {
		return "", fmt.Errorf("%s is outside %s: %w", path, g.root, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, g.root)
	}
	return filepath.ToSlash(rel), nil
}
