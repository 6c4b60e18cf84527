// Package history reads the change log of source files.
package history

import (
	"context"
	"errors"
	"time"
)

// ErrNoHistory is returned when a file has no recorded changes.
var ErrNoHistory = errors.New("no history")

// Entry is one change to a file.
type Entry struct {
	Revision string
	Author   string
	Date     time.Time
	Message  string
}

// Source returns the history of a file, newest change first.
type Source interface {
	History(ctx context.Context, path string) ([]Entry, error)
}

// Static is a fixed history served for every path.
type Static []Entry

func (s Static) History(_ context.Context, _ string) ([]Entry, error) {
	if len(s) == 0 {
		return nil, ErrNoHistory
	}
	return s, nil
}
