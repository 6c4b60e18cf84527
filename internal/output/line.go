package output

import (
	"github.com/dl/gogrok/internal/highlight"
	"github.com/dl/gogrok/internal/symbols"
)

// Line is one excerpt line handed to a Renderer: the line split into plain and
// highlighted segments, with its annotations.
type Line struct {
	highlight.Rendered

	// Tag is the type of the definition matched on this line, if any.
	Tag string
	// Scope is the enclosing scope to report, nil when none is shown.
	Scope *symbols.Scope
	// Framed is set when surrounding context is shown; each line is then
	// wrapped so that non-contiguous blocks can be told apart.
	Framed bool
	// Overline marks the first line after a gap in a framed excerpt.
	Overline bool
}

// Number returns the 1-based line number shown to users.
func (l Line) Number() int { return l.LineNo + 1 }

// Text returns the visible text of the line without markup.
func (l Line) Text() string {
	n := 0
	for _, s := range l.Segments {
		n += len(s.Text)
	}
	buf := make([]byte, 0, n)
	for _, s := range l.Segments {
		buf = append(buf, s.Text...)
	}
	return string(buf)
}

// Highlighted reports whether any segment is highlighted.
func (l Line) Highlighted() bool {
	for _, s := range l.Segments {
		if s.Highlight {
			return true
		}
	}
	return false
}

// HistoryLine is a matched history log message.
type HistoryLine struct {
	Revision string
	// DiffURL links to the change against the previous revision. Empty when
	// there is no previous revision or no link prefix was configured.
	DiffURL string
	highlight.Rendered
}
