package lineindex

import (
	"slices"
	"strings"
)

// Index maps byte offsets in a document to 0-based line numbers and back.
// Lines end at "\n", "\r\n" or a lone "\r"; each counts as one terminator.
// A terminator at the very end of the text does not open a new line.
type Index struct {
	text   string
	starts []int // ascending line-start offsets, starts[0] == 0
	ready  bool
}

// New returns an Index over text.
func New(text string) *Index {
	ix := &Index{}
	ix.Reset(text)
	return ix
}

// Reset points the index at text. Rescanning is skipped when text is
// unchanged since the previous call.
func (ix *Index) Reset(text string) {
	if ix.ready && text == ix.text {
		return
	}
	ix.text = text
	ix.starts = append(ix.starts[:0], 0)

	pos := 0
	for pos < len(text) {
		i := strings.IndexAny(text[pos:], "\r\n")
		if i < 0 {
			break
		}
		pos += i
		if text[pos] == '\r' && pos+1 < len(text) && text[pos+1] == '\n' {
			pos++
		}
		pos++
		if pos < len(text) {
			ix.starts = append(ix.starts, pos)
		}
	}
	ix.ready = true
}

// Text returns the indexed document.
func (ix *Index) Text() string { return ix.text }

// Count returns the number of lines, which is at least 1.
func (ix *Index) Count() int { return len(ix.starts) }

// LineOf returns the line containing offset. Negative offsets resolve to the
// first line and offsets past the end to the last line.
func (ix *Index) LineOf(offset int) int {
	if offset <= 0 {
		return 0
	}
	i, found := slices.BinarySearch(ix.starts, offset)
	if found {
		return i
	}
	return i - 1
}

// Start returns the offset of the first byte of line.
func (ix *Index) Start(line int) int {
	return ix.starts[ix.clamp(line)]
}

// End returns the offset just past line, terminator included.
func (ix *Index) End(line int) int {
	line = ix.clamp(line)
	if line+1 < len(ix.starts) {
		return ix.starts[line+1]
	}
	return len(ix.text)
}

// Line returns the text of line including its terminator.
func (ix *Index) Line(line int) string {
	return ix.text[ix.Start(line):ix.End(line)]
}

// LineNoEOL returns the text of line without its terminator.
func (ix *Index) LineNoEOL(line int) string {
	return TrimEOL(ix.Line(line))
}

func (ix *Index) clamp(line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(ix.starts) {
		return len(ix.starts) - 1
	}
	return line
}

// TrimEOL strips one trailing "\r\n", "\n" or "\r" from s.
func TrimEOL(s string) string {
	if strings.HasSuffix(s, "\r\n") {
		return s[:len(s)-2]
	}
	if strings.HasSuffix(s, "\n") || strings.HasSuffix(s, "\r") {
		return s[:len(s)-1]
	}
	return s
}
