package highlight

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/btree"

	"github.com/dl/gogrok/internal/lineindex"
)

// SubMatch is one matched range inside a MatchSpan, in document offsets.
type SubMatch struct {
	Start int
	End   int
}

// MatchSpan is a matched passage of a document. Subs holds the ranges
// inside it that are actually highlighted.
type MatchSpan struct {
	Start int
	End   int
	Subs  []SubMatch
}

// Lines is an ordered set of LineHighlight keyed by line number.
type Lines struct {
	tree *btree.BTreeG[*LineHighlight]
}

func NewLines() *Lines {
	return &Lines{tree: btree.NewG(8, func(a, b *LineHighlight) bool {
		return a.LineNo < b.LineNo
	})}
}

// Get returns the entry for line, or nil.
func (ls *Lines) Get(line int) *LineHighlight {
	lh, _ := ls.tree.Get(&LineHighlight{LineNo: line})
	return lh
}

// Ensure returns the entry for line, creating an empty one if needed.
func (ls *Lines) Ensure(line int) *LineHighlight {
	if lh := ls.Get(line); lh != nil {
		return lh
	}
	lh := NewLineHighlight(line)
	ls.tree.ReplaceOrInsert(lh)
	return lh
}

func (ls *Lines) Len() int { return ls.tree.Len() }

// Ascend calls fn for each entry in line order until fn returns false.
func (ls *Lines) Ascend(fn func(lh *LineHighlight) bool) {
	ls.tree.Ascend(btree.ItemIteratorG[*LineHighlight](fn))
}

// Slice returns the entries in line order.
func (ls *Lines) Slice() []*LineHighlight {
	out := make([]*LineHighlight, 0, ls.tree.Len())
	ls.Ascend(func(lh *LineHighlight) bool {
		out = append(out, lh)
		return true
	})
	return out
}

// Converter turns match spans into per-line highlights.
type Converter struct {
	args ContextArgs
}

func NewConverter(args ContextArgs) *Converter {
	return &Converter{args: args}
}

// Args returns the converter's context arguments.
func (c *Converter) Args() ContextArgs { return c.args }

// Convert resolves spans to lines, adds surrounding context lines, places
// highlights for every sub-match, then condenses and elides each line.
func (c *Converter) Convert(spans []MatchSpan, ix *lineindex.Index) *Lines {
	res := NewLines()
	count := ix.Count()

	for _, span := range spans {
		if span.Start >= span.End {
			continue
		}
		m := max(0, ix.LineOf(span.Start)-c.args.SurroundLines)
		n := min(count-1, ix.LineOf(span.End-1)+c.args.SurroundLines)

		for i := m; i <= n; i++ {
			res.Ensure(i)
		}

		for _, sub := range span.Subs {
			if sub.Start >= sub.End {
				continue
			}
			mm := ix.LineOf(sub.Start)
			nn := ix.LineOf(sub.End - 1)
			if mm < m || mm > n || nn < m || nn > n {
				continue
			}
			if mm == nn {
				lbeg := ix.Start(mm)
				res.Get(mm).Add(Span(sub.Start-lbeg, sub.End-lbeg))
				continue
			}
			res.Get(mm).Add(Starter(sub.Start - ix.Start(mm)))
			res.Get(nn).Add(Ender(sub.End - ix.Start(nn)))
			for j := mm + 1; j < nn; j++ {
				res.Get(j).Add(Entire())
			}
		}
	}

	res.Ascend(func(lh *LineHighlight) bool {
		lh.Condense()
		c.Elide(lh, ix.LineNoEOL(lh.LineNo))
		return true
	})
	return res
}

// Elide picks elision offsets for a line longer than the line width. The
// window favours the highlighted text over both margins: leading
// whitespace goes first, then either the tail is cut or the window is
// centred a rough three-quarter width before the midpoint of the
// highlights. Each ellipsis shown costs one character of the width.
//
// Width is measured in characters; the offsets stored on lh stay byte
// offsets into line.
func (c *Converter) Elide(lh *LineHighlight, line string) {
	length := utf8.RuneCountInString(line)
	if length <= c.args.LineWidth {
		return
	}
	cols := newColumns(line, length)

	first, last := -1, -1
	if n := len(lh.Markups); n > 0 {
		first = cols.toRune(lh.Markups[0].StartKey())
		last = cols.toRune(lh.Markups[n-1].EndKey())
	}
	left, right := c.window(line, length, len(lh.Markups), first, last)
	lh.LeftElide = cols.toByte(left)
	lh.RightElide = cols.toByte(right)
}

// window computes the elision offsets of a line in characters. first and
// last are the start of the first highlight and the end of the last one.
func (c *Converter) window(line string, length, marks, first, last int) (left, right int) {
	width := c.args.LineWidth
	excess := length - width

	if lead := length - utf8.RuneCountInString(strings.TrimLeftFunc(line, unicode.IsSpace)); lead > 0 {
		excess++
		left = min(lead, excess)
		excess -= left
		if excess <= 0 {
			return left, 0
		}
	}

	trail := length - utf8.RuneCountInString(strings.TrimRightFunc(line, unicode.IsSpace))
	if marks < 1 || last < width || trail >= excess+1 {
		excess++
		return left, length - excess
	}

	lbound := min(first, length-1)
	rbound := min(last, length)

	if lbound > 0 && rbound >= lbound {
		calcLeft := max(0, (lbound+rbound)/2-width*3/4-1)
		calcLeft = min(calcLeft, lbound)
		if calcLeft > left {
			if left < 1 {
				excess++
			}
			adj := min(calcLeft-left, excess)
			excess -= adj
			left += adj
		}
	}

	if excess > 0 {
		excess++
		right = length - excess
		// The estimate above may sit too far right; pull the left edge back
		// so the window spans the full width between two ellipses.
		if left > 0 {
			left = right - width + 2
		}
	}
	return left, right
}

// columns maps between byte offsets and character positions of a line.
// starts is nil for pure ASCII lines, where both are the same.
type columns struct {
	starts []int
	size   int
}

func newColumns(line string, length int) columns {
	cols := columns{size: len(line)}
	if length == len(line) {
		return cols
	}
	cols.starts = make([]int, 0, length+1)
	for i := range line {
		cols.starts = append(cols.starts, i)
	}
	cols.starts = append(cols.starts, len(line))
	return cols
}

// toRune returns the character position of byte offset off. Offsets inside
// a character round up to the next one; open bound keys pass through.
func (c columns) toRune(off int) int {
	if c.starts == nil || off < 0 {
		return off
	}
	if off >= c.size {
		return len(c.starts) - 1 + off - c.size
	}
	return sort.SearchInts(c.starts, off)
}

// toByte returns the byte offset of character position pos.
func (c columns) toByte(pos int) int {
	if c.starts == nil {
		return pos
	}
	return c.starts[max(0, min(pos, len(c.starts)-1))]
}
