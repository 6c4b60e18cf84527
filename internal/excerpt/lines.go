package excerpt

import (
	"strings"

	"github.com/google/btree"

	"github.com/dl/gogrok/internal/output"
)

// Entry is one formatted line: the structured line and its rendered fragment.
type Entry struct {
	Line     output.Line
	Fragment string
}

type item struct {
	no int
	Entry
}

func lessItem(a, b item) bool { return a.no < b.no }

// FormattedLines is an ordered map from 0-based line number to formatted
// line, with an optional footer shown when the lines were limited.
type FormattedLines struct {
	tree    *btree.BTreeG[item]
	footer  string
	limited bool
}

func NewFormattedLines() *FormattedLines {
	return &FormattedLines{tree: btree.NewG(8, lessItem)}
}

// Put sets the entry for a line, replacing any present.
func (f *FormattedLines) Put(line int, e Entry) {
	f.tree.ReplaceOrInsert(item{no: line, Entry: e})
}

// Get returns the entry for a line.
func (f *FormattedLines) Get(line int) (Entry, bool) {
	it, ok := f.tree.Get(item{no: line})
	return it.Entry, ok
}

func (f *FormattedLines) Len() int { return f.tree.Len() }

// Pop removes the highest line and returns it. ok is false when empty.
func (f *FormattedLines) Pop() (line int, e Entry, ok bool) {
	it, ok := f.tree.DeleteMax()
	return it.no, it.Entry, ok
}

// Limited reports whether lines were left out.
func (f *FormattedLines) Limited() bool { return f.limited }

func (f *FormattedLines) SetLimited(v bool) { f.limited = v }

// Footer is the "more" link written after limited lines.
func (f *FormattedLines) Footer() string { return f.footer }

func (f *FormattedLines) SetFooter(s string) { f.footer = s }

// Merge returns a new instance holding every line of f plus the lines of
// other that f lacks. On collision f wins. The footer is f's unless empty,
// and the result is limited if either input was.
func (f *FormattedLines) Merge(other *FormattedLines) *FormattedLines {
	res := &FormattedLines{tree: f.tree.Clone(), footer: f.footer, limited: f.limited}
	if other == nil {
		return res
	}
	other.tree.Ascend(func(it item) bool {
		if !res.tree.Has(it) {
			res.tree.ReplaceOrInsert(it)
		}
		return true
	})
	if res.footer == "" {
		res.footer = other.footer
	}
	res.limited = res.limited || other.limited
	return res
}

// Lines returns the structured lines in line order.
func (f *FormattedLines) Lines() []output.Line {
	out := make([]output.Line, 0, f.tree.Len())
	f.tree.Ascend(func(it item) bool {
		out = append(out, it.Line)
		return true
	})
	return out
}

// String concatenates the fragments in line order, followed by the footer
// when limited.
func (f *FormattedLines) String() string {
	var sb strings.Builder
	f.tree.Ascend(func(it item) bool {
		sb.WriteString(it.Fragment)
		return true
	})
	if f.limited {
		sb.WriteString(f.footer)
	}
	return sb.String()
}

// Union merges parts in order, first wins, then drops the highest lines
// until at most limit remain. Dropping lines marks the result limited.
func Union(limit int, parts ...*FormattedLines) *FormattedLines {
	res := NewFormattedLines()
	for _, p := range parts {
		if p != nil {
			res = res.Merge(p)
		}
	}
	if limit > 0 && res.Len() > limit {
		for res.Len() > limit {
			res.Pop()
		}
		res.limited = true
	}
	return res
}
