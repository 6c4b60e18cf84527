package highlight

import (
	"slices"
	"unicode/utf8"
)

// LineHighlight collects the highlights of one line and the elision points
// chosen for it. LeftElide and RightElide are line-relative; zero means the
// line is not elided on that side.
type LineHighlight struct {
	LineNo     int // 0-based
	Markups    []PhraseHighlight
	LeftElide  int
	RightElide int
}

// NewLineHighlight returns an empty highlight record for line.
func NewLineHighlight(line int) *LineHighlight {
	return &LineHighlight{LineNo: line}
}

// Add appends a highlight. Call Condense before reading Markups.
func (lh *LineHighlight) Add(p PhraseHighlight) {
	lh.Markups = append(lh.Markups, p)
}

// HasMarkups reports whether anything on the line is highlighted.
func (lh *LineHighlight) HasMarkups() bool { return len(lh.Markups) > 0 }

// Condense sorts the highlights and merges every overlapping or adjacent
// pair into its union, leaving a sorted list of disjoint highlights.
func (lh *LineHighlight) Condense() {
	slices.SortStableFunc(lh.Markups, func(a, b PhraseHighlight) int {
		switch {
		case a.less(b):
			return -1
		case b.less(a):
			return 1
		}
		return 0
	})
	for i := 0; i+1 < len(lh.Markups); {
		if lh.Markups[i].touches(lh.Markups[i+1]) {
			lh.Markups[i] = lh.Markups[i].union(lh.Markups[i+1])
			lh.Markups = slices.Delete(lh.Markups, i+1, i+2)
			continue
		}
		i++
	}
}

// Segment is a run of line text that is either highlighted or not.
type Segment struct {
	Text      string
	Highlight bool
}

// Rendered is a line split into segments, limited to the window left after
// elision.
type Rendered struct {
	LineNo      int
	Segments    []Segment
	LeftElided  bool
	RightElided bool
}

// Render splits line into plain and highlighted segments and drops what the
// elision offsets cut away. line must not include its terminator. All
// offsets are clamped to the line.
func (lh *LineHighlight) Render(line string) Rendered {
	n := len(line)
	lo := clamp(lh.LeftElide, 0, n)
	hi := n
	if lh.RightElide > 0 {
		hi = clamp(lh.RightElide, lo, n)
	}
	// Never cut a multi-byte rune in half.
	for lo < n && !utf8.RuneStart(line[lo]) {
		lo++
	}
	for hi > lo && hi < n && !utf8.RuneStart(line[hi]) {
		hi--
	}

	r := Rendered{LineNo: lh.LineNo, LeftElided: lo > 0, RightElided: hi < n}
	emit := func(start, end int, highlighted bool) {
		start = clamp(start, lo, hi)
		end = clamp(end, lo, hi)
		if start < end {
			r.Segments = append(r.Segments, Segment{Text: line[start:end], Highlight: highlighted})
		}
	}

	loff := 0
	for _, p := range lh.Markups {
		if p.StartKey() >= n {
			break
		}
		if s := p.StartKey(); s > loff {
			emit(loff, s, false)
			loff = s
		}
		end := min(p.EndKey(), n)
		emit(loff, end, true)
		loff = max(loff, end)
	}
	emit(loff, n, false)
	return r
}

// Marks returns the text of each highlight lying wholly on the line.
func (lh *LineHighlight) Marks(line string) []string {
	var marks []string
	for _, p := range lh.Markups {
		s, sok := p.Start.Offset()
		e, eok := p.End.Offset()
		if sok && eok && s >= 0 && s <= e && e <= len(line) {
			marks = append(marks, line[s:e])
		}
	}
	return marks
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
