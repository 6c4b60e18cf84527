package highlight

import (
	"fmt"
	"math"
)

type boundKind uint8

const (
	closed boundKind = iota
	openStart
	openEnd
)

// Bound is one end of a PhraseHighlight: a line-relative offset, or open
// when the highlight continues from a previous line or onto the next one.
type Bound struct {
	kind boundKind
	off  int
}

// Closed returns a bound at a line-relative offset.
func Closed(off int) Bound { return Bound{kind: closed, off: off} }

var (
	// OpenStart marks a highlight that began on an earlier line.
	OpenStart = Bound{kind: openStart}
	// OpenEnd marks a highlight that continues past the line.
	OpenEnd = Bound{kind: openEnd}
)

// Offset returns the offset of a closed bound.
func (b Bound) Offset() (int, bool) {
	return b.off, b.kind == closed
}

// IsOpen reports whether the bound is OpenStart or OpenEnd.
func (b Bound) IsOpen() bool { return b.kind != closed }

// key orders bounds on one axis: OpenStart before every offset and OpenEnd
// after every offset.
func (b Bound) key() int {
	switch b.kind {
	case openStart:
		return -1
	case openEnd:
		return math.MaxInt
	}
	return b.off
}

func (b Bound) String() string {
	switch b.kind {
	case openStart, openEnd:
		return "open"
	}
	return fmt.Sprint(b.off)
}

// PhraseHighlight is a highlighted range on one line.
type PhraseHighlight struct {
	Start Bound
	End   Bound
}

// Span highlights [start, end) within a single line.
func Span(start, end int) PhraseHighlight {
	return PhraseHighlight{Start: Closed(start), End: Closed(end)}
}

// Starter highlights from start to the end of the line and beyond.
func Starter(start int) PhraseHighlight {
	return PhraseHighlight{Start: Closed(start), End: OpenEnd}
}

// Ender highlights from a previous line up to end.
func Ender(end int) PhraseHighlight {
	return PhraseHighlight{Start: OpenStart, End: Closed(end)}
}

// Entire highlights a whole line inside a multi-line match.
func Entire() PhraseHighlight {
	return PhraseHighlight{Start: OpenStart, End: OpenEnd}
}

// StartKey and EndKey flatten the bounds to integers, with -1 for an open
// start and math.MaxInt for an open end.
func (p PhraseHighlight) StartKey() int { return p.Start.key() }
func (p PhraseHighlight) EndKey() int   { return p.End.key() }

// less orders by start ascending, open starts first, then by end descending,
// so a longer highlight precedes a shorter one with the same start.
func (p PhraseHighlight) less(o PhraseHighlight) bool {
	if p.StartKey() != o.StartKey() {
		return p.StartKey() < o.StartKey()
	}
	return p.EndKey() > o.EndKey()
}

// touches reports whether p and o overlap or abut.
func (p PhraseHighlight) touches(o PhraseHighlight) bool {
	return p.StartKey() <= o.EndKey() && o.StartKey() <= p.EndKey()
}

// union returns the smallest highlight covering both p and o.
func (p PhraseHighlight) union(o PhraseHighlight) PhraseHighlight {
	u := p
	if o.StartKey() < u.StartKey() {
		u.Start = o.Start
	}
	if o.EndKey() > u.EndKey() {
		u.End = o.End
	}
	return u
}

func (p PhraseHighlight) String() string {
	return fmt.Sprintf("(%v, %v)", p.Start, p.End)
}
