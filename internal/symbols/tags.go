package symbols

import "slices"

// Tag is a definition found in a source file. Line numbers are 1-based, as
// ctags writes them.
type Tag struct {
	Line   int    `json:"line"`
	Symbol string `json:"symbol"`
	Type   string `json:"type,omitempty"`
	Text   string `json:"text,omitempty"`
	// End is the last line of the definition body, or 0 when unknown.
	End int `json:"end,omitempty"`
}

// Definitions holds the tags of one document, indexed by line.
type Definitions struct {
	tags   []Tag
	byLine map[int][]int
}

// NewDefinitions returns a set holding tags in the order given.
func NewDefinitions(tags ...Tag) *Definitions {
	d := &Definitions{byLine: map[int][]int{}}
	for _, t := range tags {
		d.Add(t)
	}
	return d
}

// Add appends a tag.
func (d *Definitions) Add(t Tag) {
	if d.byLine == nil {
		d.byLine = map[int][]int{}
	}
	d.byLine[t.Line] = append(d.byLine[t.Line], len(d.tags))
	d.tags = append(d.tags, t)
}

// All returns every tag in insertion order.
func (d *Definitions) All() []Tag {
	if d == nil {
		return nil
	}
	return d.tags
}

func (d *Definitions) Len() int {
	if d == nil {
		return 0
	}
	return len(d.tags)
}

// LineTags returns the tags defined on a 1-based line.
func (d *Definitions) LineTags(line int) []Tag {
	if d == nil {
		return nil
	}
	idx := d.byLine[line]
	if len(idx) == 0 {
		return nil
	}
	out := make([]Tag, len(idx))
	for i, j := range idx {
		out[i] = d.tags[j]
	}
	return out
}

// HasLine reports whether any tag sits on a 1-based line.
func (d *Definitions) HasLine(line int) bool {
	return d != nil && len(d.byLine[line]) > 0
}

// HasSymbol reports whether symbol is defined anywhere in the document.
func (d *Definitions) HasSymbol(symbol string) bool {
	if d == nil {
		return false
	}
	return slices.ContainsFunc(d.tags, func(t Tag) bool { return t.Symbol == symbol })
}

// Scopes builds the scope table from tags that know where their body ends.
func (d *Definitions) Scopes() *Scopes {
	s := &Scopes{}
	for _, t := range d.All() {
		if t.End > t.Line && isScopeKind(t.Type) {
			s.Add(Scope{From: t.Line, To: t.End, Name: t.Symbol})
		}
	}
	return s
}

func isScopeKind(kind string) bool {
	switch kind {
	case "function", "method", "func", "procedure", "subroutine", "constructor":
		return true
	}
	return false
}
