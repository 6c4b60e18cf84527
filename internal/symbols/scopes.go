package symbols

import "sort"

// Scope is a named block of source spanning lines From through To, both
// 1-based and inclusive.
type Scope struct {
	From int    `json:"from"`
	To   int    `json:"to"`
	Name string `json:"name"`
}

// Contains reports whether line falls inside the scope.
func (s Scope) Contains(line int) bool {
	return line >= s.From && line <= s.To
}

// Scopes is a table of possibly nested scopes.
type Scopes struct {
	scopes []Scope // sorted by From, then widest first
}

// Add inserts a scope, keeping the table ordered.
func (s *Scopes) Add(sc Scope) {
	i := sort.Search(len(s.scopes), func(i int) bool {
		o := s.scopes[i]
		if o.From != sc.From {
			return o.From > sc.From
		}
		return o.To < sc.To
	})
	s.scopes = append(s.scopes, Scope{})
	copy(s.scopes[i+1:], s.scopes[i:])
	s.scopes[i] = sc
}

func (s *Scopes) Len() int {
	if s == nil {
		return 0
	}
	return len(s.scopes)
}

// Lookup returns the innermost scope containing a 1-based line. ok is false
// when the line is at file level.
func (s *Scopes) Lookup(line int) (sc Scope, ok bool) {
	if s == nil {
		return Scope{}, false
	}
	// Last scope starting at or before line; walking back from it, the first
	// one still open at line is the innermost.
	i := sort.Search(len(s.scopes), func(i int) bool { return s.scopes[i].From > line })
	for i--; i >= 0; i-- {
		if s.scopes[i].Contains(line) {
			return s.scopes[i], true
		}
	}
	return Scope{}, false
}
