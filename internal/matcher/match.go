package matcher

import "strings"

// Result is the outcome of offering one token to a Matcher.
type Result uint8

const (
	NotMatched Result = iota
	Matched
	Wait // a phrase has matched a prefix of its words and needs the next token
)

func (r Result) String() string {
	switch r {
	case Matched:
		return "matched"
	case Wait:
		return "wait"
	}
	return "not matched"
}

// Kind identifies a Matcher variant.
type Kind uint8

const (
	KindTokenSet Kind = iota
	KindWildcard
	KindPrefix
	KindPhrase
	KindRegexp
)

// Matcher decides whether single tokens satisfy one compiled query leaf.
// Only phrase matchers hold state between calls; a Matcher is therefore
// owned by one scan at a time.
type Matcher struct {
	kind       Kind
	ignoreCase bool

	tokens  map[string]struct{} // KindTokenSet
	pattern string              // KindWildcard, KindPrefix
	words   []string            // KindPhrase
	re      Engine              // KindRegexp
	source  string              // KindRegexp pattern as written

	pos int // phrase progress
}

func newTokenSet(tokens map[string]struct{}, ignoreCase bool) *Matcher {
	return &Matcher{kind: KindTokenSet, ignoreCase: ignoreCase, tokens: tokens}
}

func newWildcard(pattern string, ignoreCase bool) *Matcher {
	return &Matcher{kind: KindWildcard, ignoreCase: ignoreCase, pattern: fold(pattern, ignoreCase)}
}

func newPrefix(prefix string, ignoreCase bool) *Matcher {
	return &Matcher{kind: KindPrefix, ignoreCase: ignoreCase, pattern: fold(prefix, ignoreCase)}
}

func newPhrase(words []string, ignoreCase bool) *Matcher {
	folded := make([]string, len(words))
	for i, w := range words {
		folded[i] = fold(w, ignoreCase)
	}
	return &Matcher{kind: KindPhrase, ignoreCase: ignoreCase, words: folded}
}

func newRegexp(re Engine, source string, ignoreCase bool) *Matcher {
	return &Matcher{kind: KindRegexp, ignoreCase: ignoreCase, re: re, source: source}
}

// Kind returns the matcher variant.
func (m *Matcher) Kind() Kind { return m.kind }

// IgnoreCase reports whether the matcher folds case.
func (m *Matcher) IgnoreCase() bool { return m.ignoreCase }

// Match offers token to the matcher.
func (m *Matcher) Match(token string) Result {
	switch m.kind {
	case KindTokenSet:
		if _, ok := m.tokens[fold(token, m.ignoreCase)]; ok {
			return Matched
		}
	case KindWildcard:
		if wildcardMatch(m.pattern, fold(token, m.ignoreCase)) {
			return Matched
		}
	case KindPrefix:
		if strings.HasPrefix(fold(token, m.ignoreCase), m.pattern) {
			return Matched
		}
	case KindPhrase:
		return m.matchPhrase(fold(token, m.ignoreCase))
	case KindRegexp:
		if m.re != nil && m.re.MatchString(token) {
			return Matched
		}
	}
	return NotMatched
}

// matchPhrase advances through the phrase words. A mismatch drops all
// progress, then the token gets a fresh chance as the first word.
func (m *Matcher) matchPhrase(token string) Result {
	if len(m.words) == 0 {
		return NotMatched
	}
	if token == m.words[m.pos] {
		if m.pos < len(m.words)-1 {
			m.pos++
			return Wait
		}
		m.pos = 0
		return Matched
	}
	if m.pos > 0 {
		m.pos = 0
		if token == m.words[0] {
			if len(m.words) == 1 {
				return Matched
			}
			m.pos = 1
			return Wait
		}
	}
	return NotMatched
}

// Reset drops any phrase progress.
func (m *Matcher) Reset() { m.pos = 0 }

// Progress returns how many phrase words have been seen in a row so far. It
// is 1 right after a token started a new partial match.
func (m *Matcher) Progress() int { return m.pos }

func (m *Matcher) close() {
	if c, ok := m.re.(interface{ Close() }); ok {
		c.Close()
	}
}

func fold(s string, ignoreCase bool) string {
	if ignoreCase {
		return strings.ToLower(s)
	}
	return s
}

// wildcardMatch reports whether s matches pattern in full, where '?' stands
// for exactly one rune and '*' for any run of runes.
func wildcardMatch(pattern, s string) bool {
	p := []rune(pattern)
	r := []rune(s)
	pi, si := 0, 0
	star, mark := -1, 0
	for si < len(r) {
		switch {
		case pi < len(p) && (p[pi] == '?' || p[pi] == r[si]):
			pi++
			si++
		case pi < len(p) && p[pi] == '*':
			star = pi
			mark = si
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '*' {
		pi++
	}
	return pi == len(p)
}
