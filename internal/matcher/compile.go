package matcher

import (
	"github.com/charmbracelet/log"

	"github.com/dl/gogrok/internal/query"
)

// FieldCase lists the fields whose terms are highlighted and whether each
// compares case-insensitively. Terms on other fields are ignored.
type FieldCase map[string]bool

// ContextFields covers the fields shown as source context.
var ContextFields = FieldCase{
	query.FieldFull: true,
	query.FieldRefs: false,
	query.FieldDefs: false,
}

// HistoryFields covers history log messages.
var HistoryFields = FieldCase{
	query.FieldHist: true,
}

// Options configures Compile.
type Options struct {
	Engine EngineKind
	Logger *log.Logger
}

// Set is the compiled form of a query. A nil Set means the query has nothing
// that can be highlighted; callers must skip context entirely in that case.
type Set []*Matcher

// Compile turns the highlightable leaves of tree into matchers. Subtrees
// under a MustNot clause are skipped. Plain terms collapse into at most two
// token-set matchers, case-sensitive first; every other leaf gets its own
// matcher. Patterns that fail to compile are logged and dropped.
func Compile(tree *query.Node, fields FieldCase, opts Options) Set {
	c := &compiler{
		fields: fields,
		opts:   opts,
		exact:  map[string]struct{}{},
		folded: map[string]struct{}{},
	}
	if c.opts.Logger == nil {
		c.opts.Logger = log.Default()
	}
	c.walk(tree)

	var set Set
	if len(c.exact) > 0 {
		set = append(set, newTokenSet(c.exact, false))
	}
	if len(c.folded) > 0 {
		set = append(set, newTokenSet(c.folded, true))
	}
	set = append(set, c.others...)
	if len(set) == 0 {
		return nil
	}
	return set
}

type compiler struct {
	fields FieldCase
	opts   Options
	exact  map[string]struct{}
	folded map[string]struct{}
	others []*Matcher
}

func (c *compiler) walk(n *query.Node) {
	if n == nil {
		return
	}
	if n.Kind == query.KindBool {
		for _, cl := range n.Clauses {
			if cl.Occur != query.MustNot {
				c.walk(cl.Node)
			}
		}
		return
	}

	ignoreCase, ok := c.fields[n.Field]
	if !ok {
		return
	}
	switch n.Kind {
	case query.KindTerm:
		c.addTerm(n.Text, ignoreCase)
	case query.KindPhrase:
		if len(n.Words) > 0 {
			c.others = append(c.others, newPhrase(n.Words, ignoreCase))
		}
	case query.KindPrefix:
		c.others = append(c.others, newPrefix(n.Text, ignoreCase))
	case query.KindWildcard:
		c.others = append(c.others, newWildcard(n.Text, ignoreCase))
	case query.KindRegexp:
		// A pattern with no metacharacters only matches itself.
		if isLiteral(n.Text) {
			c.addTerm(n.Text, ignoreCase)
			return
		}
		re, err := NewEngine(c.opts.Engine, n.Text, ignoreCase)
		if err != nil {
			c.opts.Logger.Warn("invalid regexp", "field", n.Field, "pattern", n.Text, "err", err)
			return
		}
		c.others = append(c.others, newRegexp(re, n.Text, ignoreCase))
	}
}

func (c *compiler) addTerm(text string, ignoreCase bool) {
	if text == "" {
		return
	}
	if ignoreCase {
		c.folded[fold(text, true)] = struct{}{}
	} else {
		c.exact[text] = struct{}{}
	}
}

// Reset drops phrase progress on every matcher.
func (s Set) Reset() {
	for _, m := range s {
		m.Reset()
	}
}

// Close releases engine resources held by regexp matchers.
func (s Set) Close() {
	for _, m := range s {
		m.close()
	}
}

// Literal is a string that must occur in any text a matcher can match.
type Literal struct {
	Text       string
	IgnoreCase bool
}

// Literals returns, for every matcher, one literal that any matching token
// contains. ok is false when some matcher has no such literal, in which case
// no document can be ruled out by a literal search.
func (s Set) Literals() (lits []Literal, ok bool) {
	for _, m := range s {
		switch m.kind {
		case KindTokenSet:
			for tok := range m.tokens {
				lits = append(lits, Literal{Text: tok, IgnoreCase: m.ignoreCase})
			}
		case KindPrefix:
			if m.pattern == "" {
				return nil, false
			}
			lits = append(lits, Literal{Text: m.pattern, IgnoreCase: m.ignoreCase})
		case KindPhrase:
			lits = append(lits, Literal{Text: m.words[0], IgnoreCase: m.ignoreCase})
		case KindWildcard:
			stem := wildcardStem(m.pattern)
			if stem == "" {
				return nil, false
			}
			lits = append(lits, Literal{Text: stem, IgnoreCase: m.ignoreCase})
		case KindRegexp:
			lit, found := regexpLiteral(m.source, m.ignoreCase)
			if !found {
				return nil, false
			}
			lits = append(lits, lit)
		}
	}
	return lits, len(lits) > 0
}

// wildcardStem returns the literal text before the first wildcard.
func wildcardStem(pattern string) string {
	for i, r := range pattern {
		if r == '*' || r == '?' {
			return pattern[:i]
		}
	}
	return pattern
}
