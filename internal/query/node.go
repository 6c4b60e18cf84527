package query

import (
	"sort"
	"strings"
)

// Kind identifies the shape of a Node.
type Kind uint8

const (
	KindBool Kind = iota
	KindTerm
	KindPhrase
	KindPrefix
	KindWildcard
	KindRegexp
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindTerm:
		return "term"
	case KindPhrase:
		return "phrase"
	case KindPrefix:
		return "prefix"
	case KindWildcard:
		return "wildcard"
	case KindRegexp:
		return "regexp"
	}
	return "unknown"
}

// Occur says how a clause participates in its boolean parent.
type Occur uint8

const (
	Must Occur = iota
	Should
	MustNot
)

// Node is one element of a term tree. Leaves carry a Field; boolean nodes
// carry Clauses only.
type Node struct {
	Kind    Kind
	Field   string
	Text    string   // term, prefix, wildcard pattern or regexp
	Words   []string // phrase words, in order
	Clauses []Clause
}

// Clause is a child of a boolean node.
type Clause struct {
	Occur Occur
	Node  *Node
}

func Term(field, text string) *Node {
	return &Node{Kind: KindTerm, Field: field, Text: text}
}

func Phrase(field string, words ...string) *Node {
	return &Node{Kind: KindPhrase, Field: field, Words: words}
}

func Prefix(field, text string) *Node {
	return &Node{Kind: KindPrefix, Field: field, Text: text}
}

func Wildcard(field, pattern string) *Node {
	return &Node{Kind: KindWildcard, Field: field, Text: pattern}
}

func Regexp(field, pattern string) *Node {
	return &Node{Kind: KindRegexp, Field: field, Text: pattern}
}

// Bool returns a boolean node over clauses.
func Bool(clauses ...Clause) *Node {
	return &Node{Kind: KindBool, Clauses: clauses}
}

// HasClause reports whether a boolean node has a direct clause with occur.
func (n *Node) HasClause(occur Occur) bool {
	if n == nil || n.Kind != KindBool {
		return false
	}
	for _, c := range n.Clauses {
		if c.Occur == occur {
			return true
		}
	}
	return false
}

// Fields returns the sorted set of fields referenced anywhere in the tree.
func (n *Node) Fields() []string {
	seen := map[string]struct{}{}
	n.walk(func(leaf *Node) {
		seen[leaf.Field] = struct{}{}
	})
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

func (n *Node) walk(fn func(leaf *Node)) {
	if n == nil {
		return
	}
	if n.Kind != KindBool {
		fn(n)
		return
	}
	for _, c := range n.Clauses {
		c.Node.walk(fn)
	}
}

// String renders the tree in query-string syntax, e.g. `+full:foo -refs:"a b"`.
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb, false)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder, nested bool) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindBool:
		if nested {
			sb.WriteByte('(')
		}
		for i, c := range n.Clauses {
			if i > 0 {
				sb.WriteByte(' ')
			}
			switch c.Occur {
			case Must:
				sb.WriteByte('+')
			case MustNot:
				sb.WriteByte('-')
			}
			c.Node.write(sb, true)
		}
		if nested {
			sb.WriteByte(')')
		}
	case KindTerm, KindWildcard:
		sb.WriteString(n.Field + ":" + n.Text)
	case KindPrefix:
		sb.WriteString(n.Field + ":" + n.Text + "*")
	case KindPhrase:
		sb.WriteString(n.Field + `:"` + strings.Join(n.Words, " ") + `"`)
	case KindRegexp:
		sb.WriteString(n.Field + ":/" + n.Text + "/")
	}
}
