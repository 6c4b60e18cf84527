package query

import (
	"errors"
	"fmt"
	"strings"

	bquery "github.com/blevesearch/bleve/v2/search/query"
)

// ErrNoTerms is returned when a query string parses but names nothing that
// can be searched for.
var ErrNoTerms = errors.New("query has no terms")

// ParseError describes a field query that could not be parsed.
type ParseError struct {
	Field string
	Text  string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s query %q: %v", e.Field, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse parses a query string into a term tree. Unqualified terms are
// attached to field; "other:term" qualifiers are honoured.
func Parse(field, text string) (*Node, error) {
	parsed, err := bquery.NewQueryStringQuery(text).Parse()
	if err != nil {
		return nil, &ParseError{Field: field, Text: text, Err: err}
	}
	n := convert(field, parsed)
	if n == nil {
		return nil, &ParseError{Field: field, Text: text, Err: ErrNoTerms}
	}
	return n, nil
}

// convert maps a bleve query onto a term tree. Queries with no textual
// meaning (numeric or date ranges, match-all) convert to nil.
func convert(field string, q bquery.Query) *Node {
	switch q := q.(type) {
	case *bquery.BooleanQuery:
		var clauses []Clause
		clauses = appendClauses(clauses, field, Must, q.Must)
		clauses = appendClauses(clauses, field, Should, q.Should)
		clauses = appendClauses(clauses, field, MustNot, q.MustNot)
		return collapse(clauses)
	case *bquery.ConjunctionQuery:
		return collapse(appendClauses(nil, field, Must, q))
	case *bquery.DisjunctionQuery:
		return collapse(appendClauses(nil, field, Should, q))
	case *bquery.MatchQuery:
		return textNode(fieldOf(q.FieldVal, field), q.Match)
	case *bquery.MatchPhraseQuery:
		return textNode(fieldOf(q.FieldVal, field), q.MatchPhrase)
	case *bquery.TermQuery:
		return Term(fieldOf(q.FieldVal, field), q.Term)
	case *bquery.FuzzyQuery:
		return Term(fieldOf(q.FieldVal, field), q.Term)
	case *bquery.PrefixQuery:
		return Prefix(fieldOf(q.FieldVal, field), q.Prefix)
	case *bquery.WildcardQuery:
		return wildcardNode(fieldOf(q.FieldVal, field), q.Wildcard)
	case *bquery.RegexpQuery:
		return Regexp(fieldOf(q.FieldVal, field), q.Regexp)
	}
	return nil
}

// appendClauses flattens bleve's conjunction/disjunction wrappers into
// clauses of the given occur.
func appendClauses(clauses []Clause, field string, occur Occur, q bquery.Query) []Clause {
	switch sub := q.(type) {
	case nil:
		return clauses
	case *bquery.ConjunctionQuery:
		if sub == nil {
			return clauses
		}
		if occur == Must {
			for _, c := range sub.Conjuncts {
				clauses = appendClause(clauses, occur, convert(field, c))
			}
			return clauses
		}
	case *bquery.DisjunctionQuery:
		if sub == nil {
			return clauses
		}
		if occur == Should || occur == MustNot {
			for _, d := range sub.Disjuncts {
				clauses = appendClause(clauses, occur, convert(field, d))
			}
			return clauses
		}
	}
	return appendClause(clauses, occur, convert(field, q))
}

func appendClause(clauses []Clause, occur Occur, n *Node) []Clause {
	if n == nil {
		return clauses
	}
	return append(clauses, Clause{Occur: occur, Node: n})
}

// collapse returns a lone positive clause as itself, the way a query parser
// returns a bare term for single-word input.
func collapse(clauses []Clause) *Node {
	switch {
	case len(clauses) == 0:
		return nil
	case len(clauses) == 1 && clauses[0].Occur != MustNot:
		return clauses[0].Node
	}
	return Bool(clauses...)
}

func fieldOf(explicit, dflt string) string {
	if explicit != "" {
		return explicit
	}
	return dflt
}

// textNode analyzes free text: one word is a term, several form a phrase.
func textNode(field, text string) *Node {
	words := Words(text)
	switch len(words) {
	case 0:
		return nil
	case 1:
		return Term(field, words[0])
	}
	return Phrase(field, words...)
}

// wildcardNode turns "foo*" into a prefix query and keeps anything else as a
// wildcard pattern.
func wildcardNode(field, pattern string) *Node {
	if strings.HasSuffix(pattern, "*") {
		stem := pattern[:len(pattern)-1]
		if stem != "" && !strings.ContainsAny(stem, "*?") {
			return Prefix(field, stem)
		}
	}
	return Wildcard(field, pattern)
}
