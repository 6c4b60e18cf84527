package query

import (
	"errors"
	"net/url"
	"slices"
	"sort"
	"strings"
)

// Searchable fields.
const (
	FieldFull    = "full"
	FieldDefs    = "defs"
	FieldRefs    = "refs"
	FieldPath    = "path"
	FieldHist    = "hist"
	FieldType    = "type"
	FieldDirPath = "dirpath"
)

// Builder collects per-field query text and combines it into one term tree.
// The zero value is not usable; call NewBuilder.
type Builder struct {
	queries map[string]string
}

func NewBuilder() *Builder {
	return &Builder{queries: make(map[string]string)}
}

func (b *Builder) SetFreetext(s string) *Builder { return b.set(FieldFull, s) }
func (b *Builder) SetDefs(s string) *Builder     { return b.set(FieldDefs, s) }
func (b *Builder) SetRefs(s string) *Builder     { return b.set(FieldRefs, s) }
func (b *Builder) SetPath(s string) *Builder     { return b.set(FieldPath, s) }
func (b *Builder) SetHist(s string) *Builder     { return b.set(FieldHist, s) }
func (b *Builder) SetType(s string) *Builder     { return b.set(FieldType, s) }

// SetDirPath restricts the query to one directory, stored as its index key.
func (b *Builder) SetDirPath(path string) *Builder {
	if path == "" {
		return b.set(FieldDirPath, "")
	}
	return b.set(FieldDirPath, DirPathKey(path))
}

func (b *Builder) Freetext() string { return b.queries[FieldFull] }
func (b *Builder) Defs() string     { return b.queries[FieldDefs] }
func (b *Builder) Refs() string     { return b.queries[FieldRefs] }
func (b *Builder) Path() string     { return b.queries[FieldPath] }
func (b *Builder) Hist() string     { return b.queries[FieldHist] }
func (b *Builder) Type() string     { return b.queries[FieldType] }
func (b *Builder) DirPath() string  { return b.queries[FieldDirPath] }

// Queries returns a copy of the per-field query text.
func (b *Builder) Queries() map[string]string {
	m := make(map[string]string, len(b.queries))
	for k, v := range b.queries {
		m[k] = v
	}
	return m
}

// Size returns the number of fields with query text.
func (b *Builder) Size() int { return len(b.queries) }

func (b *Builder) set(field, text string) *Builder {
	if text == "" {
		delete(b.queries, field)
	} else {
		b.queries[field] = text
	}
	return b
}

func (b *Builder) has(field string) bool {
	_, ok := b.queries[field]
	return ok
}

// IsDefSearch reports whether only definitions (optionally narrowed by type)
// are being searched.
func (b *Builder) IsDefSearch() bool {
	return b.has(FieldDefs) &&
		!b.has(FieldFull) && !b.has(FieldRefs) && !b.has(FieldPath) &&
		!b.has(FieldHist) && !b.has(FieldDirPath)
}

// IsPathSearch reports whether only the path field is being searched.
func (b *Builder) IsPathSearch() bool {
	return b.has(FieldPath) &&
		!b.has(FieldFull) && !b.has(FieldRefs) && !b.has(FieldDefs) &&
		!b.has(FieldHist) && !b.has(FieldDirPath)
}

// Build parses every field and combines the results. It returns nil when no
// field is set. A field that fails to parse is left out of the tree and its
// error is reported alongside whatever could be built.
func (b *Builder) Build() (*Node, error) {
	if len(b.queries) == 0 {
		return nil, nil
	}

	fields := make([]string, 0, len(b.queries))
	for f := range b.queries {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var (
		parts []*Node
		errs  []error
	)
	for _, f := range fields {
		n, err := Parse(f, Escape(f, b.queries[f]))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parts = append(parts, n)
	}
	return combine(parts), errors.Join(errs...)
}

// combine ANDs sub-queries together. Boolean sub-queries are flattened so
// negations apply to the whole query, except those made only of optional
// clauses: flattening those would drop the requirement that one of them
// matches, so they stay nested.
func combine(parts []*Node) *Node {
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}

	var clauses []Clause
	for _, n := range parts {
		if n.Kind == KindBool && !(n.HasClause(Should) && !n.HasClause(Must)) {
			clauses = append(clauses, n.Clauses...)
			continue
		}
		clauses = append(clauses, Clause{Occur: Must, Node: n})
	}
	return Bool(clauses...)
}

// ContextFields returns the fields among defs, refs and full that the built
// query references, in that order.
func (b *Builder) ContextFields() []string {
	n, _ := b.Build()
	if n == nil {
		return nil
	}
	present := n.Fields()
	var fields []string
	for _, f := range []string{FieldDefs, FieldRefs, FieldFull} {
		if slices.Contains(present, f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// QueryParams encodes the query as URL parameters for links back to a
// search, e.g. "full=foo&defs=bar".
func (b *Builder) QueryParams() string {
	var parts []string
	for _, f := range []string{FieldFull, FieldDefs, FieldRefs, FieldPath, FieldHist, FieldType} {
		if v, ok := b.queries[f]; ok {
			parts = append(parts, f+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}
