// Package excerpt renders per-line highlights into bounded excerpts and
// merges the excerpts of several query fields into one.
package excerpt

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/dl/gogrok/internal/highlight"
	"github.com/dl/gogrok/internal/lineindex"
	"github.com/dl/gogrok/internal/output"
	"github.com/dl/gogrok/internal/query"
	"github.com/dl/gogrok/internal/symbols"
)

// Formatter turns the match spans of one document into FormattedLines.
// A Formatter is not safe for concurrent use; it caches the line index of
// the last text it formatted.
type Formatter struct {
	// URL links each line; "#N" is appended.
	URL string
	// MoreURL, when set, becomes the footer link to the complete result.
	MoreURL string
	// Defs and Scopes are optional annotation sources.
	Defs   *symbols.Definitions
	Scopes *symbols.Scopes

	args     highlight.ContextArgs
	conv     *highlight.Converter
	renderer output.Renderer
	ix       *lineindex.Index
	buf      []byte
}

// NewFormatter returns a formatter rendering with r.
func NewFormatter(args highlight.ContextArgs, r output.Renderer) *Formatter {
	return &Formatter{
		args:     args,
		conv:     highlight.NewConverter(args),
		renderer: r,
	}
}

// Args returns the formatter's context arguments.
func (f *Formatter) Args() highlight.ContextArgs { return f.args }

// Format converts spans over text to lines and renders them, stopping at the
// line limit.
func (f *Formatter) Format(spans []highlight.MatchSpan, text string) *FormattedLines {
	if f.ix == nil {
		f.ix = lineindex.New(text)
	} else {
		f.ix.Reset(text)
	}

	lines := f.conv.Convert(spans, f.ix).Slice()
	res := NewFormattedLines()
	limit := f.contextLimit(lines)
	framed := f.args.SurroundLines > 0

	reported := map[int]struct{}{}
	last := 0
	if len(lines) > 0 {
		last = lines[0].LineNo
	}

	for i, lh := range lines {
		if i >= limit {
			res.limited = true
			break
		}
		text := f.ix.LineNoEOL(lh.LineNo)
		l := output.Line{Rendered: lh.Render(text), Framed: framed}
		if framed {
			l.Overline = lh.LineNo-last > 1
			last = lh.LineNo
			if l.Overline {
				clear(reported)
			}
		}
		if lh.HasMarkups() {
			// Definitions and scopes use 1-based lines.
			l.Tag = f.tagFor(lh.LineNo+1, lh.Marks(text))
			if sc, ok := f.Scopes.Lookup(lh.LineNo + 1); ok {
				if _, seen := reported[sc.From]; !framed || !seen {
					reported[sc.From] = struct{}{}
					l.Scope = &sc
				}
			}
		}

		f.buf = f.renderer.AppendLine(f.buf[:0], f.URL, l)
		res.Put(lh.LineNo, Entry{Line: l, Fragment: string(f.buf)})
	}

	if f.MoreURL != "" {
		res.footer = string(f.renderer.AppendMore(nil, f.MoreURL))
	}
	return res
}

// contextLimit returns how many of lines may be shown. With surrounding
// context on, the cut is moved back so the excerpt does not end on context
// lines that belong to a match beyond the limit.
func (f *Formatter) contextLimit(lines []*highlight.LineHighlight) int {
	limit := f.args.LineLimit
	if limit < 1 {
		return math.MaxInt
	}
	if f.args.SurroundLines < 1 || len(lines) <= limit {
		return limit
	}

	i := limit - 1
	last := lines[i].LineNo
	newLimit := limit
	trailing := 0
	for ; i >= 0; i-- {
		lh := lines[i]
		if lh.HasMarkups() {
			break
		}
		switch {
		case last-lh.LineNo > 1:
			// A gap before any highlight: cut there.
			newLimit = i + 1
			trailing = 1
		case trailing+1 > f.args.SurroundLines:
			newLimit--
		default:
			trailing++
		}
		last = lh.LineNo
	}
	return newLimit
}

// tagFor returns the type of the first typed tag on line whose symbol starts
// one of marks and is followed by the mark's end or a non-word rune.
func (f *Formatter) tagFor(line int, marks []string) string {
	if len(marks) == 0 {
		return ""
	}
	for _, tag := range f.Defs.LineTags(line) {
		if tag.Type == "" {
			continue
		}
		for _, m := range marks {
			if !strings.HasPrefix(m, tag.Symbol) {
				continue
			}
			if len(m) == len(tag.Symbol) {
				return tag.Type
			}
			if r, _ := utf8.DecodeRuneInString(m[len(tag.Symbol):]); !query.IsWordRune(r) {
				return tag.Type
			}
		}
	}
	return ""
}

// RenderLines renders lines that did not come from a Formatter, such as
// live scan hits, appending the more link when limited is set.
func RenderLines(r output.Renderer, url string, lines []output.Line, moreURL string, limited bool) string {
	var buf []byte
	for _, l := range lines {
		buf = r.AppendLine(buf, url, l)
	}
	if limited && moreURL != "" {
		buf = r.AppendMore(buf, moreURL)
	}
	return string(buf)
}
