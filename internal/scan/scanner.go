// Package scan finds matches by running compiled matchers over document
// text directly. It serves documents for which no precomputed match spans
// exist, tag-only lookups, and history log messages.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dl/gogrok/internal/highlight"
	"github.com/dl/gogrok/internal/lineindex"
	"github.com/dl/gogrok/internal/matcher"
	"github.com/dl/gogrok/internal/output"
	"github.com/dl/gogrok/internal/query"
	"github.com/dl/gogrok/internal/symbols"
)

const (
	// QuickScanBytes is the most a quick scan reads of one document.
	QuickScanBytes = 1 << 20
	// Backtrack is how far a truncated quick scan looks back for a line end.
	Backtrack = 100
)

// Options configures a Scanner.
type Options struct {
	Args highlight.ContextArgs
	// QuickScan reads only the head of each document and stops after
	// Args.LineLimit matches.
	QuickScan bool
	// QuickScanBytes overrides the quick scan read size when positive.
	QuickScanBytes int
	// DefSearch keeps only matches on lines that carry a matching tag.
	DefSearch bool
	Defs      *symbols.Definitions
	Scopes    *symbols.Scopes
	Logger    *log.Logger
}

// Result is the outcome of scanning one document.
type Result struct {
	Lines []output.Line
	// Matched counts matching tokens, including those a definitions search
	// did not show.
	Matched int
	// Truncated is set when a quick scan did not read the whole document.
	Truncated bool
	// Limited is set when the output should link to the complete result.
	Limited bool
}

// HasMatch reports whether the scan produced anything to show.
func (r Result) HasMatch() bool { return len(r.Lines) > 0 }

// Scanner runs one matcher set over documents. It is not safe for
// concurrent use since phrase matchers carry state.
type Scanner struct {
	set    matcher.Set
	opts   Options
	conv   *highlight.Converter
	pre    *prefilter
	ix     *lineindex.Index
	logger *log.Logger
}

// New returns a scanner for set. A nil set finds nothing.
func New(set matcher.Set, opts Options) *Scanner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	args := opts.Args
	// Live hits never carry surrounding lines.
	args.SurroundLines = 0
	return &Scanner{
		set:    set,
		opts:   opts,
		conv:   highlight.NewConverter(args),
		pre:    newPrefilter(set),
		logger: logger,
	}
}

// Definitions returns one line per tag whose symbol a matcher accepts, in
// tag order. The symbol is highlighted wherever it occurs in the tag text.
func (s *Scanner) Definitions() []output.Line {
	if s.set == nil {
		return nil
	}
	var lines []output.Line
	for _, tag := range s.opts.Defs.All() {
		if !s.matchesSymbol(tag.Symbol) {
			continue
		}
		lh := highlight.NewLineHighlight(tag.Line - 1)
		if tag.Symbol != "" {
			for off := 0; ; {
				i := strings.Index(tag.Text[off:], tag.Symbol)
				if i < 0 {
					break
				}
				start := off + i
				lh.Add(highlight.Span(start, start+len(tag.Symbol)))
				off = start + len(tag.Symbol)
			}
		}
		lh.Condense()
		s.conv.Elide(lh, tag.Text)
		l := output.Line{Rendered: lh.Render(tag.Text), Tag: tag.Type}
		if sc, ok := s.opts.Scopes.Lookup(tag.Line); ok {
			l.Scope = &sc
		}
		lines = append(lines, l)
	}
	return lines
}

// matchesSymbol offers symbol to every matcher as a single token. Phrase
// progress is dropped before and after so tags do not chain.
func (s *Scanner) matchesSymbol(symbol string) bool {
	s.set.Reset()
	defer s.set.Reset()
	for _, m := range s.set {
		if m.Match(symbol) == matcher.Matched {
			return true
		}
	}
	return false
}

// matchingTags maps each line holding a tag with a matching symbol to that
// tag. A later tag on the same line replaces an earlier one.
func (s *Scanner) matchingTags() map[int]symbols.Tag {
	if s.opts.Defs == nil {
		return nil
	}
	tags := map[int]symbols.Tag{}
	for _, tag := range s.opts.Defs.All() {
		if s.matchesSymbol(tag.Symbol) {
			tags[tag.Line] = tag
		}
	}
	return tags
}

// Scan reads r and returns the lines holding matches. Read errors are
// returned with whatever was found before them discarded.
func (s *Scanner) Scan(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	if s.set == nil {
		return res, nil
	}

	content, truncated, err := s.read(r)
	if err != nil {
		return res, err
	}
	res.Truncated = truncated
	if len(content) == 0 || !s.pre.accepts(content) {
		return res, nil
	}
	text := string(content)
	if s.ix == nil {
		s.ix = lineindex.New(text)
	} else {
		s.ix.Reset(text)
	}

	tags := s.matchingTags()
	if s.opts.DefSearch && len(tags) == 0 {
		return res, nil
	}

	limit := s.opts.Args.LineLimit
	spans, matched, err := s.match(ctx, text, tags, limit)
	if err != nil {
		return Result{}, err
	}
	res.Matched = matched
	res.Limited = s.opts.QuickScan && (truncated || matched == limit)

	for _, lh := range s.conv.Convert(spans, s.ix).Slice() {
		l := output.Line{Rendered: lh.Render(s.ix.LineNoEOL(lh.LineNo))}
		if tag, ok := tags[lh.LineNo+1]; ok {
			l.Tag = tag.Type
		}
		if sc, ok := s.opts.Scopes.Lookup(lh.LineNo + 1); ok {
			l.Scope = &sc
		}
		res.Lines = append(res.Lines, l)
	}
	return res, nil
}

// match offers every token of text to the matchers in order. The first
// matcher to accept a token wins it; a phrase match spans from the token
// that started it.
func (s *Scanner) match(ctx context.Context, text string, tags map[int]symbols.Tag, limit int) ([]highlight.MatchSpan, int, error) {
	s.set.Reset()
	defer s.set.Reset()

	starts := make([]int, len(s.set))
	for i := range starts {
		starts[i] = -1
	}

	var spans []highlight.MatchSpan
	matched := 0
	n := 0
	for pos := 0; ; n++ {
		if s.opts.QuickScan && matched >= limit {
			break
		}
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		tok, ok := query.NextToken(text, pos)
		if !ok {
			break
		}
		pos = tok.End

		for i, m := range s.set {
			switch m.Match(tok.Text) {
			case matcher.Wait:
				if m.Progress() == 1 {
					starts[i] = tok.Start
				}
				continue
			case matcher.NotMatched:
				starts[i] = -1
				continue
			}

			start := tok.Start
			if starts[i] >= 0 {
				start = starts[i]
			}
			starts[i] = -1
			matched++
			if s.opts.DefSearch {
				if _, ok := tags[s.ix.LineOf(start)+1]; !ok {
					break
				}
			}
			spans = append(spans, highlight.MatchSpan{
				Start: start,
				End:   tok.End,
				Subs:  []highlight.SubMatch{{Start: start, End: tok.End}},
			})
			break
		}
	}
	return spans, matched, nil
}

// read returns the text to scan. A quick scan stops at the read size and,
// when the buffer fills, cuts back to the last line end within Backtrack
// bytes.
func (s *Scanner) read(r io.Reader) ([]byte, bool, error) {
	if !s.opts.QuickScan {
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, false, fmt.Errorf("failed to read document: %w", err)
		}
		return b, false, nil
	}

	size := s.opts.QuickScanBytes
	if size <= 0 {
		size = QuickScanBytes
	}
	buf := make([]byte, size)
	n, err := io.ReadFull(r, buf)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return buf[:n], false, nil
	case err != nil:
		return nil, false, fmt.Errorf("failed to read document: %w", err)
	}

	for i := n - 1; i > n-Backtrack && i >= 0; i-- {
		if buf[i] == '\n' {
			n = i
			break
		}
	}
	s.logger.Debug("quick scan truncated", "bytes", n)
	return buf[:n], true, nil
}
