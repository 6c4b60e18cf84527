package search

import (
	"context"
	"slices"

	"github.com/dl/gogrok/internal/highlight"
	"github.com/dl/gogrok/internal/matcher"
	"github.com/dl/gogrok/internal/query"
	"github.com/dl/gogrok/internal/symbols"
)

// Spans analyzes text the way the indexer tokenizes it and returns the
// matches of set as an index would report them: one span per match with a
// sub-range for every token in it. A phrase therefore highlights its words
// and not the space between them.
func Spans(ctx context.Context, set matcher.Set, text string) ([]highlight.MatchSpan, error) {
	if set == nil {
		return nil, nil
	}
	set.Reset()
	defer set.Reset()

	words := make([][]highlight.SubMatch, len(set))
	var spans []highlight.MatchSpan
	for pos, n := 0, 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		tok, ok := query.NextToken(text, pos)
		if !ok {
			break
		}
		pos = tok.End
		sub := highlight.SubMatch{Start: tok.Start, End: tok.End}

		for i, m := range set {
			switch m.Match(tok.Text) {
			case matcher.Wait:
				if m.Progress() == 1 {
					words[i] = words[i][:0]
				}
				words[i] = append(words[i], sub)
				continue
			case matcher.NotMatched:
				words[i] = words[i][:0]
				continue
			}
			subs := append(slices.Clone(words[i]), sub)
			words[i] = words[i][:0]
			spans = append(spans, highlight.MatchSpan{Start: subs[0].Start, End: tok.End, Subs: subs})
			break
		}
	}
	return spans, nil
}

// definitionSpans keeps the single-token spans that sit on a definition of
// the very symbol they match, which is all a definitions field records.
func definitionSpans(spans []highlight.MatchSpan, text string, lineOf func(int) int, defs *symbols.Definitions) []highlight.MatchSpan {
	if defs == nil {
		return nil
	}
	var out []highlight.MatchSpan
	for _, sp := range spans {
		word := text[sp.Start:sp.End]
		for _, tag := range defs.LineTags(lineOf(sp.Start) + 1) {
			if tag.Symbol == word {
				out = append(out, sp)
				break
			}
		}
	}
	return out
}
