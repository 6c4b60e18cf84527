package scan

import (
	"net/url"

	"github.com/dl/gogrok/internal/highlight"
	"github.com/dl/gogrok/internal/history"
	"github.com/dl/gogrok/internal/matcher"
	"github.com/dl/gogrok/internal/output"
	"github.com/dl/gogrok/internal/query"
)

// MaxHistoryHits caps the matches reported from one file's history.
const MaxHistoryHits = 10

// HistoryOptions configures ScanHistory.
type HistoryOptions struct {
	// Path is the file the history belongs to, used in diff links.
	Path string
	// DiffPrefix is the web root that diff links start with. Empty turns
	// diff links off.
	DiffPrefix string
}

// ScanHistory matches set against the messages of entries, newest first,
// and returns one line per match. Each line holds the whole message with
// that match highlighted. Phrase progress does not carry from one message
// to the next.
func ScanHistory(set matcher.Set, entries []history.Entry, opts HistoryOptions) []output.HistoryLine {
	if set == nil {
		return nil
	}
	defer set.Reset()

	var hits []output.HistoryLine
	for i, e := range entries {
		if len(hits) >= MaxHistoryHits {
			break
		}
		set.Reset()
		var prev string
		if i+1 < len(entries) {
			prev = entries[i+1].Revision
		}
		diff := DiffURL(opts.DiffPrefix, opts.Path, e.Revision, prev)

		starts := make([]int, len(set))
		for j := range starts {
			starts[j] = -1
		}
		for pos := 0; len(hits) < MaxHistoryHits; {
			tok, ok := query.NextToken(e.Message, pos)
			if !ok {
				break
			}
			pos = tok.End
			for j, m := range set {
				switch m.Match(tok.Text) {
				case matcher.Wait:
					if m.Progress() == 1 {
						starts[j] = tok.Start
					}
					continue
				case matcher.NotMatched:
					starts[j] = -1
					continue
				}
				start := tok.Start
				if starts[j] >= 0 {
					start = starts[j]
				}
				starts[j] = -1

				lh := highlight.NewLineHighlight(0)
				lh.Add(highlight.Span(start, tok.End))
				hits = append(hits, output.HistoryLine{
					Revision: e.Revision,
					DiffURL:  diff,
					Rendered: lh.Render(e.Message),
				})
				break
			}
		}
	}
	return hits
}

// DiffURL links the change of path between prev and rev. It returns ""
// when prefix or prev is empty.
func DiffURL(prefix, path, rev, prev string) string {
	if prefix == "" || prev == "" {
		return ""
	}
	p := (&url.URL{Path: path}).EscapedPath()
	return prefix + "/diff" + p + "?r2=" + p + "@" + url.QueryEscape(rev) + "&r1=" + p + "@" + url.QueryEscape(prev)
}
