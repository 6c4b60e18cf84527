package search

import (
	"context"
	"errors"

	"github.com/dl/gogrok/internal/excerpt"
	"github.com/dl/gogrok/internal/history"
	"github.com/dl/gogrok/internal/input"
	"github.com/dl/gogrok/internal/lineindex"
	"github.com/dl/gogrok/internal/matcher"
	"github.com/dl/gogrok/internal/output"
	"github.com/dl/gogrok/internal/query"
	"github.com/dl/gogrok/internal/scan"
	"github.com/dl/gogrok/internal/store"
	"github.com/dl/gogrok/internal/symbols"
	"github.com/dl/gogrok/internal/walker"
)

// Result sources.
const (
	SourceIndex   = "index"
	SourceLive    = "live"
	SourceDefs    = "defs"
	SourceHistory = "history"
)

// Worker highlights documents for one Context. Matchers carry phrase state,
// so a Worker must not be used by two goroutines at once; create one per
// goroutine.
type Worker struct {
	c *Context

	all    matcher.Set
	fields map[string]matcher.Set
	hist   matcher.Set

	formatter *excerpt.Formatter
	ix        *lineindex.Index
}

// NewWorker compiles the request's matchers for a new Worker.
func (c *Context) NewWorker() *Worker {
	opts := c.compileOptions()
	w := &Worker{
		c:         c,
		all:       matcher.Compile(c.tree, matcher.ContextFields, opts),
		hist:      matcher.Compile(c.tree, matcher.HistoryFields, opts),
		fields:    make(map[string]matcher.Set, len(c.fields)),
		formatter: excerpt.NewFormatter(c.opts.Args, c.opts.Renderer),
		ix:        lineindex.New(""),
	}
	for _, f := range c.fields {
		w.fields[f] = matcher.Compile(c.tree, matcher.FieldCase{f: matcher.ContextFields[f]}, opts)
	}
	return w
}

// Close releases the Worker's matchers.
func (w *Worker) Close() {
	w.all.Close()
	w.hist.Close()
	for _, s := range w.fields {
		s.Close()
	}
}

// Highlight returns the context of the document at entry. Indexed spans are
// used when the store holds a fresh copy; otherwise the file is scanned
// live. A document that can no longer be read still shows its matching
// definitions if the store kept its tags.
func (w *Worker) Highlight(ctx context.Context, entry walker.FileEntry) output.Result {
	res := output.Result{Path: entry.Rel}
	logger := w.c.logger.With("path", entry.Rel)

	if w.all != nil {
		f, err := w.c.opts.Reader.Read(entry.Path)
		if err != nil {
			logger.Debug("source unavailable", "err", err)
			if !w.definitionsOnly(ctx, entry.Rel, &res) {
				res.Err = err
			}
		} else {
			err = w.document(ctx, entry.Rel, f, &res)
			f.Close()
			if err != nil {
				res.Err = err
				return res
			}
		}
	}

	if w.hist != nil && w.c.opts.History != nil {
		if err := w.history(ctx, entry, &res); err != nil {
			res.Err = errors.Join(res.Err, err)
		}
	}
	return res
}

// document fills res from the live file f, preferring the stored copy.
func (w *Worker) document(ctx context.Context, rel string, f *input.File, res *output.Result) error {
	if walker.IsBinary(f.Data) {
		return nil
	}
	logger := w.c.logger.With("path", rel)

	doc, fresh := w.lookup(ctx, rel, f)
	if fresh {
		return w.indexed(ctx, doc, res)
	}

	// Tags of a stale copy are still the best guess at the definitions.
	var defs *symbols.Definitions
	if doc != nil {
		defs = doc.Definitions()
	}
	sc := scan.New(w.all, scan.Options{
		Args:           w.c.opts.Args,
		QuickScan:      w.c.opts.QuickScan,
		QuickScanBytes: w.c.opts.QuickScanBytes,
		DefSearch:      w.c.builder.IsDefSearch(),
		Defs:           defs,
		Scopes:         defs.Scopes(),
		Logger:         logger,
	})
	sr, err := sc.Scan(ctx, f.NewReader())
	if err != nil {
		return err
	}
	res.Lines = sr.Lines
	res.Limited = sr.Limited
	res.Truncated = sr.Truncated
	res.Source = SourceLive
	res.Excerpt = excerpt.RenderLines(w.c.opts.Renderer, w.c.xrefURL(rel), sr.Lines, w.c.moreURL(rel), sr.Limited)
	return nil
}

// lookup returns the stored document at rel and whether it still matches
// the live file f.
func (w *Worker) lookup(ctx context.Context, rel string, f *input.File) (*store.Document, bool) {
	if w.c.opts.Store == nil {
		return nil, false
	}
	logger := w.c.logger.With("path", rel)
	doc, err := w.c.opts.Store.Fresh(ctx, rel, store.PathUID(rel, f.ModTime))
	switch {
	case errors.Is(err, store.ErrStale):
		logger.Debug("indexed copy is stale, scanning live")
		return doc, false
	case err != nil:
		logger.Debug("no indexed copy, scanning live", "err", err)
		return nil, false
	case doc.Fingerprint != store.Fingerprint(f.Data):
		logger.Debug("indexed copy changed in place, scanning live")
		return doc, false
	}
	return doc, true
}

// indexed formats the spans of every context field over the stored text and
// merges them, keeping the first field's rendering of a shared line.
func (w *Worker) indexed(ctx context.Context, doc *store.Document, res *output.Result) error {
	defs := doc.Definitions()
	w.formatter.URL = w.c.xrefURL(doc.Path)
	w.formatter.MoreURL = w.c.moreURL(doc.Path)
	w.formatter.Defs = defs
	w.formatter.Scopes = defs.Scopes()
	w.ix.Reset(doc.Content)

	parts := make([]*excerpt.FormattedLines, 0, len(w.c.fields))
	for _, f := range w.c.fields {
		spans, err := Spans(ctx, w.fields[f], doc.Content)
		if err != nil {
			return err
		}
		if f == query.FieldDefs {
			spans = definitionSpans(spans, doc.Content, w.ix.LineOf, defs)
		}
		parts = append(parts, w.formatter.Format(spans, doc.Content))
	}
	merged := excerpt.Union(w.c.opts.Args.LineLimit, parts...)

	res.Lines = merged.Lines()
	res.Limited = merged.Limited()
	res.Excerpt = merged.String()
	res.Source = SourceIndex
	return nil
}

// definitionsOnly lists the stored definitions matching the query when the
// document itself is gone.
func (w *Worker) definitionsOnly(ctx context.Context, rel string, res *output.Result) bool {
	if w.c.opts.Store == nil {
		return false
	}
	doc, err := w.c.opts.Store.Get(ctx, rel)
	if err != nil || len(doc.Tags) == 0 {
		return false
	}
	defs := doc.Definitions()
	sc := scan.New(w.all, scan.Options{
		Args:   w.c.opts.Args,
		Defs:   defs,
		Scopes: defs.Scopes(),
		Logger: w.c.logger,
	})
	res.Lines = sc.Definitions()
	res.Source = SourceDefs
	res.Excerpt = excerpt.RenderLines(w.c.opts.Renderer, w.c.xrefURL(rel), res.Lines, "", false)
	return true
}

// history appends the matching entries of the document's change log.
func (w *Worker) history(ctx context.Context, entry walker.FileEntry, res *output.Result) error {
	entries, err := w.c.opts.History.History(ctx, entry.Path)
	switch {
	case errors.Is(err, history.ErrNoHistory):
		return nil
	case err != nil:
		w.c.logger.Debug("history unavailable", "path", entry.Rel, "err", err)
		return err
	}
	res.History = scan.ScanHistory(w.hist, entries, scan.HistoryOptions{
		Path:       entry.Rel,
		DiffPrefix: w.c.opts.DiffPrefix,
	})
	if len(res.History) == 0 {
		return nil
	}
	buf := []byte(res.Excerpt)
	for _, h := range res.History {
		buf = w.c.opts.Renderer.AppendHistory(buf, h)
	}
	res.Excerpt = string(buf)
	if res.Source == "" {
		res.Source = SourceHistory
	}
	return nil
}
