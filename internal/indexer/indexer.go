// Package indexer records the documents of a source tree in the store: their
// text, identity and definitions. It keeps the store in step with the tree,
// either in one pass or continuously from file change events.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/dl/gogrok/internal/input"
	"github.com/dl/gogrok/internal/query"
	"github.com/dl/gogrok/internal/store"
	"github.com/dl/gogrok/internal/symbols"
	"github.com/dl/gogrok/internal/walker"
	"github.com/dl/gogrok/internal/watch"
)

// Options configures an Indexer.
type Options struct {
	// Walk selects the documents. Walk.Root is the source root every stored
	// path is relative to.
	Walk walker.WalkOptions
	// Tags holds definitions per source file, keyed as ParseCtags returns
	// them: slash paths relative to the source root.
	Tags    map[string]*symbols.Definitions
	Reader  input.Reader
	Workers int
	Logger  *log.Logger
}

// Stats counts what an indexing pass did.
type Stats struct {
	Indexed   int
	Unchanged int
	Skipped   int // binary or unreadable
	Removed   int
}

// Indexer writes documents to a store.
type Indexer struct {
	store  *store.Store
	opts   Options
	tags   map[string]*symbols.Definitions
	logger *log.Logger
}

// New creates an Indexer writing to st.
func New(st *store.Store, opts Options) *Indexer {
	if opts.Reader == nil {
		opts.Reader = input.NewBufferedReader()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Walk.Root == "" {
		opts.Walk.Root = "."
	}
	return &Indexer{
		store:  st,
		opts:   opts,
		tags:   normalizeTags(opts.Tags),
		logger: opts.Logger,
	}
}

// normalizeTags rekeys tags by the stored path form, "/dir/file".
func normalizeTags(tags map[string]*symbols.Definitions) map[string]*symbols.Definitions {
	out := make(map[string]*symbols.Definitions, len(tags))
	for k, d := range tags {
		out[path.Join("/", k)] = d
	}
	return out
}

// Index walks roots and stores every document found. Stored documents below
// a walked directory that the walk no longer finds are removed.
func (ix *Indexer) Index(ctx context.Context, roots []string) (Stats, error) {
	var (
		stats Stats
		mu    sync.Mutex
		seen  = map[string]struct{}{}
	)

	files, walkErrs := walker.Walk(ctx, roots, ix.opts.Walk)
	errDone := make(chan struct{})
	go func() {
		defer close(errDone)
		for err := range walkErrs {
			ix.logger.Warn("walk error", "err", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	workers := ix.opts.Workers
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers)
	for f := range files {
		mu.Lock()
		seen[f.Rel] = struct{}{}
		mu.Unlock()
		g.Go(func() error {
			outcome, err := ix.put(gctx, f)
			if err != nil {
				return err
			}
			mu.Lock()
			outcome.add(&stats)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	<-errDone
	if err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	for _, root := range roots {
		removed, err := ix.prune(ctx, root, seen)
		if err != nil {
			return stats, err
		}
		stats.Removed += removed
	}
	return stats, nil
}

type outcome int

const (
	indexed outcome = iota
	unchanged
	skipped
)

func (o outcome) add(s *Stats) {
	switch o {
	case indexed:
		s.Indexed++
	case unchanged:
		s.Unchanged++
	case skipped:
		s.Skipped++
	}
}

// put stores one document unless the stored copy is already current.
// Unreadable files are skipped with a warning; store errors are returned.
func (ix *Indexer) put(ctx context.Context, e walker.FileEntry) (outcome, error) {
	f, err := ix.opts.Reader.Read(e.Path)
	if err != nil {
		ix.logger.Warn("skipping unreadable document", "path", e.Path, "err", err)
		return skipped, nil
	}
	defer f.Close()

	if walker.IsBinary(f.Data) {
		ix.logger.Debug("skipping binary document", "path", e.Rel)
		return skipped, nil
	}

	uid := store.PathUID(e.Rel, f.ModTime)
	fp := store.Fingerprint(f.Data)
	if old, err := ix.store.Get(ctx, e.Rel); err == nil && old.UID == uid && old.Fingerprint == fp {
		return unchanged, nil
	}

	doc := store.Document{
		Path:        e.Rel,
		UID:         uid,
		Type:        walker.DocType(e.Rel),
		Fingerprint: fp,
		Content:     string(f.Data),
	}
	if d := ix.tags[e.Rel]; d != nil {
		doc.Tags = d.All()
	}
	if err := ix.store.Put(ctx, doc); err != nil {
		return 0, fmt.Errorf("failed to index %s: %w", e.Rel, err)
	}
	ix.logger.Debug("indexed", "path", e.Rel, "type", doc.Type, "tags", len(doc.Tags))
	return indexed, nil
}

// prune removes the stored documents below the directory root that are not
// in seen.
func (ix *Indexer) prune(ctx context.Context, root string, seen map[string]struct{}) (int, error) {
	rel, ok := ix.rel(root)
	if !ok {
		return 0, nil
	}
	paths, err := ix.store.Paths(ctx, store.Filter{DirKey: query.DirPathKey(rel)})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		if err := ix.store.Delete(ctx, p); err != nil {
			return n, err
		}
		ix.logger.Debug("removed", "path", p)
		n++
	}
	return n, nil
}

// rel returns the stored path form of the file system path p.
func (ix *Indexer) rel(p string) (string, bool) {
	r, err := filepath.Rel(filepath.Clean(ix.opts.Walk.Root), filepath.Clean(p))
	if err != nil || r == ".." || strings.HasPrefix(r, "../") {
		return "", false
	}
	return path.Join("/", filepath.ToSlash(r)), true
}

// Update applies one change event: changed files are stored again, changed
// directories walked, and removed entries dropped with everything below
// them.
func (ix *Indexer) Update(ctx context.Context, ev watch.Event) (Stats, error) {
	var stats Stats
	switch {
	case ev.Type == watch.EventRemoved:
		rel, ok := ix.rel(ev.Path)
		if !ok {
			return stats, nil
		}
		if err := ix.store.Delete(ctx, rel); err != nil {
			return stats, err
		}
		n, err := ix.prune(ctx, ev.Path, nil)
		stats.Removed = n
		return stats, err
	case ev.Dir:
		return ix.Index(ctx, []string{ev.Path})
	}

	e, ok := walker.Accepts(ev.Path, ix.opts.Walk)
	if !ok {
		return stats, nil
	}
	o, err := ix.put(ctx, e)
	if err != nil {
		return stats, err
	}
	o.add(&stats)
	return stats, nil
}

// Watch keeps the store current until ctx is done. Events are applied one
// at a time; a failing update is logged and watching continues.
func (ix *Indexer) Watch(ctx context.Context, w *watch.Watcher) error {
	if w.Skip == nil {
		w.Skip = func(name string) bool { return walker.SkipDir(name, ix.opts.Walk.Hidden) }
	}
	if err := w.AddTree(ix.opts.Walk.Root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", ix.opts.Walk.Root, err)
	}
	ix.logger.Info("watching", "root", ix.opts.Walk.Root, "dirs", w.Len())

	for ev := range w.Events(ctx) {
		if ev.Err != nil {
			ix.logger.Warn("watch error", "err", ev.Err)
			continue
		}
		stats, err := ix.Update(ctx, ev)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			ix.logger.Warn("update failed", "path", ev.Path, "err", err)
			continue
		}
		ix.logger.Debug("updated", "path", ev.Path, "event", ev.Type,
			"indexed", stats.Indexed, "removed", stats.Removed)
	}
	return ctx.Err()
}
