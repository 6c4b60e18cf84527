package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dl/gogrok/internal/history"
	"github.com/dl/gogrok/internal/indexer"
	"github.com/dl/gogrok/internal/input"
	"github.com/dl/gogrok/internal/matcher"
	"github.com/dl/gogrok/internal/output"
	"github.com/dl/gogrok/internal/query"
	"github.com/dl/gogrok/internal/scheduler"
	"github.com/dl/gogrok/internal/search"
	"github.com/dl/gogrok/internal/store"
	"github.com/dl/gogrok/internal/symbols"
	"github.com/dl/gogrok/internal/walker"
	"github.com/dl/gogrok/internal/watch"
)

// Exit codes: 0 = match found, 1 = no match, 2 = error.
const (
	exitMatch   = 0
	exitNoMatch = 1
	exitError   = 2
)

// errNoMatch ends a successful search that found nothing.
var errNoMatch = errors.New("no match")

// Execute runs the command line and returns the process exit code.
func Execute() int {
	cfg := DefaultConfig()
	if path := ConfigPath(); path != "" {
		if err := LoadConfigFile(path, &cfg); err != nil {
			fmt.Fprintln(os.Stderr, "gogrok:", err)
			return exitError
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(&cfg, os.Stdout)
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitMatch
	case errors.Is(err, errNoMatch):
		return exitNoMatch
	}
	fmt.Fprintln(os.Stderr, "gogrok:", err)
	return exitError
}

// app is the state shared by the subcommands.
type app struct {
	cfg     *Config
	in      io.Reader
	out     *os.File
	verbose bool
	logger  *log.Logger
}

// NewRootCommand builds the command tree. Flags default to the values in
// cfg, so a loaded config file acts as a second layer of defaults.
func NewRootCommand(cfg *Config, out *os.File) *cobra.Command {
	a := &app{cfg: cfg, in: os.Stdin, out: out}
	root := &cobra.Command{
		Use:           "gogrok",
		Short:         "Highlight the context of source search matches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			a.logger = newLogger(cmd.ErrOrStderr(), a.cfg.LogLevel, a.verbose)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log debug messages")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&cfg.StorePath, "store", cfg.StorePath, "document store file")
	pf.StringVar(&cfg.SourceRoot, "root", cfg.SourceRoot, "source root that document paths are relative to")
	pf.IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "number of worker goroutines (0 = number of CPUs)")
	pf.StringSliceVar(&cfg.Include, "include", cfg.Include, "only documents matching these globs")
	pf.StringSliceVar(&cfg.Exclude, "exclude", cfg.Exclude, "skip documents matching these globs")
	pf.BoolVar(&cfg.Hidden, "hidden", cfg.Hidden, "include hidden files and directories")
	pf.BoolVar(&cfg.NoIgnore, "no-ignore", cfg.NoIgnore, "do not respect .gitignore files")
	pf.Int64Var(&cfg.MmapThreshold, "mmap-threshold", cfg.MmapThreshold, "files at least this large are mmapped (0 = all, -1 = none)")

	root.AddCommand(a.indexCommand(), a.searchCommand(), a.historyCommand(), dirKeyCommand(out))
	return root
}

func newLogger(w io.Writer, level string, verbose bool) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.WarnLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:  lvl,
		Prefix: "gogrok",
	})
}

// sourceRoot returns the absolute source root.
func (a *app) sourceRoot() (string, error) {
	root, err := filepath.Abs(a.cfg.SourceRoot)
	if err != nil {
		return "", fmt.Errorf("resolving source root: %w", err)
	}
	return root, nil
}

func (a *app) walkOptions(root string) walker.WalkOptions {
	return walker.WalkOptions{
		Root:     root,
		NoIgnore: a.cfg.NoIgnore,
		Hidden:   a.cfg.Hidden,
		Globs:    a.cfg.Globs(),
		Workers:  a.cfg.Workers,
	}
}

// stdinPath names standard input on the command line.
const stdinPath = "-"

// reader picks the file reader for the mmap threshold: negative reads into
// buffers, zero maps every file, positive maps files at least that large.
// Standard input is served for stdinPath.
func (a *app) reader() input.Reader {
	var r input.Reader
	switch t := a.cfg.MmapThreshold; {
	case t < 0:
		r = input.NewBufferedReader()
	case t == 0:
		r = input.NewMmapReader()
	default:
		r = input.NewAdaptiveReader(t)
	}
	return stdinReader{Reader: r, stdin: a.in}
}

// stdinReader reads stdinPath from stdin and everything else from Reader.
type stdinReader struct {
	input.Reader
	stdin io.Reader
}

func (s stdinReader) Read(path string) (*input.File, error) {
	if path == stdinPath {
		return input.ReadAll(s.stdin)
	}
	return s.Reader.Read(path)
}

// absPaths resolves command line paths, defaulting to root.
func absPaths(root string, args []string) ([]string, error) {
	if len(args) == 0 {
		return []string{root}, nil
	}
	out := make([]string, len(args))
	for i, p := range args {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		out[i] = abs
	}
	return out, nil
}

func (a *app) indexCommand() *cobra.Command {
	var (
		ctagsFile string
		watchTree bool
	)
	cmd := &cobra.Command{
		Use:   "index [paths...]",
		Short: "Record documents, fingerprints and definitions in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			root, err := a.sourceRoot()
			if err != nil {
				return err
			}
			roots, err := absPaths(root, args)
			if err != nil {
				return err
			}

			var tags map[string]*symbols.Definitions
			if ctagsFile != "" {
				f, err := os.Open(ctagsFile)
				if err != nil {
					return fmt.Errorf("opening tags: %w", err)
				}
				tags, err = symbols.ParseCtags(f)
				f.Close()
				if err != nil {
					return fmt.Errorf("%s: %w", ctagsFile, err)
				}
			}

			st, err := store.Open(ctx, a.cfg.StorePath)
			if err != nil {
				return err
			}
			defer st.Close()

			ix := indexer.New(st, indexer.Options{
				Walk:    a.walkOptions(root),
				Tags:    tags,
				Reader:  a.reader(),
				Workers: a.cfg.Workers,
				Logger:  a.logger,
			})
			stats, err := ix.Index(ctx, roots)
			if err != nil {
				return err
			}
			a.logger.Info("index updated", "indexed", stats.Indexed, "unchanged", stats.Unchanged,
				"skipped", stats.Skipped, "removed", stats.Removed)
			fmt.Fprintf(a.out, "indexed %d, unchanged %d, skipped %d, removed %d\n",
				stats.Indexed, stats.Unchanged, stats.Skipped, stats.Removed)

			if !watchTree {
				return nil
			}
			w, err := watch.New()
			if err != nil {
				return err
			}
			defer w.Close()
			if err := ix.Watch(ctx, w); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ctagsFile, "ctags", "", "tags file in extended ctags format")
	cmd.Flags().BoolVarP(&watchTree, "watch", "w", false, "keep the store current as files change")
	return cmd
}

// searchFlags are the query fields of the search command.
type searchFlags struct {
	full, defs, refs, path, hist, typ, dir string
	gitDir                                 string
}

func (f *searchFlags) builder() *query.Builder {
	return query.NewBuilder().
		SetFreetext(f.full).
		SetDefs(f.defs).
		SetRefs(f.refs).
		SetPath(f.path).
		SetHist(f.hist).
		SetType(f.typ).
		SetDirPath(f.dir)
}

func (a *app) searchCommand() *cobra.Command {
	var q searchFlags
	cmd := &cobra.Command{
		Use:   "search [paths...]",
		Short: "Show the highlighted context of every matching document",
		Long: `Search highlights the documents of the store, or of the source root
when there is no store. Paths restrict the search to files and directories
below the source root; a single "-" reads standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSearch(cmd.Context(), &q, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&q.full, "full", "", "full text query")
	f.StringVar(&q.defs, "defs", "", "definitions query")
	f.StringVar(&q.refs, "refs", "", "symbol references query")
	f.StringVar(&q.path, "path", "", "path query")
	f.StringVar(&q.hist, "hist", "", "history log query")
	f.StringVar(&q.typ, "type", "", "restrict to a document type")
	f.StringVar(&q.dir, "dir", "", "restrict to a directory below the source root, e.g. /src")
	f.StringVar(&q.gitDir, "git", "", "git repository for --hist (default: the source root)")
	a.contextFlags(cmd)
	return cmd
}

// contextFlags adds the excerpt and output flags.
func (a *app) contextFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	cfg := a.cfg
	f.IntVarP(&cfg.Surround, "context", "C", cfg.Surround, "lines of context around each match")
	f.IntVarP(&cfg.Limit, "limit", "n", cfg.Limit, "maximum lines per document")
	f.BoolVar(&cfg.QuickScan, "quick", cfg.QuickScan, "scan only the head of documents without an indexed copy")
	f.IntVar(&cfg.QuickScanBytes, "quick-bytes", cfg.QuickScanBytes, "quick scan size (0 = 1 MiB)")
	f.StringVar(&cfg.Engine, "engine", cfg.Engine, "regexp engine (re2, pcre, regexp2)")
	f.StringVar(&cfg.Emphasis, "emphasis", cfg.Emphasis, "HTML element for highlights")
	f.StringVar(&cfg.Color, "color", cfg.Color, "when to color text output (auto, always, never)")
	f.StringVarP(&cfg.Format, "format", "f", cfg.Format, "output format (text, html, json)")
	f.BoolVarP(&cfg.CountOnly, "count", "c", cfg.CountOnly, "only print the number of matching lines per document")
	f.BoolVarP(&cfg.FilesOnly, "files", "l", cfg.FilesOnly, "only print the paths of matching documents")
	f.StringVar(&cfg.XrefPrefix, "xref-prefix", cfg.XrefPrefix, "link prefix of document lines")
	f.StringVar(&cfg.MorePrefix, "more-prefix", cfg.MorePrefix, "link prefix of complete results")
	f.StringVar(&cfg.DiffPrefix, "diff-prefix", cfg.DiffPrefix, "link prefix of history diffs")
}

// output returns the renderer for excerpts and the formatter for documents.
func (a *app) output() (output.Renderer, output.Formatter) {
	switch a.cfg.Format {
	case FormatHTML:
		return output.NewHTMLRenderer(a.cfg.Emphasis), output.NewHTMLFormatter(a.cfg.XrefPrefix)
	case FormatJSON:
		return output.NewTextRenderer(output.NoStyles()), output.NewJSONFormatter()
	}
	mode, _ := ParseColorMode(a.cfg.Color)
	useColor := mode == ColorAlways || (mode == ColorAuto && output.IsTerminal(a.out.Fd()))
	styles := output.NoStyles()
	if useColor {
		styles = output.NewStyles()
	}
	return output.NewTextRenderer(styles), output.NewTextFormatter(styles, a.cfg.CountOnly, a.cfg.FilesOnly)
}

func (a *app) runSearch(ctx context.Context, q *searchFlags, args []string) error {
	root, err := a.sourceRoot()
	if err != nil {
		return err
	}
	b := q.builder()
	if b.Size() == 0 {
		return errors.New("no query: set at least one of --full, --defs, --refs, --path, --hist")
	}

	var st *store.Store
	if _, err := os.Stat(a.cfg.StorePath); err == nil {
		st, err = store.Open(ctx, a.cfg.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()
	} else {
		a.logger.Debug("no store, scanning live", "store", a.cfg.StorePath)
	}

	var hist history.Source
	if q.hist != "" {
		dir := q.gitDir
		if dir == "" {
			dir = root
		}
		g, err := history.OpenGit(dir)
		if err != nil {
			return err
		}
		hist = g
	}

	entries, err := a.candidates(ctx, b, q.dir, st, root, args)
	if err != nil {
		return err
	}
	if b.IsPathSearch() || len(b.ContextFields()) == 0 && b.Hist() == "" {
		// Nothing to highlight; list the documents.
		return a.listPaths(entries)
	}
	return a.highlight(ctx, b, st, hist, entries)
}

// candidates returns the documents to highlight, in path order: the
// stored documents when a store exists, else those found by walking.
func (a *app) candidates(ctx context.Context, b *query.Builder, dir string, st *store.Store, root string, args []string) ([]walker.FileEntry, error) {
	var entries []walker.FileEntry
	if len(args) == 1 && args[0] == stdinPath {
		return a.filterPaths(ctx, b, []walker.FileEntry{{Path: stdinPath, Rel: "(standard input)"}})
	}
	if st != nil && len(args) == 0 {
		// The builder holds the directory as its index key already.
		filter := store.Filter{Type: b.Type(), DirKey: b.DirPath()}
		paths, err := st.Paths(ctx, filter)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			entries = append(entries, walker.FileEntry{Path: filepath.Join(root, filepath.FromSlash(p)), Rel: p})
		}
	} else {
		roots, err := absPaths(root, args)
		if err != nil {
			return nil, err
		}
		files, errs := walker.Walk(ctx, roots, a.walkOptions(root))
		done := make(chan struct{})
		go func() {
			defer close(done)
			for err := range errs {
				a.logger.Warn("walk error", "err", err)
			}
		}()
		for f := range files {
			if t := b.Type(); t != "" && walker.DocType(f.Rel) != t {
				continue
			}
			if dir != "" && !underDir(f.Rel, dir) {
				continue
			}
			entries = append(entries, f)
		}
		<-done
		slices.SortFunc(entries, func(x, y walker.FileEntry) int {
			return strings.Compare(x.Rel, y.Rel)
		})
	}
	return a.filterPaths(ctx, b, entries)
}

// filterPaths keeps the entries whose path matches the path query.
func (a *app) filterPaths(ctx context.Context, b *query.Builder, entries []walker.FileEntry) ([]walker.FileEntry, error) {
	if b.Path() == "" {
		return entries, nil
	}
	tree, err := query.NewBuilder().SetPath(b.Path()).Build()
	if err != nil {
		return nil, fmt.Errorf("invalid path query: %w", err)
	}
	set := matcher.Compile(tree, matcher.FieldCase{query.FieldPath: true}, matcher.Options{Logger: a.logger})
	defer set.Close()
	if set == nil {
		return entries, nil
	}
	var out []walker.FileEntry
	for _, e := range entries {
		spans, err := search.Spans(ctx, set, e.Rel)
		if err != nil {
			return nil, err
		}
		if len(spans) > 0 {
			out = append(out, e)
		}
	}
	return out, nil
}

func (a *app) listPaths(entries []walker.FileEntry) error {
	if len(entries) == 0 {
		return errNoMatch
	}
	w := output.NewWriter(a.out)
	var buf []byte
	for _, e := range entries {
		buf = append(buf, e.Rel...)
		buf = append(buf, '\n')
	}
	_, err := w.Write(buf)
	return err
}

func (a *app) highlight(ctx context.Context, b *query.Builder, st *store.Store, hist history.Source, entries []walker.FileEntry) error {
	renderer, formatter := a.output()
	engine, _ := matcher.ParseEngineKind(a.cfg.Engine)
	sc, err := search.New(b, search.Options{
		Args:           a.cfg.ContextArgs(),
		QuickScan:      a.cfg.QuickScan,
		QuickScanBytes: a.cfg.QuickScanBytes,
		Engine:         engine,
		Renderer:       renderer,
		XrefPrefix:     a.cfg.XrefPrefix,
		MorePrefix:     a.cfg.MorePrefix,
		DiffPrefix:     a.cfg.DiffPrefix,
		Store:          st,
		Reader:         a.reader(),
		History:        hist,
		Logger:         a.logger,
	})
	if err != nil {
		return err
	}
	logger := sc.Logger()
	logger.Debug("searching", "query", b.Queries(), "documents", len(entries))

	var (
		mu      sync.Mutex
		workers []*search.Worker
	)
	sched := scheduler.New(a.cfg.Workers, func() scheduler.Highlighter {
		w := sc.NewWorker()
		mu.Lock()
		workers = append(workers, w)
		mu.Unlock()
		return w
	})
	defer func() {
		for _, w := range workers {
			w.Close()
		}
	}()

	files := make(chan walker.FileEntry)
	go func() {
		defer close(files)
		for _, e := range entries {
			select {
			case files <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	results, wait := sched.Run(ctx, files)
	matched := 0
	ow := output.NewOrderedWriter(output.NewWriter(a.out), formatter)
	werr := ow.WriteOrdered(results, func(r output.Result) {
		if r.Err != nil {
			logger.Debug("no context", "path", r.Path, "err", r.Err)
		}
		if r.HasMatch() {
			matched++
		}
	})
	if err := wait(); err != nil {
		return err
	}
	if werr != nil {
		return fmt.Errorf("writing results: %w", werr)
	}
	logger.Debug("search done", "matched", matched)
	if matched == 0 {
		return errNoMatch
	}
	return nil
}

func (a *app) historyCommand() *cobra.Command {
	var hist string
	cmd := &cobra.Command{
		Use:   "history <file>",
		Short: "Highlight the change log messages of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.sourceRoot()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			g, err := history.OpenGit(path)
			if err != nil {
				return err
			}
			q := &searchFlags{hist: hist}
			entry := walker.FileEntry{Path: path, Rel: path}
			if rel, err := filepath.Rel(root, path); err == nil {
				entry.Rel = "/" + filepath.ToSlash(rel)
			}
			return a.highlight(cmd.Context(), q.builder(), nil, g, []walker.FileEntry{entry})
		},
	}
	cmd.Flags().StringVar(&hist, "hist", "", "history log query")
	_ = cmd.MarkFlagRequired("hist")
	a.contextFlags(cmd)
	return cmd
}

func dirKeyCommand(out *os.File) *cobra.Command {
	return &cobra.Command{
		Use:   "dirkey <path>",
		Short: "Print the directory path key of a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(out, query.DirPathKey(args[0]))
			return err
		},
	}
}

// underDir reports whether the document rel lies below dir.
func underDir(rel, dir string) bool {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return true
	}
	return strings.HasPrefix(rel, "/"+dir+"/")
}
