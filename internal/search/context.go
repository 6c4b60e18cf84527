// Package search produces the highlighted context of each document matched
// by a query. A Context holds everything derived from the query once per
// request; Workers use it to highlight documents, one at a time each.
package search

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dl/gogrok/internal/highlight"
	"github.com/dl/gogrok/internal/history"
	"github.com/dl/gogrok/internal/input"
	"github.com/dl/gogrok/internal/matcher"
	"github.com/dl/gogrok/internal/output"
	"github.com/dl/gogrok/internal/query"
	"github.com/dl/gogrok/internal/store"
)

// ErrNoQuery is returned by New when the query has nothing to highlight.
var ErrNoQuery = errors.New("no highlightable query")

// Options configures a search request.
type Options struct {
	Args highlight.ContextArgs

	// QuickScan limits live scans to the head of each document.
	QuickScan      bool
	QuickScanBytes int

	Engine   matcher.EngineKind
	Renderer output.Renderer

	// XrefPrefix and MorePrefix are prepended to document paths to link
	// lines and the complete result; DiffPrefix to build history diff links.
	XrefPrefix string
	MorePrefix string
	DiffPrefix string

	// Store holds indexed documents. Without it every document is scanned
	// live.
	Store *store.Store
	// Reader reads live documents, a buffered reader if nil.
	Reader input.Reader
	// History, when set, is searched for hist queries.
	History history.Source

	Logger *log.Logger
}

// Context is the per-request state shared by the Workers of one search.
type Context struct {
	id      string
	builder *query.Builder
	tree    *query.Node
	fields  []string
	params  string
	opts    Options
	logger  *log.Logger
}

// New prepares a request for the query in b. Fields that fail to parse are
// logged and left out. ErrNoQuery is returned when nothing remains that
// could be highlighted in either document text or history.
func New(b *query.Builder, opts Options) (*Context, error) {
	if err := opts.Args.Validate(); err != nil {
		return nil, fmt.Errorf("invalid context arguments: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Renderer == nil {
		opts.Renderer = output.NewHTMLRenderer("")
	}
	if opts.Reader == nil {
		opts.Reader = input.NewBufferedReader()
	}

	id := uuid.NewString()
	logger := opts.Logger.With("req", id)

	tree, err := b.Build()
	if err != nil {
		logger.Debug("dropping unparsable query fields", "err", err)
	}
	c := &Context{
		id:      id,
		builder: b,
		tree:    tree,
		fields:  b.ContextFields(),
		params:  b.QueryParams(),
		opts:    opts,
		logger:  logger,
	}

	// Probe compile so empty queries are reported up front.
	probe := matcher.Compile(tree, matcher.ContextFields, c.compileOptions())
	hist := matcher.Compile(tree, matcher.HistoryFields, c.compileOptions())
	empty := probe == nil && hist == nil
	probe.Close()
	hist.Close()
	if empty {
		return nil, ErrNoQuery
	}
	logger.Debug("search prepared", "query", tree, "fields", c.fields)
	return c, nil
}

// ID returns the request id attached to every log line of the request.
func (c *Context) ID() string { return c.id }

// Logger returns the request logger.
func (c *Context) Logger() *log.Logger { return c.logger }

// Fields returns the context fields the query references.
func (c *Context) Fields() []string { return c.fields }

func (c *Context) compileOptions() matcher.Options {
	return matcher.Options{Engine: c.opts.Engine, Logger: c.logger}
}

// xrefURL links to the document at rel.
func (c *Context) xrefURL(rel string) string { return output.PathURL(c.opts.XrefPrefix, rel) }

// moreURL links to the complete result for the document at rel.
func (c *Context) moreURL(rel string) string {
	if c.opts.MorePrefix == "" {
		return ""
	}
	u := output.PathURL(c.opts.MorePrefix, rel)
	if c.params != "" {
		u += "?" + c.params
	}
	return u
}
