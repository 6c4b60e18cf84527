package output

// Result holds the context produced for a single document.
type Result struct {
	Path   string
	SeqNum int

	// Lines are the excerpt lines in line order, after any limit.
	Lines []Line
	// History holds matched history messages.
	History []HistoryLine
	// Excerpt is Lines (or History) rendered by the request's Renderer,
	// including the "more" footer when the output was limited.
	Excerpt string

	Limited   bool
	Truncated bool
	// Source names how the context was produced: "index", "live", "defs"
	// or "history".
	Source string

	Err error
}

// Count returns the number of highlighted lines and history hits.
func (r *Result) Count() int {
	n := len(r.History)
	for _, l := range r.Lines {
		if l.Highlighted() {
			n++
		}
	}
	return n
}

// HasMatch returns true if this result has anything to show.
func (r *Result) HasMatch() bool {
	return r.Err == nil && (len(r.Lines) > 0 || len(r.History) > 0)
}
