package matcher

import (
	"sync"

	"go.elara.ws/pcre"
)

// pcreEngine matches using PCRE2-compatible regexes via the pure Go pcre package.
// Supports lookahead, lookbehind, backreferences, atomic groups, and all PCRE2 features.
type pcreEngine struct {
	mu sync.Mutex // the compiled pattern carries match state
	re *pcre.Regexp
}

func newPCREEngine(pattern string, ignoreCase bool) (*pcreEngine, error) {
	var opts pcre.CompileOption
	if ignoreCase {
		opts |= pcre.Caseless
	}

	re, err := pcre.CompileOpts(pattern, opts)
	if err != nil {
		return nil, err
	}
	return &pcreEngine{re: re}, nil
}

func (e *pcreEngine) MatchString(s string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.re.Match([]byte(s))
}

// Close releases the compiled PCRE regex resources.
func (e *pcreEngine) Close() {
	if e.re != nil {
		e.re.Close()
	}
}
