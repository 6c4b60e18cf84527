package matcher

import (
	"time"

	"github.com/dlclark/regexp2"
)

// regexp2MatchTimeout bounds a single backtracking match.
const regexp2MatchTimeout = 100 * time.Millisecond

// regexp2Engine uses the .NET-compatible backtracking engine.
type regexp2Engine struct {
	re *regexp2.Regexp
}

func newRegexp2Engine(pattern string, ignoreCase bool) (*regexp2Engine, error) {
	opts := regexp2.RegexOptions(regexp2.None)
	if ignoreCase {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = regexp2MatchTimeout
	return &regexp2Engine{re: re}, nil
}

// MatchString treats a timeout like a failed match.
func (e *regexp2Engine) MatchString(s string) bool {
	ok, err := e.re.MatchString(s)
	return err == nil && ok
}
