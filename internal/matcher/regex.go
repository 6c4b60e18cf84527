package matcher

import "regexp"

// re2Engine uses Go's RE2 regexp engine.
type re2Engine struct {
	re *regexp.Regexp
}

func newRE2Engine(pattern string, ignoreCase bool) (*re2Engine, error) {
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &re2Engine{re: re}, nil
}

func (e *re2Engine) MatchString(s string) bool {
	return e.re.MatchString(s)
}
