package scan

import (
	"bytes"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/dl/gogrok/internal/matcher"
)

// prefilter rules out documents that contain none of the literals some
// matcher needs. A nil prefilter accepts everything.
type prefilter struct {
	exact  *ahocorasick.Matcher
	folded *ahocorasick.Matcher
}

func newPrefilter(set matcher.Set) *prefilter {
	lits, ok := set.Literals()
	if !ok {
		return nil
	}
	var exact, folded []string
	seen := map[string]bool{}
	for _, l := range lits {
		text := l.Text
		if l.IgnoreCase {
			text = strings.ToLower(text)
		}
		key := text
		if l.IgnoreCase {
			key = "\x00" + key
		}
		if text == "" || seen[key] {
			continue
		}
		seen[key] = true
		if l.IgnoreCase {
			folded = append(folded, text)
		} else {
			exact = append(exact, text)
		}
	}
	if len(exact) == 0 && len(folded) == 0 {
		return nil
	}

	p := &prefilter{}
	if len(exact) > 0 {
		p.exact = ahocorasick.NewStringMatcher(exact)
	}
	if len(folded) > 0 {
		p.folded = ahocorasick.NewStringMatcher(folded)
	}
	return p
}

// accepts reports whether content may hold a match.
func (p *prefilter) accepts(content []byte) bool {
	if p == nil {
		return true
	}
	if p.exact != nil && len(p.exact.Match(content)) > 0 {
		return true
	}
	return p.folded != nil && len(p.folded.Match(bytes.ToLower(content))) > 0
}
