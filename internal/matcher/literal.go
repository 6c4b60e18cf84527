package matcher

import (
	"regexp/syntax"
	"strings"
	"unicode"
)

// minLiteralLen is the shortest regexp literal worth searching for; shorter
// ones rule out too few documents.
const minLiteralLen = 3

// regexpLiteral returns the longest ASCII run of text that every token
// matched by pattern must contain.
func regexpLiteral(pattern string, ignoreCase bool) (Literal, bool) {
	flags := syntax.Perl
	if ignoreCase {
		flags |= syntax.FoldCase
	}
	re, err := syntax.Parse(pattern, flags)
	if err != nil {
		return Literal{}, false
	}

	var best Literal
	for _, run := range requiredRuns(re.Simplify()) {
		text := string(run.text)
		if len(text) <= len(best.Text) || !ascii(text) {
			continue
		}
		best = Literal{Text: text, IgnoreCase: run.fold || ignoreCase}
	}
	if len(best.Text) < minLiteralLen {
		return Literal{}, false
	}
	if best.IgnoreCase {
		best.Text = strings.ToLower(best.Text)
	}
	return best, true
}

// litRun is a sequence of literal runes with one case folding.
type litRun struct {
	text []rune
	fold bool
}

// requiredRuns lists the literal runs that occur in every match of re.
// Optional and alternative subexpressions contribute nothing.
func requiredRuns(re *syntax.Regexp) []litRun {
	switch re.Op {
	case syntax.OpLiteral:
		if len(re.Rune) == 0 {
			return nil
		}
		return []litRun{{text: re.Rune, fold: re.Flags&syntax.FoldCase != 0}}
	case syntax.OpCapture, syntax.OpPlus:
		return requiredRuns(re.Sub[0])
	case syntax.OpRepeat:
		if re.Min >= 1 {
			return requiredRuns(re.Sub[0])
		}
	case syntax.OpConcat:
		return concatRuns(re.Sub)
	}
	return nil
}

// concatRuns joins adjacent literals of a concatenation into longer runs.
func concatRuns(subs []*syntax.Regexp) []litRun {
	var (
		runs []litRun
		cur  litRun
	)
	flush := func() {
		if len(cur.text) > 0 {
			runs = append(runs, cur)
		}
		cur = litRun{}
	}
	for _, sub := range subs {
		if sub.Op != syntax.OpLiteral || len(sub.Rune) == 0 {
			flush()
			runs = append(runs, requiredRuns(sub)...)
			continue
		}
		fold := sub.Flags&syntax.FoldCase != 0
		if len(cur.text) > 0 && fold != cur.fold {
			flush()
		}
		cur.fold = fold
		cur.text = append(cur.text[:len(cur.text):len(cur.text)], sub.Rune...)
	}
	flush()
	return runs
}

func ascii(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}
