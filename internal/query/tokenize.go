package query

import (
	"unicode"
	"unicode/utf8"
)

// Token is a word found in text, with byte offsets into that text.
type Token struct {
	Text  string
	Start int
	End   int
}

// IsWordRune reports whether r can be part of a token: letters, digits and
// underscore.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// NextToken returns the first token in s at or after from. ok is false when
// no token remains.
func NextToken(s string, from int) (tok Token, ok bool) {
	i := from
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if IsWordRune(r) {
			break
		}
		i += size
	}
	if i >= len(s) {
		return Token{}, false
	}
	start := i
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !IsWordRune(r) {
			break
		}
		i += size
	}
	return Token{Text: s[start:i], Start: start, End: i}, true
}

// Tokenize splits s into tokens.
func Tokenize(s string) []Token {
	var tokens []Token
	for pos := 0; ; {
		tok, ok := NextToken(s, pos)
		if !ok {
			return tokens
		}
		tokens = append(tokens, tok)
		pos = tok.End
	}
}

// Words returns only the text of each token in s.
func Words(s string) []string {
	tokens := Tokenize(s)
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.Text
	}
	return words
}
