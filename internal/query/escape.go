package query

import "strings"

// pathSpecial lists query-string operators that carry no meaning inside a
// path. Wildcards are left alone so "*.go" keeps working.
const pathSpecial = `+-=&|><!(){}[]^"~:\/`

// Escape prepares raw user input for the query-string parser of field.
//
// Free text is passed through untouched since it may legitimately qualify
// terms with other field names. A path wrapped in slashes is a regular
// expression and is passed through as well; any other path has its
// separators and operators escaped. Remaining fields only escape colons so
// users cannot qualify terms onto another field.
func Escape(field, text string) string {
	switch field {
	case FieldFull:
		return text
	case FieldPath:
		if !isRegexpLiteral(text) {
			return escapeChars(text, pathSpecial)
		}
	}
	return escapeChars(text, ":")
}

func isRegexpLiteral(s string) bool {
	return len(s) >= 2 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/")
}

func escapeChars(s, special string) string {
	if !strings.ContainsAny(s, special) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s) + 8)
	for _, r := range s {
		if strings.ContainsRune(special, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
