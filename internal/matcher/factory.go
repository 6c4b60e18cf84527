package matcher

import (
	"fmt"
	"strings"
)

// Engine is a compiled regular expression that must match a whole token.
type Engine interface {
	MatchString(s string) bool
}

// EngineKind selects the regular expression implementation.
type EngineKind string

const (
	EngineRE2     EngineKind = "re2"
	EnginePCRE    EngineKind = "pcre"
	EngineRegexp2 EngineKind = "regexp2"
)

// ParseEngineKind validates a configured engine name. The empty string
// selects RE2.
func ParseEngineKind(s string) (EngineKind, error) {
	switch EngineKind(strings.ToLower(s)) {
	case "", EngineRE2:
		return EngineRE2, nil
	case EnginePCRE:
		return EnginePCRE, nil
	case EngineRegexp2:
		return EngineRegexp2, nil
	}
	return "", fmt.Errorf("unknown regexp engine %q", s)
}

// NewEngine compiles pattern so that it only matches complete tokens.
// Selection:
//   - EnginePCRE -> PCRE2 via pure Go port (lookaround, backreferences)
//   - EngineRegexp2 -> .NET-style backtracking engine
//   - otherwise -> RE2
func NewEngine(kind EngineKind, pattern string, ignoreCase bool) (Engine, error) {
	anchored := "^(?:" + pattern + ")$"
	switch kind {
	case EnginePCRE:
		return newPCREEngine(anchored, ignoreCase)
	case EngineRegexp2:
		return newRegexp2Engine(anchored, ignoreCase)
	}
	return newRE2Engine(anchored, ignoreCase)
}

// isLiteral returns true if the pattern contains no regex metacharacters
// and can be treated as a fixed token.
func isLiteral(pattern string) bool {
	return pattern != "" && !strings.ContainsAny(pattern, `\.+*?()|[]{}^$`)
}
