package symbols

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseError reports a malformed line in a tags file.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("tags line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// kindLetters maps the single-letter kinds of the classic ctags format.
var kindLetters = map[string]string{
	"c": "class",
	"d": "macro",
	"e": "enumerator",
	"f": "function",
	"g": "enum",
	"i": "interface",
	"m": "member",
	"n": "namespace",
	"p": "prototype",
	"s": "struct",
	"t": "typedef",
	"u": "union",
	"v": "variable",
}

// ParseCtags reads a tags file in the extended ctags format and returns the
// definitions of each source file it names, keyed by slash-separated path.
//
//	symbol<TAB>file<TAB>address;"<TAB>kind<TAB>line:N<TAB>end:M
//
// The address may be a line number or a /^pattern$/ search; the pattern text
// becomes the tag's Text. Pseudo-tags (lines starting with !_) are skipped.
func ParseCtags(r io.Reader) (map[string]*Definitions, error) {
	defs := map[string]*Definitions{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		if raw == "" || strings.HasPrefix(raw, "!_") {
			continue
		}
		file, tag, err := parseTagLine(raw)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Err: err}
		}
		d := defs[file]
		if d == nil {
			d = NewDefinitions()
			defs[file] = d
		}
		d.Add(tag)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading tags: %w", err)
	}
	return defs, nil
}

func parseTagLine(raw string) (string, Tag, error) {
	fields := strings.Split(raw, "\t")
	if len(fields) < 3 {
		return "", Tag{}, fmt.Errorf("expected at least 3 fields, got %d", len(fields))
	}
	tag := Tag{Symbol: fields[0]}
	file := filepath.ToSlash(filepath.Clean(fields[1]))

	// The address runs up to the ;" terminator and may itself contain tabs.
	rest := strings.Join(fields[2:], "\t")
	addr, ext, _ := strings.Cut(rest, ";\"")
	switch {
	case strings.HasPrefix(addr, "/") || strings.HasPrefix(addr, "?"):
		tag.Text = patternText(addr)
	default:
		n, err := strconv.Atoi(strings.TrimSpace(addr))
		if err != nil {
			return "", Tag{}, fmt.Errorf("bad address %q", addr)
		}
		tag.Line = n
	}

	for _, f := range strings.Split(ext, "\t") {
		if f == "" {
			continue
		}
		key, val, found := strings.Cut(f, ":")
		if !found {
			// A bare field is the kind.
			tag.Type = kindName(f)
			continue
		}
		switch key {
		case "kind":
			tag.Type = kindName(val)
		case "line":
			if n, err := strconv.Atoi(val); err == nil {
				tag.Line = n
			}
		case "end":
			if n, err := strconv.Atoi(val); err == nil {
				tag.End = n
			}
		}
	}
	if tag.Line < 1 {
		return "", Tag{}, fmt.Errorf("tag %q has no line number", tag.Symbol)
	}
	return file, tag, nil
}

func kindName(k string) string {
	if name, ok := kindLetters[k]; ok {
		return name
	}
	return k
}

// patternText strips the search delimiters and anchors from a ctags pattern
// and undoes its escapes.
func patternText(addr string) string {
	if len(addr) >= 2 {
		addr = addr[1 : len(addr)-1]
	}
	addr = strings.TrimPrefix(addr, "^")
	addr = strings.TrimSuffix(addr, "$")
	r := strings.NewReplacer(`\/`, `/`, `\?`, `?`, `\\`, `\`)
	return r.Replace(addr)
}
