package walker

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Globs selects documents by their slash path below the source root, without
// the leading slash. A document is kept when it matches some Include pattern
// (or Include is empty) and no Exclude pattern.
type Globs struct {
	Include []string
	Exclude []string
}

// Validate checks every pattern.
func (g Globs) Validate() error {
	for _, p := range append(append([]string(nil), g.Include...), g.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob %q", p)
		}
	}
	return nil
}

// Match reports whether rel passes the globs. Leading slashes are ignored.
func (g Globs) Match(rel string) bool {
	rel = strings.TrimLeft(rel, "/")
	for _, p := range g.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	if len(g.Include) == 0 {
		return true
	}
	for _, p := range g.Include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// DocType names the kind of source in a file, used by type-restricted
// searches. Unknown extensions are "plain".
func DocType(name string) string {
	base := path.Base(name)
	if t, ok := typeNames[base]; ok {
		return t
	}
	if t, ok := typeNames[strings.ToLower(path.Ext(base))]; ok {
		return t
	}
	return "plain"
}

var typeNames = map[string]string{
	".c":          "c",
	".h":          "c",
	".cc":         "cxx",
	".cpp":        "cxx",
	".cxx":        "cxx",
	".hh":         "cxx",
	".hpp":        "cxx",
	".go":         "golang",
	".java":       "java",
	".js":         "javascript",
	".ts":         "typescript",
	".py":         "python",
	".rb":         "ruby",
	".rs":         "rust",
	".sh":         "sh",
	".bash":       "sh",
	".sql":        "sql",
	".xml":        "xml",
	".html":       "xml",
	".md":         "markdown",
	".json":       "json",
	".yaml":       "yaml",
	".yml":        "yaml",
	".toml":       "toml",
	"Makefile":    "make",
	"makefile":    "make",
	"GNUmakefile": "make",
}

// IsBinary reports whether data looks binary: a NUL byte in the first 8KB.
// Binary documents are never indexed or scanned.
func IsBinary(data []byte) bool {
	limit := 8192
	if len(data) < limit {
		limit = len(data)
	}
	return bytes.IndexByte(data[:limit], 0) >= 0
}

// IsBinaryExtension reports whether name has the extension of a binary
// format, including versioned shared libraries such as "libfoo.so.1.2".
// The walker skips these without opening them.
func IsBinaryExtension(name string) bool {
	if strings.Contains(name, ".so.") {
		return true
	}
	_, ok := binaryExts[strings.ToLower(path.Ext(name))]
	return ok
}

var binaryExts = extSet(
	// objects and archives
	".a .o .z .so .dylib .dll .exe .bin .elf .class .pyc .pyo .wasm",
	".gz .bz2 .xz .zst .lz4 .lzo .zip .tar .rar .7z .cab .deb .rpm .jar .war",
	// media
	".png .jpg .jpeg .gif .bmp .ico .tif .tiff .webp .psd .xcf",
	".mp3 .mp4 .ogg .flac .wav .avi .mkv .webm .mov .wmv",
	".ttf .otf .woff .woff2 .eot",
	// office documents, databases, editor swap files
	".pdf .doc .docx .xls .xlsx .ppt .pptx .odt .db .sqlite .mdb .swp .swo",
)

func extSet(lists ...string) map[string]struct{} {
	m := make(map[string]struct{})
	for _, l := range lists {
		for _, ext := range strings.Fields(l) {
			m[ext] = struct{}{}
		}
	}
	return m
}
