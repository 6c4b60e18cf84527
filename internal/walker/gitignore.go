package walker

import (
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
)

type ignoreLayer struct {
	dir    string
	parser *ignore.GitIgnore // nil when dir has no usable .gitignore
}

// ignoreLayers holds the .gitignore rules of a directory and its ancestors,
// outermost first. Parsers are immutable and shared between goroutines.
type ignoreLayers []ignoreLayer

// child returns the layers in effect inside dir: a copy of ls plus dir's own
// .gitignore.
func (ls ignoreLayers) child(dir string) ignoreLayers {
	c := make(ignoreLayers, len(ls), len(ls)+1)
	copy(c, ls)
	return append(c, loadIgnoreLayer(dir))
}

func loadIgnoreLayer(dir string) ignoreLayer {
	parser, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return ignoreLayer{dir: dir}
	}
	return ignoreLayer{dir: dir, parser: parser}
}

// ignored reports whether any layer excludes fullPath.
func (ls ignoreLayers) ignored(fullPath string, isDir bool) bool {
	for _, layer := range ls {
		if layer.parser == nil {
			continue
		}
		rel, err := filepath.Rel(layer.dir, fullPath)
		if err != nil {
			continue
		}
		if isDir {
			rel += "/"
		}
		if layer.parser.MatchesPath(rel) {
			return true
		}
	}
	return false
}
