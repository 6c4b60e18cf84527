package walker

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"text only", []byte("hello world\nfoo bar\n"), false},
		{"empty", []byte{}, false},
		{"nul byte", []byte("hello\x00world"), true},
		{"nul at start", []byte{0, 'h', 'e', 'l', 'l', 'o'}, true},
		{"nul at 8KB boundary", append(bytes.Repeat([]byte("a"), 8191), 0), true},
		{"nul past 8KB", append(append(bytes.Repeat([]byte("a"), 8192), 'b'), 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBinary(tt.data))
		})
	}
}

func TestGlobs(t *testing.T) {
	tests := []struct {
		name  string
		globs Globs
		rel   string
		want  bool
	}{
		{"no globs", Globs{}, "/src/a.c", true},
		{"include hit", Globs{Include: []string{"**/*.c"}}, "/src/a.c", true},
		{"include miss", Globs{Include: []string{"**/*.c"}}, "/src/a.go", false},
		{"exclude wins", Globs{Include: []string{"**"}, Exclude: []string{"vendor/**"}}, "/vendor/x/a.c", false},
		{"exclude other", Globs{Exclude: []string{"vendor/**"}}, "/src/vendor.c", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.globs.Match(tt.rel))
		})
	}

	assert.Error(t, (Globs{Include: []string{"[a-"}}).Validate(), "malformed glob")
	assert.NoError(t, (Globs{Include: []string{"**/*.go"}, Exclude: []string{"a/{b,c}/*"}}).Validate())
}

func TestDocType(t *testing.T) {
	tests := map[string]string{
		"/src/main.c":      "c",
		"/src/Main.JAVA":   "java",
		"/Makefile":        "make",
		"/lib/x.hpp":       "cxx",
		"/README":          "plain",
		"/cmd/gogrok.go":   "golang",
		"/docs/notes.yaml": "yaml",
	}
	for name, want := range tests {
		assert.Equal(t, want, DocType(name), name)
	}
}

func TestIsBinaryExtension(t *testing.T) {
	cases := map[string]bool{
		"a.o": true, "lib.so.1.2": true, "x.PNG": true, "arch.tar": true,
		"main.c": false, "Makefile": false, "notes.so": true, "so.c": false,
	}
	for name, want := range cases {
		assert.Equal(t, want, IsBinaryExtension(name), name)
	}
}
