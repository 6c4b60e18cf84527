package excerpt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl/gogrok/internal/highlight"
	"github.com/dl/gogrok/internal/output"
	"github.com/dl/gogrok/internal/symbols"
)

const doc = "    Lorem ipsum dolor sit amet, consectetur adipiscing elit.\n" +
	"Mauris vel tortor vel nisl efficitur fermentum nec vel erat.\n" +
	"Mauris diam nisl, tincidunt nec gravida sit amet, efficitur vitae\n" +
	"est. Sed aliquam non mi vel mattis:\n" +
	"\n" +
	"    Maecenas vitae lacus velit varius vulputate ipsum sed laoreet. Nam maximus libero non ornare egestas." +
	" Aenean dignissim ipsum eu rhoncus ultricies.\n" +
	"\n" +
	"    Fusce pretium hendrerit dictum. Pellentesque habitant\n" +
	"morbi tristique senectus et netus."

const doc2 = "abc\ndef\nghi"

const elidedLine6 = `<a class="s" href="http://example.com#6"><span class="l">6</span> ` +
	`&hellip;putate ipsum sed laoreet. Nam maximus libero non ornare egestas. Aenean <b>dignissim</b> ipsum eu rhoncus&hellip;</a><br/>`

func wordSpan(t *testing.T, text, word string) highlight.MatchSpan {
	t.Helper()
	off := strings.Index(text, word)
	require.GreaterOrEqual(t, off, 0, word)
	return highlight.MatchSpan{Start: off, End: off + len(word), Subs: []highlight.SubMatch{{Start: off, End: off + len(word)}}}
}

func formatter(t *testing.T, surround, limit int) *Formatter {
	t.Helper()
	args, err := highlight.NewContextArgs(surround, limit)
	require.NoError(t, err)
	f := NewFormatter(args, output.NewHTMLRenderer("b"))
	f.URL = "http://example.com"
	return f
}

func xovl(s string) string { return `<span class="xovl">` + s + `</span>` }

func TestFormat_LineMatch(t *testing.T) {
	span := wordSpan(t, doc, "gravida")

	res := formatter(t, 0, 10).Format([]highlight.MatchSpan{span}, doc)
	assert.Equal(t, `<a class="s" href="http://example.com#3"><span class="l">3</span> `+
		`Mauris diam nisl, tincidunt nec <b>gravida</b> sit amet, efficitur vitae</a><br/>`, res.String())
	assert.False(t, res.Limited())

	res = formatter(t, 1, 10).Format([]highlight.MatchSpan{span}, doc)
	want := xovl(`<a class="s" href="http://example.com#2"><span class="l">2</span> `+
		`Mauris vel tortor vel nisl efficitur fermentum nec vel erat.</a><br/>`) +
		xovl(`<a class="s" href="http://example.com#3"><span class="l">3</span> `+
			`Mauris diam nisl, tincidunt nec <b>gravida</b> sit amet, efficitur vitae</a><br/>`) +
		xovl(`<a class="s" href="http://example.com#4"><span class="l">4</span> `+
			`est. Sed aliquam non mi vel mattis:</a><br/>`)
	assert.Equal(t, want, res.String())
}

func TestFormat_LinesSpanningMatch(t *testing.T) {
	span := highlight.MatchSpan{Start: 0, End: len(doc2), Subs: []highlight.SubMatch{{Start: 0, End: len(doc2)}}}

	res := formatter(t, 1, 10).Format([]highlight.MatchSpan{span}, doc2)
	want := xovl(`<a class="s" href="http://example.com#1"><span class="l">1</span> <b>abc</b></a><br/>`) +
		xovl(`<a class="s" href="http://example.com#2"><span class="l">2</span> <b>def</b></a><br/>`) +
		xovl(`<a class="s" href="http://example.com#3"><span class="l">3</span> <b>ghi</b></a><br/>`)
	assert.Equal(t, want, res.String())
}

func TestFormat_ElidedMatch(t *testing.T) {
	span := wordSpan(t, doc, "dignissim")

	res := formatter(t, 0, 10).Format([]highlight.MatchSpan{span}, doc)
	assert.Equal(t, elidedLine6, res.String())

	res = formatter(t, 1, 10).Format([]highlight.MatchSpan{span}, doc)
	want := xovl(`<a class="s" href="http://example.com#5"><span class="l">5</span> </a><br/>`) +
		xovl(elidedLine6) +
		xovl(`<a class="s" href="http://example.com#7"><span class="l">7</span> </a><br/>`)
	assert.Equal(t, want, res.String())

	f := formatter(t, 1, 2)
	f.MoreURL = "http://example.com/more"
	res = f.Format([]highlight.MatchSpan{span}, doc)
	want = xovl(`<a class="s" href="http://example.com#5"><span class="l">5</span> </a><br/>`) +
		xovl(elidedLine6) +
		"<a href=\"http://example.com/more\">[all &hellip;]</a><br/>\n"
	assert.True(t, res.Limited())
	assert.Equal(t, want, res.String())
}

func TestFormat_DefaultEmphasis(t *testing.T) {
	args, err := highlight.NewContextArgs(0, 10)
	require.NoError(t, err)
	f := NewFormatter(args, output.NewHTMLRenderer(""))

	text := "abc def ghi\n"
	res := f.Format([]highlight.MatchSpan{wordSpan(t, text, "def")}, text)
	require.Equal(t, 1, res.Len())
	e, ok := res.Get(0)
	require.True(t, ok)
	assert.Equal(t, `<a class="s" href="#1"><span class="l">1</span> abc <em>def</em> ghi</a><br/>`, e.Fragment)
	assert.Equal(t, "abc def ghi", e.Line.Text())
}

func TestFormat_FooterOnlyWhenLimited(t *testing.T) {
	f := formatter(t, 0, 10)
	f.MoreURL = "http://example.com/more"
	res := f.Format([]highlight.MatchSpan{wordSpan(t, doc, "gravida")}, doc)
	assert.NotEmpty(t, res.Footer())
	assert.False(t, res.Limited())
	assert.NotContains(t, res.String(), "[all")
}

// numbered returns n lines "line0".."line{n-1}".
func numbered(n int) string {
	var sb strings.Builder
	for i := range n {
		fmt.Fprintf(&sb, "line%d\n", i)
	}
	return sb.String()
}

func TestFormat_ContextLimitDropsDanglingContext(t *testing.T) {
	text := numbered(20)
	spans := []highlight.MatchSpan{wordSpan(t, text, "line2\n"), wordSpan(t, text, "line10")}
	spans[0].End--
	spans[0].Subs[0].End--

	tests := []struct {
		limit int
		want  []int
	}{
		{6, []int{0, 1, 2, 3, 4}},
		{7, []int{0, 1, 2, 3, 4}},
		{8, []int{0, 1, 2, 3, 4, 8, 9, 10}},
		{20, []int{0, 1, 2, 3, 4, 8, 9, 10, 11, 12}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.limit), func(t *testing.T) {
			res := formatter(t, 2, tt.limit).Format(spans, text)
			var got []int
			for _, l := range res.Lines() {
				got = append(got, l.LineNo)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.limit < 20, res.Limited())
		})
	}
}

func TestFormat_OverlineAndScopes(t *testing.T) {
	text := numbered(20)
	spans := []highlight.MatchSpan{
		wordSpan(t, text, "line2\n"),
		wordSpan(t, text, "line3\n"),
		wordSpan(t, text, "line10"),
	}
	for i := range 2 {
		spans[i].End--
		spans[i].Subs[0].End--
	}

	f := formatter(t, 1, 20)
	f.Scopes = &symbols.Scopes{}
	f.Scopes.Add(symbols.Scope{From: 1, To: 20, Name: "main"})
	lines := f.Format(spans, text).Lines()

	var over, scoped []int
	for _, l := range lines {
		assert.True(t, l.Framed)
		if l.Overline {
			over = append(over, l.LineNo)
		}
		if l.Scope != nil {
			scoped = append(scoped, l.LineNo)
		}
	}
	assert.Equal(t, []int{9}, over)
	// Reported once per block: line 3 shares line 2's block.
	assert.Equal(t, []int{2, 10}, scoped)
}

func TestFormat_ScopesWithoutContext(t *testing.T) {
	text := numbered(5)
	spans := []highlight.MatchSpan{wordSpan(t, text, "line1"), wordSpan(t, text, "line2")}
	f := formatter(t, 0, 10)
	f.Scopes = &symbols.Scopes{}
	f.Scopes.Add(symbols.Scope{From: 1, To: 4, Name: "f<x>"})

	res := f.Format(spans, text)
	for _, l := range res.Lines() {
		require.NotNil(t, l.Scope, "line %d", l.LineNo)
		assert.Equal(t, "f<x>", l.Scope.Name)
	}
	assert.Contains(t, res.String(), `  <a class="scope" href="http://example.com#1">in f&lt;x&gt;()</a>`)
}

func TestFormat_TagAnnotation(t *testing.T) {
	tests := []struct {
		name string
		text string
		word string
		tags []symbols.Tag
		want string
	}{
		{"exact", "abc def ghi\n", "def", []symbols.Tag{{Line: 1, Symbol: "def", Type: "type"}}, "type"},
		{"followed by non-word", "abc def(x)\n", "def(", []symbols.Tag{{Line: 1, Symbol: "def", Type: "function"}}, "function"},
		{"followed by word", "abc defx\n", "defx", []symbols.Tag{{Line: 1, Symbol: "def", Type: "type"}}, ""},
		{"untyped skipped", "abc def\n", "def", []symbols.Tag{{Line: 1, Symbol: "def"}, {Line: 1, Symbol: "de", Type: "second"}}, ""},
		{"other line", "abc def\n", "def", []symbols.Tag{{Line: 2, Symbol: "def", Type: "type"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := formatter(t, 0, 10)
			f.Defs = symbols.NewDefinitions(tt.tags...)
			res := f.Format([]highlight.MatchSpan{wordSpan(t, tt.text, tt.word)}, tt.text)
			e, ok := res.Get(0)
			require.True(t, ok)
			assert.Equal(t, tt.want, e.Line.Tag)
			if tt.want != "" {
				assert.Contains(t, e.Fragment, "</a>  <i>"+tt.want+"</i><br/>")
			}
		})
	}
}

func TestFormat_ContextLinesNotAnnotated(t *testing.T) {
	text := "def\nabc\n"
	f := formatter(t, 1, 10)
	f.Defs = symbols.NewDefinitions(symbols.Tag{Line: 1, Symbol: "def", Type: "type"})
	res := f.Format([]highlight.MatchSpan{wordSpan(t, text, "abc")}, text)
	e, ok := res.Get(0)
	require.True(t, ok)
	assert.Empty(t, e.Line.Tag)
}

func TestFormat_ReusesIndexAcrossTexts(t *testing.T) {
	f := formatter(t, 0, 10)
	a := f.Format([]highlight.MatchSpan{wordSpan(t, doc2, "ghi")}, doc2)
	b := f.Format([]highlight.MatchSpan{wordSpan(t, doc, "gravida")}, doc)
	c := f.Format([]highlight.MatchSpan{wordSpan(t, doc2, "ghi")}, doc2)

	assert.Equal(t, a.String(), c.String())
	_, ok := b.Get(2)
	assert.True(t, ok)
}

func TestRenderLines(t *testing.T) {
	lines := []output.Line{{Rendered: highlight.Rendered{LineNo: 0, Segments: []highlight.Segment{{Text: "x", Highlight: true}}}}}
	r := output.NewHTMLRenderer("b")

	got := RenderLines(r, "/a", lines, "/more", false)
	assert.Equal(t, `<a class="s" href="/a#1"><span class="l">1</span> <b>x</b></a><br/>`, got)

	got = RenderLines(r, "/a", lines, "/more", true)
	assert.True(t, strings.HasSuffix(got, "[all &hellip;]</a><br/>\n"))
}
