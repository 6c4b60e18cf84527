package highlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl/gogrok/internal/lineindex"
)

func TestRender_Elided(t *testing.T) {
	ix := lineindex.New(doc)
	lines := converter(t, 0).Convert([]MatchSpan{wordSpan(t, doc, "dignissim")}, ix)
	lh := lines.Get(5)
	require.NotNil(t, lh)

	r := lh.Render(ix.LineNoEOL(5))
	assert.True(t, r.LeftElided)
	assert.True(t, r.RightElided)
	assert.Equal(t, []Segment{
		{Text: "putate ipsum sed laoreet. Nam maximus libero non ornare egestas. Aenean "},
		{Text: "dignissim", Highlight: true},
		{Text: " ipsum eu rhoncus"},
	}, r.Segments)
}

func TestRender_OpenBounds(t *testing.T) {
	lh := NewLineHighlight(3)
	lh.Add(Ender(3))
	lh.Add(Starter(8))
	lh.Condense()

	r := lh.Render("abc def ghi")
	assert.Equal(t, 3, r.LineNo)
	assert.False(t, r.LeftElided)
	assert.False(t, r.RightElided)
	assert.Equal(t, []Segment{
		{Text: "abc", Highlight: true},
		{Text: " def "},
		{Text: "ghi", Highlight: true},
	}, r.Segments)

	whole := NewLineHighlight(0)
	whole.Add(Entire())
	assert.Equal(t, []Segment{{Text: "def", Highlight: true}}, whole.Render("def").Segments)
}

func TestRender_ClampsOutOfRange(t *testing.T) {
	lh := NewLineHighlight(0)
	lh.Add(Span(2, 50))
	lh.Add(Span(70, 80))
	lh.LeftElide = 99
	lh.RightElide = 120

	r := lh.Render("abcdef")
	assert.True(t, r.LeftElided)
	assert.False(t, r.RightElided)
	assert.Empty(t, r.Segments)

	lh.LeftElide, lh.RightElide = 0, 0
	r = lh.Render("abcdef")
	assert.Equal(t, []Segment{{Text: "ab"}, {Text: "cdef", Highlight: true}}, r.Segments)
}

func TestRender_RuneBoundaries(t *testing.T) {
	lh := NewLineHighlight(0)
	lh.LeftElide = 1 // inside "é"
	lh.RightElide = 4
	r := lh.Render("éabcd")
	require.Len(t, r.Segments, 1)
	assert.Equal(t, "ab", r.Segments[0].Text)
}

func TestMarks(t *testing.T) {
	lh := NewLineHighlight(0)
	lh.Add(Ender(2))
	lh.Add(Span(4, 7))
	lh.Add(Span(8, 30))
	assert.Equal(t, []string{"def"}, lh.Marks("abc def ghi"))
}
