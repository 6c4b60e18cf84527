package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dl/gogrok/internal/highlight"
	"github.com/dl/gogrok/internal/symbols"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, l := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(l), &m), "invalid JSON %q", l)
		out = append(out, m)
	}
	return out
}

func TestJSONFormatter_Lines(t *testing.T) {
	ctx := line(1, plain("before"))
	match := line(2, plain("abc "), hl("def"), plain(" ghi"), hl("def"))
	match.Tag = "type"
	match.Scope = &symbols.Scope{From: 1, To: 5, Name: "outer"}
	match.RightElided = true

	res := Result{Path: "a.c", Lines: []Line{ctx, match}, Source: "index", Limited: true}
	got := decodeLines(t, NewJSONFormatter().Format(nil, res))
	require.Len(t, got, 3)

	assert.Equal(t, "context", got[0]["type"])
	assert.Equal(t, 2.0, got[0]["line_number"])
	assert.NotContains(t, got[0], "matches")

	m := got[1]
	assert.Equal(t, "match", m["type"])
	assert.Equal(t, "abc def ghidef", m["text"])
	assert.Equal(t, "type", m["tag"])
	assert.Equal(t, true, m["right_elided"])

	pos, ok := m["matches"].([]any)
	require.True(t, ok, "matches = %v", m["matches"])
	require.Len(t, pos, 2)
	second := pos[1].(map[string]any)
	assert.Equal(t, 11.0, second["start"])
	assert.Equal(t, 14.0, second["end"])

	scope := m["scope"].(map[string]any)
	assert.Equal(t, "outer", scope["name"])
	assert.Equal(t, 1.0, scope["line"])

	end := got[2]
	assert.Equal(t, "end", end["type"])
	assert.Equal(t, 1.0, end["matches"])
	assert.Equal(t, true, end["limited"])
	assert.Equal(t, "index", end["source"])
}

func TestJSONFormatter_History(t *testing.T) {
	res := Result{
		Path: "a.c",
		History: []HistoryLine{{
			Revision: "r2",
			Rendered: highlight.Rendered{Segments: []highlight.Segment{plain("fix "), hl("bug")}},
		}},
	}
	got := decodeLines(t, NewJSONFormatter().Format(nil, res))
	require.Len(t, got, 2)
	assert.Equal(t, "history", got[0]["type"])
	assert.Equal(t, "r2", got[0]["revision"])
	assert.Equal(t, "fix bug", got[0]["text"])
}

func TestJSONFormatter_NoMatch(t *testing.T) {
	assert.Empty(t, NewJSONFormatter().Format(nil, Result{Path: "a.c"}))
}
