package output

import (
	"encoding/json"

	"github.com/dl/gogrok/internal/highlight"
)

// JSONFormatter formats results as JSON Lines (one JSON object per line).
type JSONFormatter struct{}

// NewJSONFormatter creates a JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// jsonLine is the JSON serialization format for an excerpt line.
type jsonLine struct {
	Type        string     `json:"type"`
	File        string     `json:"file,omitempty"`
	LineNum     int        `json:"line_number,omitempty"`
	Revision    string     `json:"revision,omitempty"`
	Text        string     `json:"text"`
	Matches     []jsonPos  `json:"matches,omitempty"`
	LeftElided  bool       `json:"left_elided,omitempty"`
	RightElided bool       `json:"right_elided,omitempty"`
	Tag         string     `json:"tag,omitempty"`
	Scope       *jsonScope `json:"scope,omitempty"`
}

// jsonPos is a highlighted range in the byte offsets of Text.
type jsonPos struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type jsonScope struct {
	Name string `json:"name"`
	Line int    `json:"line"`
}

// jsonSummary closes the records of one document.
type jsonSummary struct {
	Type      string `json:"type"`
	File      string `json:"file"`
	Source    string `json:"source,omitempty"`
	Matches   int    `json:"matches"`
	Limited   bool   `json:"limited,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

func (f *JSONFormatter) Format(buf []byte, r Result) []byte {
	if !r.HasMatch() {
		return buf
	}

	for _, l := range r.Lines {
		jl := jsonLine{
			Type:        "context",
			File:        r.Path,
			LineNum:     l.Number(),
			LeftElided:  l.LeftElided,
			RightElided: l.RightElided,
			Tag:         l.Tag,
		}
		if l.Highlighted() {
			jl.Type = "match"
		}
		jl.Text, jl.Matches = flatten(l.Segments)
		if l.Scope != nil {
			jl.Scope = &jsonScope{Name: l.Scope.Name, Line: l.Scope.From}
		}
		buf = appendJSON(buf, jl)
	}
	for _, h := range r.History {
		jl := jsonLine{
			Type:     "history",
			File:     r.Path,
			Revision: h.Revision,
		}
		jl.Text, jl.Matches = flatten(h.Segments)
		buf = appendJSON(buf, jl)
	}

	return appendJSON(buf, jsonSummary{
		Type:      "end",
		File:      r.Path,
		Source:    r.Source,
		Matches:   r.Count(),
		Limited:   r.Limited,
		Truncated: r.Truncated,
	})
}

func flatten(segs []highlight.Segment) (string, []jsonPos) {
	var (
		text []byte
		pos  []jsonPos
	)
	for _, s := range segs {
		if s.Highlight {
			pos = append(pos, jsonPos{Start: len(text), End: len(text) + len(s.Text)})
		}
		text = append(text, s.Text...)
	}
	return string(text), pos
}

func appendJSON(buf []byte, v any) []byte {
	data, _ := json.Marshal(v)
	buf = append(buf, data...)
	return append(buf, '\n')
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
