package output

import (
	"net/url"
	"strconv"

	"github.com/dl/gogrok/internal/highlight"
)

// DefaultEmphasis is the HTML element wrapped around highlighted text.
const DefaultEmphasis = "em"

// Renderer writes excerpt lines for one output medium. Implementations escape
// raw text and emit a per-line anchor that links back to the line.
type Renderer interface {
	// AppendLine appends a line of a document at href.
	AppendLine(buf []byte, href string, l Line) []byte
	// AppendMore appends the link to the complete result.
	AppendMore(buf []byte, href string) []byte
	// AppendHistory appends a matched history message.
	AppendHistory(buf []byte, h HistoryLine) []byte
}

// HTMLRenderer renders lines as the HTML fragments of a search results page.
type HTMLRenderer struct {
	// Emphasis is the element used for highlights, DefaultEmphasis if empty.
	Emphasis string
}

// NewHTMLRenderer returns a renderer using element for highlights.
func NewHTMLRenderer(element string) *HTMLRenderer {
	return &HTMLRenderer{Emphasis: element}
}

func (h *HTMLRenderer) emphasis() string {
	if h.Emphasis == "" {
		return DefaultEmphasis
	}
	return h.Emphasis
}

func (h *HTMLRenderer) AppendLine(buf []byte, href string, l Line) []byte {
	if l.Framed {
		if l.Overline {
			buf = append(buf, `<span class="ovl">`...)
		} else {
			buf = append(buf, `<span class="xovl">`...)
		}
	}
	num := strconv.Itoa(l.Number())
	buf = append(buf, `<a class="s" href="`...)
	buf = AppendEscaped(buf, href)
	buf = append(buf, '#')
	buf = append(buf, num...)
	buf = append(buf, `"><span class="l">`...)
	buf = append(buf, num...)
	buf = append(buf, "</span> "...)
	buf = h.appendBody(buf, l.Rendered, false)
	buf = append(buf, "</a>"...)

	if l.Tag != "" {
		buf = append(buf, "  <i>"...)
		buf = AppendEscaped(buf, l.Tag)
		buf = append(buf, "</i>"...)
	}
	if l.Scope != nil {
		buf = append(buf, `  <a class="scope" href="`...)
		buf = AppendEscaped(buf, href)
		buf = append(buf, '#')
		buf = strconv.AppendInt(buf, int64(l.Scope.From), 10)
		buf = append(buf, `">in `...)
		buf = AppendEscaped(buf, l.Scope.Name)
		buf = append(buf, "()</a>"...)
	}

	buf = append(buf, "<br/>"...)
	if l.Framed {
		buf = append(buf, "</span>"...)
	}
	return buf
}

func (h *HTMLRenderer) AppendMore(buf []byte, href string) []byte {
	buf = append(buf, `<a href="`...)
	buf = AppendEscaped(buf, href)
	buf = append(buf, `">[all &hellip;]</a><br/>`...)
	return append(buf, '\n')
}

func (h *HTMLRenderer) AppendHistory(buf []byte, hl HistoryLine) []byte {
	if hl.DiffURL != "" {
		buf = append(buf, `<a href="`...)
		buf = AppendEscaped(buf, hl.DiffURL)
		buf = append(buf, `" title="diff to previous version">diff</a> `...)
	}
	return h.appendBody(buf, hl.Rendered, true)
}

// appendBody writes the segments of r with ellipses at elided ends. With
// flatten set, line breaks inside the text become spaces.
func (h *HTMLRenderer) appendBody(buf []byte, r highlight.Rendered, flatten bool) []byte {
	em := h.emphasis()
	if r.LeftElided {
		buf = append(buf, "&hellip;"...)
	}
	for _, s := range r.Segments {
		if s.Highlight {
			buf = append(buf, '<')
			buf = append(buf, em...)
			buf = append(buf, '>')
		}
		if flatten {
			buf = appendFlattened(buf, s.Text)
		} else {
			buf = AppendEscaped(buf, s.Text)
		}
		if s.Highlight {
			buf = append(buf, "</"...)
			buf = append(buf, em...)
			buf = append(buf, '>')
		}
	}
	if r.RightElided {
		buf = append(buf, "&hellip;"...)
	}
	return buf
}

// PathURL joins prefix and the escaped form of a document path.
func PathURL(prefix, path string) string {
	return prefix + (&url.URL{Path: path}).EscapedPath()
}

// AppendEscaped appends s with the HTML special characters escaped.
func AppendEscaped(buf []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '&':
			buf = append(buf, "&amp;"...)
		case '<':
			buf = append(buf, "&lt;"...)
		case '>':
			buf = append(buf, "&gt;"...)
		case '"':
			buf = append(buf, "&quot;"...)
		default:
			buf = append(buf, c)
		}
	}
	return buf
}

func appendFlattened(buf []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\r':
		case '\n':
			buf = append(buf, ' ')
		default:
			buf = AppendEscaped(buf, s[i:i+1])
		}
	}
	return buf
}
