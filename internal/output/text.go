package output

import (
	"strconv"

	"github.com/dl/gogrok/internal/highlight"
)

const textEllipsis = "…"

// TextRenderer renders lines for a terminal, one line each, as
// "N: text" with highlights styled.
type TextRenderer struct {
	styles Styles
}

// NewTextRenderer creates a TextRenderer with the given styles.
func NewTextRenderer(styles Styles) *TextRenderer {
	return &TextRenderer{styles: styles}
}

func (t *TextRenderer) AppendLine(buf []byte, _ string, l Line) []byte {
	if l.Framed && l.Overline {
		buf = append(buf, t.styles.Separator.Render("--")...)
		buf = append(buf, '\n')
	}
	buf = append(buf, t.styles.LineNum.Render(strconv.Itoa(l.Number()))...)
	buf = append(buf, t.styles.Separator.Render(":")...)
	buf = t.appendBody(buf, l.Rendered)

	if l.Tag != "" {
		buf = append(buf, "  "...)
		buf = append(buf, t.styles.Tag.Render("["+l.Tag+"]")...)
	}
	if l.Scope != nil {
		buf = append(buf, "  "...)
		buf = append(buf, t.styles.Scope.Render("in "+l.Scope.Name+"()")...)
	}
	return append(buf, '\n')
}

func (t *TextRenderer) AppendMore(buf []byte, url string) []byte {
	buf = append(buf, t.styles.Separator.Render("[all "+textEllipsis+"]")...)
	if url != "" {
		buf = append(buf, ' ')
		buf = append(buf, url...)
	}
	return append(buf, '\n')
}

func (t *TextRenderer) AppendHistory(buf []byte, h HistoryLine) []byte {
	buf = append(buf, t.styles.Revision.Render(h.Revision)...)
	buf = append(buf, t.styles.Separator.Render(":")...)
	buf = t.appendBody(buf, h.Rendered)
	return append(buf, '\n')
}

func (t *TextRenderer) appendBody(buf []byte, r highlight.Rendered) []byte {
	if r.LeftElided {
		buf = append(buf, t.styles.Ellipsis.Render(textEllipsis)...)
	}
	for _, s := range r.Segments {
		if s.Highlight {
			buf = append(buf, t.styles.Match.Render(s.Text)...)
		} else {
			buf = append(buf, s.Text...)
		}
	}
	if r.RightElided {
		buf = append(buf, t.styles.Ellipsis.Render(textEllipsis)...)
	}
	return buf
}
