package output

import "strconv"

// Formatter formats a Result into bytes for output.
// buf is a reusable buffer: implementations append to it and return the result.
// Callers can pass buf[:0] to reuse the underlying array without allocating.
type Formatter interface {
	Format(buf []byte, result Result) []byte
}

// HTMLFormatter wraps each document's excerpt in a definition list entry.
type HTMLFormatter struct {
	// URLPrefix is prepended to document paths in the heading link.
	URLPrefix string
}

func NewHTMLFormatter(urlPrefix string) *HTMLFormatter {
	return &HTMLFormatter{URLPrefix: urlPrefix}
}

func (f *HTMLFormatter) Format(buf []byte, r Result) []byte {
	if !r.HasMatch() {
		return buf
	}
	buf = append(buf, `<dt><a href="`...)
	buf = AppendEscaped(buf, PathURL(f.URLPrefix, r.Path))
	buf = append(buf, `">`...)
	buf = AppendEscaped(buf, r.Path)
	buf = append(buf, "</a></dt>\n<dd>"...)
	buf = append(buf, r.Excerpt...)
	buf = append(buf, "</dd>\n"...)
	return buf
}

// TextFormatter prints each document's path followed by its excerpt.
type TextFormatter struct {
	styles    Styles
	countOnly bool
	filesOnly bool
}

// NewTextFormatter creates a TextFormatter.
func NewTextFormatter(styles Styles, countOnly, filesOnly bool) *TextFormatter {
	return &TextFormatter{
		styles:    styles,
		countOnly: countOnly,
		filesOnly: filesOnly,
	}
}

func (f *TextFormatter) Format(buf []byte, r Result) []byte {
	if !r.HasMatch() {
		return buf
	}
	if f.filesOnly {
		buf = append(buf, f.styles.Path.Render(r.Path)...)
		return append(buf, '\n')
	}
	if f.countOnly {
		buf = append(buf, f.styles.Path.Render(r.Path)...)
		buf = append(buf, f.styles.Separator.Render(":")...)
		buf = strconv.AppendInt(buf, int64(r.Count()), 10)
		return append(buf, '\n')
	}
	buf = append(buf, f.styles.Path.Render(r.Path)...)
	buf = append(buf, '\n')
	buf = append(buf, r.Excerpt...)
	return buf
}

var (
	_ Formatter = (*HTMLFormatter)(nil)
	_ Formatter = (*TextFormatter)(nil)
)
