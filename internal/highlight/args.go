package highlight

import "fmt"

// DefaultLineWidth is the number of characters shown per context line.
const DefaultLineWidth = 100

// ContextArgs bounds one request's context output. It is built once per
// request and only read afterwards.
type ContextArgs struct {
	SurroundLines int // lines of context around each match
	LineLimit     int // maximum lines shown per document
	LineWidth     int // characters kept per line, ellipses included
}

// NewContextArgs returns validated arguments with the default line width.
func NewContextArgs(surround, limit int) (ContextArgs, error) {
	a := ContextArgs{SurroundLines: surround, LineLimit: limit, LineWidth: DefaultLineWidth}
	if err := a.Validate(); err != nil {
		return ContextArgs{}, err
	}
	return a, nil
}

// Validate checks the bounds of every field.
func (a ContextArgs) Validate() error {
	if a.SurroundLines < 0 {
		return fmt.Errorf("invalid context surround: %d", a.SurroundLines)
	}
	if a.LineLimit < 1 {
		return fmt.Errorf("invalid context limit: %d", a.LineLimit)
	}
	if a.LineWidth < 3 {
		return fmt.Errorf("invalid line width: %d", a.LineWidth)
	}
	return nil
}
