package input

import (
	"fmt"
	"io"
	"time"
)

// ReadAll reads a stream such as standard input into a File stamped with
// the current time.
func ReadAll(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return &File{Data: data, Size: int64(len(data)), ModTime: time.Now()}, nil
}
