// Package input loads source files into memory for indexing and live
// scanning.
package input

import (
	"bytes"
	"io"
	"time"

	"golang.org/x/sys/unix"
)

// File holds the content of one file and the metadata identifying the
// version that was read. Close releases the content; Data must not be used
// afterwards.
type File struct {
	Data    []byte
	Size    int64
	ModTime time.Time
	closer  func() error
}

// NewReader returns a reader over the file content.
func (f *File) NewReader() io.Reader {
	return bytes.NewReader(f.Data)
}

// Close releases buffers or mappings backing Data.
func (f *File) Close() error {
	if f.closer == nil {
		return nil
	}
	c := f.closer
	f.closer = nil
	f.Data = nil
	return c()
}

// Reader reads file content into memory.
type Reader interface {
	Read(path string) (*File, error)
}

func modTime(st *unix.Stat_t) time.Time {
	return time.Unix(st.Mtim.Unix())
}

// emptyFile describes a zero-length file; it owns nothing.
func emptyFile(st *unix.Stat_t) *File {
	return &File{ModTime: modTime(st)}
}
