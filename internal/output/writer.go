package output

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Writer writes formatted output to a file descriptor, using writev for batching.
type Writer struct {
	fd int
}

// NewWriter creates a Writer that writes to f.
func NewWriter(f *os.File) *Writer {
	return &Writer{fd: int(f.Fd())}
}

// Write writes the given bytes using writev for scatter-gather I/O.
func (w *Writer) Write(data []byte) (int, error) {
	total := 0
	for len(data) > 0 {
		iovs := [][]byte{data}
		n, err := unix.Writev(w.fd, iovs)
		if err != nil {
			return total, err
		}
		total += n
		data = data[n:]
	}
	return total, nil
}

var _ io.Writer = (*Writer)(nil)

// OrderedWriter receives results from a channel and writes them in sequence order.
// This ensures output is deterministic even with parallel workers.
type OrderedWriter struct {
	writer    io.Writer
	formatter Formatter
	buf       []byte
}

// NewOrderedWriter creates an OrderedWriter.
func NewOrderedWriter(w io.Writer, f Formatter) *OrderedWriter {
	return &OrderedWriter{
		writer:    w,
		formatter: f,
	}
}

// WriteOrdered consumes results from the channel, buffering out-of-order results
// and writing them in sequence-number order. Sequence numbers start at 1.
// onResult, if set, sees every result in output order, including failed ones.
// The first write error is returned after the channel is drained.
func (ow *OrderedWriter) WriteOrdered(results <-chan Result, onResult func(Result)) error {
	nextSeq := 1
	pending := make(map[int]Result)
	var werr error

	emit := func(r Result) {
		if onResult != nil {
			onResult(r)
		}
		if werr == nil {
			werr = ow.writeResult(r)
		}
	}

	for r := range results {
		if r.SeqNum != nextSeq {
			pending[r.SeqNum] = r
			continue
		}
		emit(r)
		nextSeq++
		// Flush any consecutive pending results
		for {
			p, ok := pending[nextSeq]
			if !ok {
				break
			}
			emit(p)
			delete(pending, nextSeq)
			nextSeq++
		}
	}
	return werr
}

func (ow *OrderedWriter) writeResult(r Result) error {
	if r.Err != nil {
		return nil
	}
	ow.buf = ow.formatter.Format(ow.buf[:0], r)
	if len(ow.buf) == 0 {
		return nil
	}
	_, err := ow.writer.Write(ow.buf)
	return err
}
