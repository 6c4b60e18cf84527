package input

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// bufPool pools read buffers across files. Buffers are stored as *[]byte
// so a grown backing array goes back to the pool.
var bufPool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 64*1024)
		return &b
	},
}

// BufferedReader reads whole files with pread into pooled buffers.
type BufferedReader struct{}

func NewBufferedReader() *BufferedReader {
	return &BufferedReader{}
}

func (r *BufferedReader) Read(path string) (*File, error) {
	fd, st, err := openStat(path)
	if err != nil {
		return nil, err
	}
	if st.Size == 0 {
		unix.Close(fd)
		return emptyFile(&st), nil
	}
	return readBuffered(fd, &st)
}

// readBuffered reads an open file into a pooled buffer. It takes ownership
// of fd.
func readBuffered(fd int, st *unix.Stat_t) (*File, error) {
	defer unix.Close(fd)

	size := int(st.Size)
	bp := bufPool.Get().(*[]byte)
	buf := *bp
	if cap(buf) < size {
		buf = make([]byte, size)
	} else {
		buf = buf[:size]
	}
	release := func() error {
		*bp = buf[:0]
		bufPool.Put(bp)
		return nil
	}

	total := 0
	for total < size {
		n, err := unix.Pread(fd, buf[total:], int64(total))
		if err != nil {
			release()
			return nil, fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			break
		}
		total += n
	}

	return &File{
		Data:    buf[:total],
		Size:    int64(total),
		ModTime: modTime(st),
		closer:  release,
	}, nil
}

// openStat opens path without updating its access time where allowed, and
// stats the descriptor.
func openStat(path string) (int, unix.Stat_t, error) {
	var st unix.Stat_t
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NOATIME, 0)
	if err != nil {
		fd, err = unix.Open(path, unix.O_RDONLY, 0)
	}
	if err != nil {
		return -1, st, fmt.Errorf("open %s: %w", path, err)
	}
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return -1, st, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.Mode&unix.S_IFMT == unix.S_IFDIR {
		unix.Close(fd)
		return -1, st, fmt.Errorf("read %s: is a directory", path)
	}
	return fd, st, nil
}
