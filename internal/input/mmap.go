package input

import (
	"golang.org/x/sys/unix"
)

// MmapReader maps files into memory with sequential access hints.
type MmapReader struct{}

func NewMmapReader() *MmapReader {
	return &MmapReader{}
}

func (r *MmapReader) Read(path string) (*File, error) {
	fd, st, err := openStat(path)
	if err != nil {
		return nil, err
	}
	if st.Size == 0 {
		unix.Close(fd)
		return emptyFile(&st), nil
	}
	return readMmap(fd, &st)
}

// readMmap maps an open file, falling back to a buffered read when the
// mapping fails. It takes ownership of fd.
func readMmap(fd int, st *unix.Stat_t) (*File, error) {
	unix.Fadvise(fd, 0, st.Size, unix.FADV_SEQUENTIAL)

	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ, unix.MAP_PRIVATE|unix.MAP_POPULATE)
	if err != nil {
		return readBuffered(fd, st)
	}
	unix.Close(fd)
	unix.Madvise(data, unix.MADV_SEQUENTIAL)

	return &File{
		Data:    data,
		Size:    st.Size,
		ModTime: modTime(st),
		closer: func() error {
			return unix.Munmap(data)
		},
	}, nil
}

// NewAdaptiveReader returns a Reader that maps files of at least
// mmapThreshold bytes and reads smaller ones into buffers.
func NewAdaptiveReader(mmapThreshold int64) Reader {
	return &adaptiveReader{threshold: mmapThreshold}
}

type adaptiveReader struct {
	threshold int64
}

func (r *adaptiveReader) Read(path string) (*File, error) {
	fd, st, err := openStat(path)
	if err != nil {
		return nil, err
	}
	switch {
	case st.Size == 0:
		unix.Close(fd)
		return emptyFile(&st), nil
	case r.threshold > 0 && st.Size >= r.threshold:
		return readMmap(fd, &st)
	}
	return readBuffered(fd, &st)
}
