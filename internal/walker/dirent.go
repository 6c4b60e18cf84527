package walker

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// d_type values from dirent.h.
const (
	dtUnknown = 0
	dtDir     = 4
	dtReg     = 8
	dtLnk     = 10
)

// linux_dirent64 layout: d_ino (8), d_off (8), d_reclen (2), d_type (1),
// then the NUL-terminated name.
const direntHeader = 19

// readDir calls fn for every entry of the open directory fd except "." and
// "..". buf is scratch space for getdents64.
func readDir(fd int, buf []byte, fn func(name string, typ uint8)) error {
	for {
		n, err := unix.Getdents(fd, buf)
		if err != nil {
			return err
		}
		if n <= 0 {
			return nil
		}
		parseDirents(buf[:n], fn)
	}
}

func parseDirents(buf []byte, fn func(name string, typ uint8)) {
	for off := 0; off+direntHeader <= len(buf); {
		reclen := int(binary.NativeEndian.Uint16(buf[off+16:]))
		if reclen == 0 {
			return
		}
		end := min(off+reclen, len(buf))
		name := buf[off+direntHeader : end]
		for i, c := range name {
			if c == 0 {
				name = name[:i]
				break
			}
		}
		if s := string(name); s != "." && s != ".." {
			fn(s, buf[off+18])
		}
		off += reclen
	}
}
