package query

import (
	"crypto/sha1"
	"path/filepath"
	"strings"
)

// DirPathKey returns the index key for a directory path. The path is
// normalized to forward slashes with a trailing slash, hashed with SHA-1,
// and every digest byte is written as two characters 'g'+high nibble,
// 'g'+low nibble. The encoding is part of the on-disk format.
func DirPathKey(path string) string {
	norm := filepath.ToSlash(path)
	if !strings.HasSuffix(norm, "/") {
		norm += "/"
	}
	sum := sha1.Sum([]byte(norm))

	buf := make([]byte, 0, 2*len(sum))
	for _, b := range sum {
		buf = append(buf, 'g'+(b>>4), 'g'+(b&0x0f))
	}
	return string(buf)
}
