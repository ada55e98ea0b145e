// mmap_fallback.go
//go:build medialibchecker && !unix

package main

import (
	"errors"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// readAndHash reads [offset, offset+length) of f in blockSize-sized
// chunks through a scratch buffer and feeds each chunk into w. Used on
// platforms without a stable memory-mapping primitive; mirrors the
// "no backing array" branch of the mmap read path.
func readAndHash(f *os.File, offset, length int64, blockSize int, w io.Writer, logger *logrus.Entry) error {
	if length == 0 {
		return nil
	}
	if blockSize <= 0 {
		blockSize = int(length)
	}
	scratch := make([]byte, blockSize)

	remaining := length
	pos := offset
	for remaining > 0 {
		chunk := int64(blockSize)
		if chunk > remaining {
			chunk = remaining
		}
		n, err := f.ReadAt(scratch[:chunk], pos)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if n > 0 {
			if _, werr := w.Write(scratch[:n]); werr != nil {
				return werr
			}
		}
		pos += int64(n)
		remaining -= int64(n)
		if n == 0 {
			break
		}
	}
	return nil
}
