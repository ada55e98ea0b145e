// mmap_unix.go
//go:build medialibchecker && unix

package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// readAndHash maps [offset, offset+length) of f read-only, issues a
// best-effort MADV_WILLNEED prefetch hint, and feeds the whole mapped
// region into w in a single Write call. A Go mmap always exposes a
// contiguous []byte, so the scratch-buffer branch of the fallback
// implementation never triggers here.
func readAndHash(f *os.File, offset, length int64, blockSize int, w io.Writer, logger *logrus.Entry) error {
	if length == 0 {
		return nil
	}
	data, err := unix.Mmap(int(f.Fd()), offset, int(length), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	defer unix.Munmap(data)

	if err := unix.Madvise(data, unix.MADV_WILLNEED); err != nil {
		logger.WithError(err).Trace("prefetch hint failed")
	}

	_, err = w.Write(data)
	return err
}
