// entry.go
//go:build medialibchecker

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
)

// EntryKind tags a FileEntry as a regular file or a directory. Per Design
// Notes §9, DirEntry is not a subtype of FileEntry; one struct carries
// both roles and branches on Kind where the original branched on type.
type EntryKind int

const (
	RegularFile EntryKind = iota
	Directory
)

// hashSeed is the fixed xxhash64 seed every scan uses, so the same file
// content always produces the same finalHash across runs.
const hashSeed uint64 = 0x09747B2842093420

// FileEntry is the per-path state the scanner mutates as it learns a
// path's extent map and, for regular files, scans its content.
//
// Children is nil until readContent has run (directory not yet read) and
// non-nil (possibly empty) once it has. pendingKeys records every
// physicalOffset this entry's extents were published under in the shared
// fileExtentMap, so a hashing failure can drop every remaining extent of
// this file in one step (see Traversal.dropFile).
type FileEntry struct {
	Path      string
	Kind      EntryKind
	BlockSize int
	Size      int64
	Extents   []Extent
	Children  []*FileEntry

	cursor         int
	bytesRemaining int64
	hashState      *xxhash.Digest
	file           *os.File
	pendingKeys    []int

	FinalHash uint64
	Hashed    bool
}

func newFileEntry(path string, kind EntryKind) *FileEntry {
	return &FileEntry{Path: path, Kind: kind}
}

func (fe *FileEntry) name() string {
	return filepath.Base(fe.Path)
}

// setExtents records a file's extent map, sorted descending by
// LogicalOffset (the last logical segment first), and resets the scan
// cursor to the smallest logical offset. Called at most once per entry.
func (fe *FileEntry) setExtents(extents []Extent) {
	sorted := append([]Extent(nil), extents...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return byLogicalOffsetDescending(sorted[i], sorted[j])
	})
	fe.Extents = sorted
	fe.cursor = len(sorted) - 1
}

// maxExtentBytes returns the largest BlockCount*BlockSize across extents,
// or 0 if none are known yet.
func (fe *FileEntry) maxExtentBytes() int64 {
	var max int64
	for _, e := range fe.Extents {
		if b := int64(e.BlockCount) * int64(fe.BlockSize); b > max {
			max = b
		}
	}
	return max
}

// isNextPhysicalExtent reports whether the extent this entry is currently
// pointed at (the smallest remaining logical offset) sits at physicalOffset.
func (fe *FileEntry) isNextPhysicalExtent(physicalOffset int) bool {
	if fe.cursor < 0 || fe.cursor >= len(fe.Extents) {
		return false
	}
	return fe.Extents[fe.cursor].PhysicalOffset == physicalOffset
}

// readContent enumerates a directory's immediate children, non-
// recursively. A directory that can't be read is treated as empty, not
// fatal. rootPath is used only to make the performance log line relative;
// pass "" for the scan root itself.
func (fe *FileEntry) readContent(rootPath string) {
	start := time.Now()
	entries, err := os.ReadDir(fe.Path)
	if err != nil {
		perfDirLog.WithField("directory", fe.Path).WithError(err).Trace("cannot read directory, treating as empty")
		return
	}

	children := make([]*FileEntry, 0, len(entries))
	for _, de := range entries {
		childPath := filepath.Join(fe.Path, de.Name())
		kind := RegularFile
		if de.IsDir() {
			kind = Directory
		}
		child := newFileEntry(childPath, kind)
		if info, err := de.Info(); err == nil {
			child.Size = info.Size()
		}
		children = append(children, child)
	}
	fe.Children = children

	rel := fe.Path
	if rootPath != "" {
		if r, err := filepath.Rel(rootPath, fe.Path); err == nil {
			rel = r
		}
	}
	perfDirLog.WithField("directory", rel).Debugf("%d files read in %s", len(children), time.Since(start))
}

// hashStep performs exactly one extent's worth of hashing: opens the file
// and the streaming hash on first call, reads the extent currently under
// the cursor, feeds it into the hash, advances the cursor, and finalizes
// on completion. I/O errors are returned for the caller to log and
// swallow; this is a scan, not a transaction.
func (fe *FileEntry) hashStep() error {
	if fe.hashState == nil {
		f, err := os.Open(fe.Path)
		if err != nil {
			return err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return err
		}
		fe.file = f
		fe.bytesRemaining = info.Size()
		fe.hashState = xxhash.NewWithSeed(hashSeed)
	}

	seg := fe.Extents[fe.cursor]
	toRead := fe.bytesRemaining
	if maxBytes := int64(seg.BlockCount) * int64(fe.BlockSize); maxBytes < toRead {
		toRead = maxBytes
	}
	offset := int64(seg.LogicalOffset) * int64(fe.BlockSize)

	start := time.Now()
	if err := readAndHash(fe.file, offset, toRead, fe.BlockSize, fe.hashState, perfFileLog); err != nil {
		fe.closeHashState()
		return fmt.Errorf("hashing %s at logical offset %d: %w", fe.Path, seg.LogicalOffset, err)
	}
	perfFileLog.WithFields(logrus.Fields{
		"file":   fe.Path,
		"blocks": seg.BlockCount,
	}).Debugf("hashed %d bytes in %s", toRead, time.Since(start))

	fe.bytesRemaining -= toRead
	fe.cursor--
	if fe.bytesRemaining == 0 {
		fe.FinalHash = fe.hashState.Sum64()
		fe.Hashed = true
		fe.closeHashState()
	}
	return nil
}

func (fe *FileEntry) closeHashState() {
	if fe.file != nil {
		fe.file.Close()
		fe.file = nil
	}
	fe.hashState = nil
}

func (k EntryKind) String() string {
	if k == Directory {
		return "directory"
	}
	return "file"
}
