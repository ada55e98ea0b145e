// entry_test.go
//go:build medialibchecker

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
)

func TestSetExtentsSortsDescendingAndResetsCursor(t *testing.T) {
	fe := newFileEntry("/tmp/whatever", RegularFile)
	fe.setExtents([]Extent{
		{LogicalOffset: 0, PhysicalOffset: 100, BlockCount: 2},
		{LogicalOffset: 2, PhysicalOffset: 300, BlockCount: 1},
		{LogicalOffset: 1, PhysicalOffset: 200, BlockCount: 2},
	})

	want := []int{2, 1, 0}
	for i, e := range fe.Extents {
		if e.LogicalOffset != want[i] {
			t.Fatalf("extent %d: got logical offset %d, want %d", i, e.LogicalOffset, want[i])
		}
	}
	if fe.cursor != len(fe.Extents)-1 {
		t.Fatalf("cursor = %d, want %d", fe.cursor, len(fe.Extents)-1)
	}
	if !fe.isNextPhysicalExtent(100) {
		t.Fatalf("expected cursor to point at the smallest logical offset's extent (physical 100)")
	}
}

func TestMaxExtentBytes(t *testing.T) {
	fe := newFileEntry("/tmp/whatever", RegularFile)
	fe.BlockSize = 4096
	fe.setExtents([]Extent{
		{LogicalOffset: 0, PhysicalOffset: 0, BlockCount: 2},
		{LogicalOffset: 1, PhysicalOffset: 10, BlockCount: 5},
	})
	if got, want := fe.maxExtentBytes(), int64(5*4096); got != want {
		t.Fatalf("maxExtentBytes() = %d, want %d", got, want)
	}
}

func TestHashStepMatchesDirectXXHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "content.bin")
	data := make([]byte, 4096*3)
	for i := range data {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	want := xxhash.NewWithSeed(hashSeed)
	want.Write(data)

	fe := newFileEntry(path, RegularFile)
	fe.BlockSize = 4096
	fe.Size = int64(len(data))
	fe.setExtents([]Extent{
		{LogicalOffset: 0, PhysicalOffset: 0, BlockCount: 1},
		{LogicalOffset: 1, PhysicalOffset: 1, BlockCount: 1},
		{LogicalOffset: 2, PhysicalOffset: 2, BlockCount: 1},
	})

	for !fe.Hashed {
		if err := fe.hashStep(); err != nil {
			t.Fatalf("hashStep: %v", err)
		}
	}

	if fe.FinalHash != want.Sum64() {
		t.Fatalf("FinalHash = %#x, want %#x", fe.FinalHash, want.Sum64())
	}
}

func TestHashStepErrorOnMissingFile(t *testing.T) {
	fe := newFileEntry(filepath.Join(t.TempDir(), "does-not-exist"), RegularFile)
	fe.BlockSize = 4096
	fe.setExtents([]Extent{{LogicalOffset: 0, PhysicalOffset: 0, BlockCount: 1}})

	if err := fe.hashStep(); err == nil {
		t.Fatal("expected an error opening a nonexistent file")
	}
}
