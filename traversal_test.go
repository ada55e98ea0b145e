// traversal_test.go
//go:build medialibchecker

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newTestTraversal(t *testing.T, rootPath string) *Traversal {
	t.Helper()
	return newTraversal(rootPath, extentQueryConfig{
		filefragCommand: "filefrag",
		filefragArgs:    []string{"-e"},
		logDir:          t.TempDir(),
	})
}

func TestHashScanHashesEveryPublishedExtent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	data := make([]byte, 4096*2)
	for i := range data {
		data[i] = byte(i)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	tr := newTestTraversal(t, dir)
	fe := newFileEntry(path, RegularFile)
	fe.BlockSize = 4096
	fe.setExtents([]Extent{
		{LogicalOffset: 0, PhysicalOffset: 50, BlockCount: 1},
		{LogicalOffset: 1, PhysicalOffset: 10, BlockCount: 1},
	})
	tr.fileMap.Put(50, fe)
	tr.fileMap.Put(10, fe)
	fe.pendingKeys = []int{50, 10}

	hashed, dropped := tr.hashScan(context.Background())
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
	if hashed != 1 {
		t.Fatalf("hashed = %d, want 1", hashed)
	}
	if !fe.Hashed {
		t.Fatal("expected the file to be fully hashed")
	}
	if !tr.fileMap.Empty() {
		t.Fatal("expected fileExtentMap to be drained")
	}
}

func TestHashScanDropsWholeFileOnIOError(t *testing.T) {
	tr := newTestTraversal(t, t.TempDir())
	fe := newFileEntry(filepath.Join(t.TempDir(), "missing"), RegularFile)
	fe.BlockSize = 4096
	fe.setExtents([]Extent{
		{LogicalOffset: 0, PhysicalOffset: 5, BlockCount: 1},
		{LogicalOffset: 1, PhysicalOffset: 15, BlockCount: 1},
	})
	tr.fileMap.Put(5, fe)
	tr.fileMap.Put(15, fe)
	fe.pendingKeys = []int{5, 15}

	hashed, dropped := tr.hashScan(context.Background())
	if hashed != 0 || dropped != 1 {
		t.Fatalf("hashed=%d dropped=%d, want 0,1", hashed, dropped)
	}
	if !tr.fileMap.Empty() {
		t.Fatal("expected both extents to be dropped from fileExtentMap")
	}
}

func TestHashScanCancellation(t *testing.T) {
	tr := newTestTraversal(t, t.TempDir())
	fe := newFileEntry(filepath.Join(t.TempDir(), "missing"), RegularFile)
	fe.BlockSize = 4096
	fe.setExtents([]Extent{{LogicalOffset: 0, PhysicalOffset: 1, BlockCount: 1}})
	tr.fileMap.Put(1, fe)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hashed, dropped := tr.hashScan(ctx)
	if hashed != 0 || dropped != 0 {
		t.Fatalf("expected a cancelled scan to do no work, got hashed=%d dropped=%d", hashed, dropped)
	}
}

func TestGatherOnEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	tr := newTestTraversal(t, dir)
	go tr.worker.run()
	defer tr.worker.Interrupt()

	tr.gather(context.Background())

	if tr.dirCount != 1 {
		t.Fatalf("dirCount = %d, want 1", tr.dirCount)
	}
	if tr.fileCount != 0 {
		t.Fatalf("fileCount = %d, want 0", tr.fileCount)
	}
}
