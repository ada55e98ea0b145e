// extentworker_test.go
//go:build medialibchecker

package main

import (
	"strings"
	"sync"
	"testing"
)

func newTestWorker() (*extentQueryWorker, map[string]*FileEntry) {
	dirMap := newOrderedDirMap()
	fileMap := newFileExtentMap()
	var lock sync.Mutex
	cond := sync.NewCond(&lock)
	w := newExtentQueryWorker(dirMap, fileMap, &lock, cond, extentQueryConfig{filefragCommand: "filefrag", filefragArgs: []string{"-e"}})
	return w, map[string]*FileEntry{}
}

func TestParseOutputSingleExtentFile(t *testing.T) {
	w, files := newTestWorker()
	fe := newFileEntry("/root/a.txt", RegularFile)
	files["a.txt"] = fe

	output := strings.Join([]string{
		"File size of a.txt is 4096 (1 block of 4096 bytes)",
		extentsHeaderLine,
		"   0:        0..       0:        100..        100:      1:             last,eof",
		"a.txt: 1 extent found",
		"",
	}, "\n")

	if err := w.parseOutput(strings.NewReader(output), files); err != nil {
		t.Fatalf("parseOutput: %v", err)
	}
	if fe.BlockSize != 4096 {
		t.Fatalf("BlockSize = %d, want 4096", fe.BlockSize)
	}
	if len(fe.Extents) != 1 || fe.Extents[0].PhysicalOffset != 100 {
		t.Fatalf("unexpected extents: %+v", fe.Extents)
	}
	if len(fe.pendingKeys) != 1 || fe.pendingKeys[0] != 100 {
		t.Fatalf("unexpected pendingKeys: %v", fe.pendingKeys)
	}
}

func TestParseOutputMultiExtentFileSortsDescending(t *testing.T) {
	w, files := newTestWorker()
	fe := newFileEntry("/root/b.bin", RegularFile)
	files["b.bin"] = fe

	output := strings.Join([]string{
		"File size of b.bin is 8192 (2 blocks of 4096 bytes)",
		extentsHeaderLine,
		"   0:        0..       0:        200..        200:      1:             ",
		"   1:        1..       1:        500..        500:      1:             last,eof",
		"b.bin: 2 extents found",
		"",
	}, "\n")

	if err := w.parseOutput(strings.NewReader(output), files); err != nil {
		t.Fatalf("parseOutput: %v", err)
	}
	if len(fe.Extents) != 2 {
		t.Fatalf("got %d extents, want 2", len(fe.Extents))
	}
	if fe.Extents[0].PhysicalOffset != 500 || fe.Extents[1].PhysicalOffset != 200 {
		t.Fatalf("extents not sorted descending by logical offset: %+v", fe.Extents)
	}
	for _, key := range []int{200, 500} {
		if _, found := w.fileMap.Get(key); !found {
			t.Fatalf("fileMap missing key %d", key)
		}
	}
}

func TestParseOutputDirectoryChild(t *testing.T) {
	w, files := newTestWorker()
	fe := newFileEntry("/root/subdir", Directory)
	files["subdir"] = fe

	output := strings.Join([]string{
		"File size of subdir is 4096 (1 block of 4096 bytes)",
		extentsHeaderLine,
		"   0:        0..       0:        700..        700:      1:             last,eof",
		"subdir: 1 extent found",
		"",
	}, "\n")

	if err := w.parseOutput(strings.NewReader(output), files); err != nil {
		t.Fatalf("parseOutput: %v", err)
	}
	if w.dirMap.Empty() {
		t.Fatal("expected the directory to be published into dirMap")
	}
}

func TestParseOutputRejectsMalformedHeader(t *testing.T) {
	w, files := newTestWorker()
	files["a.txt"] = newFileEntry("/root/a.txt", RegularFile)

	output := "File size of a.txt is weird\n"
	if err := w.parseOutput(strings.NewReader(output), files); err == nil {
		t.Fatal("expected an error for a malformed file-size header")
	}
}

func TestParseOutputRejectsUnexpectedExtentsHeader(t *testing.T) {
	w, files := newTestWorker()
	files["a.txt"] = newFileEntry("/root/a.txt", RegularFile)

	output := strings.Join([]string{
		"File size of a.txt is 4096 (1 block of 4096 bytes)",
		"not the header you expected",
		"",
	}, "\n")
	if err := w.parseOutput(strings.NewReader(output), files); err == nil {
		t.Fatal("expected an error for an unexpected extents header")
	}
}
