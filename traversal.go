// traversal.go
//go:build medialibchecker

package main

import (
	"context"
	"sync"
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// ScanSummary is the aggregate result of one full Traversal.Run.
type ScanSummary struct {
	RootPath       string
	DirectoryCount int
	FileCount      int
	TotalBytes     int64
	FilesHashed    int
	FilesDropped   int
	Duration       time.Duration
	Cancelled      bool
}

// Traversal drives the three scan phases over one root path: gather
// (walk the tree and extent-query every directory), reportStats (log
// what was found), and hashScan (stream every file's content through its
// extent map in physical-block order).
type Traversal struct {
	rootPath string
	root     *FileEntry

	worker  *extentQueryWorker
	dirMap  *orderedDirMap
	fileMap *redblacktree.Tree

	workerLock   sync.Mutex
	producerWait *sync.Cond

	dirCount  int
	fileCount int
	totalSize int64
}

func newTraversal(rootPath string, cfg extentQueryConfig) *Traversal {
	t := &Traversal{
		rootPath: rootPath,
		root:     newFileEntry(rootPath, Directory),
		dirMap:   newOrderedDirMap(),
		fileMap:  newFileExtentMap(),
	}
	t.producerWait = sync.NewCond(&t.workerLock)
	t.worker = newExtentQueryWorker(t.dirMap, t.fileMap, &t.workerLock, t.producerWait, cfg)
	return t
}

// Run executes all three phases in order and returns once hashing is
// complete or ctx is cancelled, whichever comes first.
func (t *Traversal) Run(ctx context.Context) ScanSummary {
	start := time.Now()
	traversalLog.WithField("root", t.rootPath).Info("scan starting")

	stopWatcher := t.watchCancellation(ctx)
	defer stopWatcher()

	go t.worker.run()
	defer t.worker.Interrupt()

	gatherStart := time.Now()
	t.gather(ctx)
	perfScanLog.WithField("directories", t.dirCount).Debugf("gather phase took %s", time.Since(gatherStart))
	t.reportStats()

	hashStart := time.Now()
	hashed, dropped := t.hashScan(ctx)
	perfScanLog.WithField("files", t.fileCount).Debugf("hash scan phase took %s", time.Since(hashStart))

	summary := ScanSummary{
		RootPath:       t.rootPath,
		DirectoryCount: t.dirCount,
		FileCount:      t.fileCount,
		TotalBytes:     t.totalSize,
		FilesHashed:    hashed,
		FilesDropped:   dropped,
		Duration:       time.Since(start),
		Cancelled:      ctx.Err() != nil,
	}
	traversalLog.WithFields(summaryFields(summary)).Info("scan complete")
	return summary
}

func summaryFields(s ScanSummary) map[string]interface{} {
	return map[string]interface{}{
		"directories": s.DirectoryCount,
		"files":       s.FileCount,
		"bytes":       s.TotalBytes,
		"hashed":      s.FilesHashed,
		"dropped":     s.FilesDropped,
		"duration":    s.Duration.String(),
		"cancelled":   s.Cancelled,
	}
}

// watchCancellation bridges ctx.Done() into the sync.Cond the producer and
// worker block on, since Cond.Wait cannot natively select on a channel.
// Returns a function the caller must invoke to stop the watcher goroutine
// once ctx can no longer be cancelled usefully (scan finished).
func (t *Traversal) watchCancellation(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			t.workerLock.Lock()
			t.producerWait.Broadcast()
			t.workerLock.Unlock()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// gather is Phase A. It walks the directory tree breadth-first, handing
// every directory to the extent-query worker, and chooses which pending
// subdirectory to descend into next by physical proximity (nearest to
// currentBlock) rather than by enumeration order, so the worker's queue
// stays roughly in seek order.
func (t *Traversal) gather(ctx context.Context) {
	queue := []*FileEntry{t.root}
	currentBlock := 0

	for {
		for len(queue) > 0 {
			dir := queue[0]
			queue = queue[1:]
			dir.readContent(t.rootPath)
			t.dirCount++
			for _, child := range dir.Children {
				if child.Kind == RegularFile {
					t.fileCount++
					t.totalSize += child.Size
				}
			}
			t.worker.enqueue(dir)
		}

		if ctx.Err() != nil {
			return
		}

		next, ok := t.waitForNextDir(ctx, currentBlock)
		if !ok {
			return
		}
		if len(next.Extents) > 0 {
			currentBlock = next.Extents[0].PhysicalOffset
		}
		queue = append(queue, next)
	}
}

// waitForNextDir blocks until either the directory-extent map yields a
// candidate nearest currentBlock, the worker has gone fully idle with
// nothing left pending (traversal is complete), or ctx is cancelled.
func (t *Traversal) waitForNextDir(ctx context.Context, currentBlock int) (*FileEntry, bool) {
	t.workerLock.Lock()
	defer t.workerLock.Unlock()

	for {
		if dir, _, ok := t.dirMap.removeNearest(currentBlock); ok {
			return dir, true
		}
		if t.worker.isIdle() {
			return nil, false
		}
		if ctx.Err() != nil {
			return nil, false
		}
		t.producerWait.Wait()
	}
}

func (t *Traversal) reportStats() {
	var maxExtent int64
	for _, v := range t.fileMap.Values() {
		if fe, ok := v.(*FileEntry); ok {
			if m := fe.maxExtentBytes(); m > maxExtent {
				maxExtent = m
			}
		}
	}
	traversalLog.WithFields(map[string]interface{}{
		"directories":    t.dirCount,
		"files":          t.fileCount,
		"bytes":          t.totalSize,
		"maxExtentBytes": maxExtent,
	}).Info("directory gather complete")
}

// hashScan is Phase C. By this point fileExtentMap is fully populated and
// exclusively owned by this goroutine, so it needs no lock. Each pass
// walks every remaining key in ascending physical order, exactly as the
// original's Iterator does, and removes an entry only when it is
// genuinely the next extent due for its file; anything else is left in
// place for a later pass. Passes repeat until the map is empty or ctx is
// cancelled.
func (t *Traversal) hashScan(ctx context.Context) (hashed, dropped int) {
	pass := 0
	for !t.fileMap.Empty() {
		if ctx.Err() != nil {
			traversalLog.Warn("hash scan cancelled")
			return hashed, dropped
		}
		pass++
		traversalLog.Infof("File map checksum scan #%d, %d entries remaining", pass, t.fileMap.Size())

		for _, k := range t.fileMap.Keys() {
			if ctx.Err() != nil {
				traversalLog.Warn("hash scan cancelled")
				return hashed, dropped
			}

			key := k.(int)
			value, found := t.fileMap.Get(key)
			if !found {
				continue // already removed earlier in this same pass
			}
			fe := value.(*FileEntry)
			if !fe.isNextPhysicalExtent(key) {
				continue // not due yet, leave it for a later pass
			}
			t.fileMap.Remove(key)

			if err := fe.hashStep(); err != nil {
				perfFileLog.WithField("file", fe.Path).WithError(err).Warn("hashing failed, dropping file from remaining passes")
				t.dropFile(fe)
				dropped++
				continue
			}
			if fe.Hashed {
				hashed++
			}
		}
	}
	return hashed, dropped
}

// dropFile removes every remaining extent key this file was published
// under from fileExtentMap. spec.md is explicit that an I/O error during
// hashing drops the whole file from further passes, not just the extent
// that failed.
func (t *Traversal) dropFile(fe *FileEntry) {
	for _, key := range fe.pendingKeys {
		t.fileMap.Remove(key)
	}
	fe.pendingKeys = nil
	fe.closeHashState()
}
