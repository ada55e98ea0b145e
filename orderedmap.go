// orderedmap.go
//go:build medialibchecker

package main

import (
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"
)

// orderedDirMap is directoryExtentMap: a concurrency-safe ordered map from
// a directory's representative physical block offset to its FileEntry.
// The worker inserts, the producer does nearest-neighbor removals; both
// happen concurrently, so every operation takes the same mutex.
type orderedDirMap struct {
	mu   sync.Mutex
	tree *redblacktree.Tree
}

func newOrderedDirMap() *orderedDirMap {
	return &orderedDirMap{tree: redblacktree.NewWith(utils.IntComparator)}
}

func (m *orderedDirMap) Put(key int, value *FileEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.Put(key, value)
}

func (m *orderedDirMap) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tree.Empty()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// removeNearest removes and returns the entry whose key is physically
// nearest to currentBlock, preferring the ceiling key on a tie, and
// reports whether the map held anything to remove.
func (m *orderedDirMap) removeNearest(currentBlock int) (dir *FileEntry, key int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tree.Empty() {
		return nil, 0, false
	}
	ceil, hasCeil := m.tree.Ceiling(currentBlock)
	floor, hasFloor := m.tree.Floor(currentBlock)

	switch {
	case hasCeil && hasFloor:
		c := ceil.Key.(int)
		f := floor.Key.(int)
		if abs(currentBlock-f) < abs(currentBlock-c) {
			key = f
		} else {
			key = c // ties go to the ceiling
		}
	case hasCeil:
		key = ceil.Key.(int)
	case hasFloor:
		key = floor.Key.(int)
	default:
		return nil, 0, false
	}

	value, found := m.tree.Get(key)
	if !found {
		return nil, 0, false
	}
	m.tree.Remove(key)
	return value.(*FileEntry), key, true
}

// newFileExtentMap builds fileExtentMap. It is populated by the worker
// during Phase A and read/mutated only by the producer during Phase C, so
// spec.md §5 permits a plain (non-concurrent) ordered map here. Phase C
// walks it in ascending key order via Keys(), not by nearest-neighbor
// seek, so it needs no lookup helper of its own.
func newFileExtentMap() *redblacktree.Tree {
	return redblacktree.NewWith(utils.IntComparator)
}
