// extentworker.go
//go:build medialibchecker

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// extentsHeaderLine is the literal column header filefrag -e prints
// before each file's extent rows.
const extentsHeaderLine = " ext:     logical_offset:        physical_offset: length:   expected: flags:"

var extentFieldSplitter = regexp.MustCompile(`[ :.]+`)

type extentQueryConfig struct {
	filefragCommand string
	filefragArgs    []string
	logDir          string
}

// extentQueryWorker is the single consumer thread (goroutine) that
// invokes the external extent-query utility for each directory it is
// handed and deposits the result into the two shared maps.
type extentQueryWorker struct {
	pendingMu   sync.Mutex
	pendingCond *sync.Cond
	pending     []*FileEntry
	interrupted atomic.Bool
	outstanding atomic.Int64

	dirMap  *orderedDirMap
	fileMap *redblacktree.Tree

	// workerLock/producerWait are the Traversal's handshake primitives:
	// the worker signals producerWait (under workerLock) right before it
	// blocks for more work, so the producer can learn it has gone idle.
	workerLock   *sync.Mutex
	producerWait *sync.Cond

	cfg extentQueryConfig
}

func newExtentQueryWorker(dirMap *orderedDirMap, fileMap *redblacktree.Tree, workerLock *sync.Mutex, producerWait *sync.Cond, cfg extentQueryConfig) *extentQueryWorker {
	w := &extentQueryWorker{
		dirMap:       dirMap,
		fileMap:      fileMap,
		workerLock:   workerLock,
		producerWait: producerWait,
		cfg:          cfg,
	}
	w.pendingCond = sync.NewCond(&w.pendingMu)
	return w
}

// enqueue hands a directory to the worker. Non-blocking: the pending
// queue is unbounded.
func (w *extentQueryWorker) enqueue(dir *FileEntry) {
	w.outstanding.Add(1)
	w.pendingMu.Lock()
	w.pending = append(w.pending, dir)
	w.pendingCond.Signal()
	w.pendingMu.Unlock()
}

func (w *extentQueryWorker) isIdle() bool {
	return w.outstanding.Load() == 0
}

// Interrupt is the worker's only way out of its main loop.
func (w *extentQueryWorker) Interrupt() {
	w.interrupted.Store(true)
	w.pendingMu.Lock()
	w.pendingCond.Broadcast()
	w.pendingMu.Unlock()
}

// run is the worker's main loop: take, process, repeat until interrupted.
func (w *extentQueryWorker) run() {
	extentLog.Debug("extent map scanner thread started")
	for {
		dir, ok := w.take()
		if !ok {
			extentLog.Trace("interrupted, exiting")
			return
		}
		w.process(dir)
		w.outstanding.Add(-1)
	}
}

// take pops the next directory, non-blockingly first; if none is ready it
// signals producerWait (so a sleeping producer learns the worker caught
// up) and then blocks until a directory arrives or it is interrupted.
func (w *extentQueryWorker) take() (*FileEntry, bool) {
	w.pendingMu.Lock()
	if len(w.pending) > 0 {
		d := w.pending[0]
		w.pending = w.pending[1:]
		w.pendingMu.Unlock()
		return d, true
	}
	w.pendingMu.Unlock()

	extentLog.Trace("no more directories, notifying directory scan thread")
	w.workerLock.Lock()
	w.producerWait.Signal()
	w.workerLock.Unlock()

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	for len(w.pending) == 0 && !w.interrupted.Load() {
		w.pendingCond.Wait()
	}
	if len(w.pending) == 0 {
		return nil, false
	}
	d := w.pending[0]
	w.pending = w.pending[1:]
	return d, true
}

// process runs filefrag -e over a directory's immediate children and
// parses its output. Any deviation aborts this directory only.
func (w *extentQueryWorker) process(dir *FileEntry) {
	if len(dir.Children) == 0 {
		extentLog.WithField("directory", dir.Path).Trace("empty directory")
		return
	}
	extentLog.WithField("directory", dir.Path).Trace("scanning extent map")

	filesMap := make(map[string]*FileEntry, len(dir.Children))
	args := append([]string(nil), w.cfg.filefragArgs...)
	for _, child := range dir.Children {
		name := child.name()
		filesMap[name] = child
		args = append(args, name)
	}

	cmd := exec.Command(w.cfg.filefragCommand, args...)
	cmd.Dir = dir.Path

	if errFile, err := os.OpenFile(filepath.Join(w.cfg.logDir, "filefrag.error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err != nil {
		extentLog.WithError(err).Warn("cannot open filefrag error log")
	} else {
		cmd.Stderr = errFile
		defer errFile.Close()
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		extentLog.WithError(err).Errorf("cannot attach stdout for directory %q", dir.Path)
		return
	}
	if err := cmd.Start(); err != nil {
		extentLog.WithError(err).Errorf("failed to launch %s for directory %q", w.cfg.filefragCommand, dir.Path)
		return
	}

	if err := w.parseOutput(stdout, filesMap); err != nil {
		extentLog.WithError(err).Errorf("invalid extent-query output for directory %q", dir.Path)
	}
	// We do not wait for the process to exit; the OS reaps it.
}

type extentParserState int

const (
	stateLookingForFileHeader extentParserState = iota
	stateBypassExtentsHeader
	stateReadingExtents
)

// parseOutput implements the three-state grammar spec.md §4.4 describes.
func (w *extentQueryWorker) parseOutput(r io.Reader, filesMap map[string]*FileEntry) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	state := stateLookingForFileHeader
	var fileName string
	var blockSize int
	var segments []Extent

	for scanner.Scan() {
		line := scanner.Text()
		switch state {
		case stateLookingForFileHeader:
			if !strings.HasPrefix(line, "File size of ") {
				continue
			}
			rest := strings.TrimPrefix(line, "File size of ")
			isIdx := strings.LastIndex(rest, " is ")
			if isIdx < 0 || !strings.HasSuffix(rest, " bytes)") {
				return fmt.Errorf("unexpected file-size header: %q", line)
			}
			fileName = rest[:isIdx]
			ofIdx := strings.LastIndex(rest, " of ")
			spaceIdx := strings.LastIndex(rest, " ")
			if ofIdx < 0 || spaceIdx <= ofIdx+len(" of ")-1 {
				return fmt.Errorf("unexpected file-size header: %q", line)
			}
			bs, err := strconv.Atoi(rest[ofIdx+len(" of ") : spaceIdx])
			if err != nil {
				return fmt.Errorf("bad block size in header %q: %w", line, err)
			}
			blockSize = bs
			state = stateBypassExtentsHeader

		case stateBypassExtentsHeader:
			if line != extentsHeaderLine {
				return fmt.Errorf("unexpected extents header: %q", line)
			}
			segments = segments[:0]
			state = stateReadingExtents

		case stateReadingExtents:
			if strings.HasPrefix(line, fileName) {
				if !strings.HasSuffix(line, " found") {
					return fmt.Errorf("unexpected extents footer: %q", line)
				}
				child, ok := filesMap[fileName]
				if !ok {
					return fmt.Errorf("unexpected file name in output: %q", fileName)
				}
				child.BlockSize = blockSize
				child.setExtents(segments)
				w.publish(child)
				state = stateLookingForFileHeader
				continue
			}

			fields := extentFieldSplitter.Split(line, -1)
			if len(fields) < 6 {
				return fmt.Errorf("not enough fields in extent row: %q", line)
			}
			logical, err1 := strconv.Atoi(fields[2])
			physical, err2 := strconv.Atoi(fields[4])
			count, err3 := strconv.Atoi(fields[6])
			if err1 != nil || err2 != nil || err3 != nil {
				return fmt.Errorf("unexpected extent row format: %q", line)
			}
			segments = append(segments, Extent{LogicalOffset: logical, PhysicalOffset: physical, BlockCount: count})
		}
	}
	return scanner.Err()
}

// publish deposits a fully-parsed child into the map matching its kind.
// Directory keying and the insertion order are exactly the ones spec.md
// §4.4/§9 call out as preserved-but-possibly-surprising behavior.
func (w *extentQueryWorker) publish(child *FileEntry) {
	if child.Kind == Directory {
		key := child.Extents[len(child.Extents)-1].PhysicalOffset
		extentLog.WithFields(map[string]interface{}{
			"directory": child.name(),
			"from":      key,
			"to":        child.Extents[0].PhysicalOffset,
		}).Trace("adding directory to extent map")
		w.dirMap.Put(key, child)
		return
	}

	child.pendingKeys = child.pendingKeys[:0]
	for _, seg := range child.Extents {
		w.fileMap.Put(seg.PhysicalOffset, child)
		child.pendingKeys = append(child.pendingKeys, seg.PhysicalOffset)
	}
	extentLog.WithFields(map[string]interface{}{
		"file":    child.name(),
		"extents": len(child.Extents),
	}).Trace("adding file to extent map")
}
