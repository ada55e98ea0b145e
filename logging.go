// logging.go
//go:build medialibchecker || scanreport

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Named loggers, one per concern, mirroring the original's SLF4J logger
// names. Every file that needs one refers to these package-level entries
// rather than calling logrus directly, so setupLogging can rewire all of
// them at once.
var (
	extentLog    = newNamedLogger("performance.ExtentMapScanner")
	perfDirLog   = newNamedLogger("performance.DirectoryInfo")
	perfFileLog  = newNamedLogger("performance.FileInfo")
	perfScanLog  = newNamedLogger("performance.DirectoryScanner")
	traversalLog = newNamedLogger("DirectoryScanner")
	driverLog    = newNamedLogger("Driver")
	sessionLog   = newNamedLogger("SessionStore")
)

func newNamedLogger(name string) *logrus.Entry {
	return logrus.StandardLogger().WithField("logger", name)
}

// sessionRollHook rolls the log file once, the first time any of these
// loggers fire in a process, then lets every subsequent line append.
// Grounded on the original's once-per-session rolling policy: a scan
// session's whole log lives in one file, but the file from the previous
// session is not clobbered mid-write.
type sessionRollHook struct {
	mu      sync.Mutex
	rolled  bool
	logPath string
}

func newSessionRollHook(logPath string) *sessionRollHook {
	return &sessionRollHook{logPath: logPath}
}

func (h *sessionRollHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *sessionRollHook) Fire(*logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rolled {
		return nil
	}
	h.rolled = true

	if _, err := os.Stat(h.logPath); err != nil {
		return nil // nothing to roll yet
	}
	rolledName := fmt.Sprintf("%s.%s", h.logPath, time.Now().Format("20060102-150405"))
	return os.Rename(h.logPath, rolledName)
}

// setupLogging points the shared logrus instance at logDir/filename,
// applies level, and installs the once-per-session roll hook. Returns the
// opened file so the caller can close it on shutdown.
func setupLogging(logDir, filename string, level logrus.Level) (io.Closer, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory %q: %w", logDir, err)
	}
	logPath := filepath.Join(logDir, filename)

	hook := newSessionRollHook(logPath)
	if err := hook.Fire(nil); err != nil {
		return nil, fmt.Errorf("rolling previous log %q: %w", logPath, err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", logPath, err)
	}

	logrus.SetOutput(io.MultiWriter(os.Stderr, f))
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return f, nil
}
