// main.go
//go:build medialibchecker

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	os.Exit(run())
}

// recordSession persists one completed scan's summary.
func recordSession(db *gorm.DB, startedAt time.Time, summary ScanSummary) error {
	row := ScanSession{
		RootPath:       summary.RootPath,
		StartedAt:      startedAt,
		FinishedAt:     startedAt.Add(summary.Duration),
		DirectoryCount: summary.DirectoryCount,
		FileCount:      summary.FileCount,
		TotalBytes:     summary.TotalBytes,
		FilesHashed:    summary.FilesHashed,
		FilesDropped:   summary.FilesDropped,
		Cancelled:      summary.Cancelled,
	}
	if err := db.Create(&row).Error; err != nil {
		sessionLog.WithError(err).Error("failed to record scan session")
		return err
	}
	sessionLog.WithField("id", row.ID).Debug("scan session recorded")
	return nil
}

// run contains everything main would otherwise do directly, so that
// os.Exit (which skips deferred calls) only ever happens at the very top.
func run() int {
	var iniPath string
	flag.StringVar(&iniPath, "config", "medialibchecker.ini", "path to an optional INI config file")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: medialibchecker [-config path.ini] <root-directory>")
		return 2
	}
	rootPath := flag.Arg(0)

	cfg, err := loadConfig(iniPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		return 2
	}
	cfg.RootPath = rootPath

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logFile, err := setupLogging(cfg.LogDir, cfg.LogFile, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setting up logging: %v\n", err)
		return 2
	}
	defer logFile.Close()

	db, err := openSessionStore(cfg.SessionDBPath)
	if err != nil {
		driverLog.WithError(err).Error("failed to open session store")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		driverLog.Warn("shutdown signal received, cancelling scan")
		cancel()
	}()
	defer signal.Stop(sigCh)

	startedAt := time.Now()
	summary := newDriver(cfg).Run(ctx)

	if err := recordSession(db, startedAt, summary); err != nil {
		// Logged already by recordSession; this is not itself fatal.
	}

	if summary.Cancelled {
		return 130
	}
	if summary.FilesDropped > 0 {
		return 1
	}
	return 0
}
