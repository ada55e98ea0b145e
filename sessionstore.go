// sessionstore.go
//go:build medialibchecker || scanreport

package main

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ScanSession is one row per completed (or cancelled) scan run. It
// deliberately carries only run-level bookkeeping: no per-file hash ever
// lands here, keeping the store well clear of the scanner's own "do not
// persist content hashes" boundary.
type ScanSession struct {
	ID             uint `gorm:"primaryKey"`
	RootPath       string
	StartedAt      time.Time
	FinishedAt     time.Time
	DirectoryCount int
	FileCount      int
	TotalBytes     int64
	FilesHashed    int
	FilesDropped   int
	Cancelled      bool
}

func openSessionStore(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ScanSession{}); err != nil {
		return nil, err
	}
	return db, nil
}

// recentSessions returns the most recent scan sessions, newest first, for
// scanreport to render.
func recentSessions(db *gorm.DB, limit int) ([]ScanSession, error) {
	var rows []ScanSession
	err := db.Order("started_at desc").Limit(limit).Find(&rows).Error
	return rows, err
}
