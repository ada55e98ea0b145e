// driver.go
//go:build medialibchecker

package main

import "context"

// Driver wires a Config into a single Traversal run. It exists so
// main can stay a thin CLI/signal shim: everything reachable from a
// scan belongs here or below.
type Driver struct {
	cfg  Config
	scan *Traversal
}

func extentQueryConfigFrom(cfg Config) extentQueryConfig {
	return extentQueryConfig{
		filefragCommand: cfg.FilefragCommand,
		filefragArgs:    cfg.FilefragArgs,
		logDir:          cfg.LogDir,
	}
}

func newDriver(cfg Config) *Driver {
	qcfg := extentQueryConfigFrom(cfg)
	return &Driver{
		cfg:  cfg,
		scan: newTraversal(cfg.RootPath, qcfg),
	}
}

// Run performs one full scan of cfg.RootPath and returns its summary.
// Cancelling ctx stops the scan at the next safe checkpoint; the
// summary's Cancelled field reports whether that happened.
func (d *Driver) Run(ctx context.Context) ScanSummary {
	driverLog.WithField("root", d.cfg.RootPath).Info("driver starting scan")
	return d.scan.Run(ctx)
}
