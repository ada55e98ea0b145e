// config.go
//go:build medialibchecker || scanreport

package main

import (
	"github.com/go-ini/ini"
)

// Config holds every tunable both binaries share. Values come from an
// optional INI file; anything absent from the file, or the file itself
// being absent, falls back to the defaults below.
type Config struct {
	RootPath string

	FilefragCommand string
	FilefragArgs    []string

	LogDir   string
	LogFile  string
	LogLevel string

	SessionDBPath string
}

func defaultConfig() Config {
	return Config{
		FilefragCommand: "filefrag",
		FilefragArgs:    []string{"-e"},
		LogDir:          "./logs",
		LogFile:         "medialibchecker.log",
		LogLevel:        "info",
		SessionDBPath:   "./medialibchecker.db",
	}
}

// loadConfig reads iniPath if it exists and overlays its values onto the
// defaults. A missing file is not an error: ini.LooseLoad tolerates it
// and the caller runs entirely on defaults.
func loadConfig(iniPath string) (Config, error) {
	cfg := defaultConfig()

	file, err := ini.LooseLoad(iniPath)
	if err != nil {
		return cfg, err
	}

	sec := file.Section("medialibchecker")
	cfg.FilefragCommand = sec.Key("filefrag_command").MustString(cfg.FilefragCommand)
	cfg.LogDir = sec.Key("log_dir").MustString(cfg.LogDir)
	cfg.LogFile = sec.Key("log_file").MustString(cfg.LogFile)
	cfg.LogLevel = sec.Key("log_level").MustString(cfg.LogLevel)
	cfg.SessionDBPath = sec.Key("session_db_path").MustString(cfg.SessionDBPath)

	if args := sec.Key("filefrag_args").Strings(","); len(args) > 0 {
		cfg.FilefragArgs = args
	}

	return cfg, nil
}
