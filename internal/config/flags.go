package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

// Flags holds the command-line layer until Resolve merges it over the file.
type Flags struct {
	fs *pflag.FlagSet

	path            string
	iceServers      []string
	includeLoopback bool
	threshold       uint64
	gatherTimeout   time.Duration
	downloadDir     string
	historyPath     string
	compact         bool
	logLevel        string
}

// BindFlags registers the config flags on fs.
func BindFlags(fs *pflag.FlagSet) *Flags {
	def := Default()
	f := &Flags{fs: fs}

	fs.StringVar(&f.path, "config", "", "path to a YAML config file (or set "+EnvConfig+")")
	fs.StringSliceVar(&f.iceServers, "ice-server", def.ICEServers, "STUN/TURN server URL, repeatable")
	fs.BoolVar(&f.includeLoopback, "loopback", def.IncludeLoopback, "gather loopback candidates")
	fs.Uint64Var(&f.threshold, "threshold", def.BufferedAmountLowThreshold, "send buffer size in bytes that pauses file sending")
	fs.DurationVar(&f.gatherTimeout, "gather-timeout", def.GatherTimeout, "how long to wait for ICE gathering")
	fs.StringVar(&f.downloadDir, "download-dir", def.DownloadDir, "where received files are saved")
	fs.StringVar(&f.historyPath, "history", def.HistoryPath, "message archive path, empty to disable")
	fs.BoolVar(&f.compact, "compact", def.Compact, "compress the session descriptions to paste")
	fs.StringVar(&f.logLevel, "log-level", def.LogLevel, "log level (debug, info, warn, error)")
	return f
}

// Path is the config file in effect, if any.
func (f *Flags) Path() string {
	if f.path != "" {
		return f.path
	}
	return os.Getenv(EnvConfig)
}

// Resolve loads the config file and applies every flag the user set.
func (f *Flags) Resolve() (*Config, error) {
	cfg := Default()
	if path := f.Path(); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := f.fs.Changed
	if changed("ice-server") {
		cfg.ICEServers = f.iceServers
	}
	if changed("loopback") {
		cfg.IncludeLoopback = f.includeLoopback
	}
	if changed("threshold") {
		cfg.BufferedAmountLowThreshold = f.threshold
	}
	if changed("gather-timeout") {
		cfg.GatherTimeout = f.gatherTimeout
	}
	if changed("download-dir") {
		cfg.DownloadDir = f.downloadDir
	}
	if changed("history") {
		cfg.HistoryPath = f.historyPath
	}
	if changed("compact") {
		cfg.Compact = f.compact
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}
