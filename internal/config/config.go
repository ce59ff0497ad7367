// Package config loads pairlink settings.
//
// Settings come from three layers, later ones winning:
//   - built-in defaults
//   - a YAML file named by --config or the PAIRLINK_CONFIG environment variable
//   - command-line flags that were set explicitly
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rudransh-shrivastava/pairlink/internal/rtc"
	"github.com/rudransh-shrivastava/pairlink/internal/transfer"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config file path.
const EnvConfig = "PAIRLINK_CONFIG"

type Config struct {
	// ICEServers are STUN/TURN URLs used during gathering.
	ICEServers []string `yaml:"ice_servers"`

	// IncludeLoopback gathers loopback candidates, for two peers on one host.
	IncludeLoopback bool `yaml:"include_loopback"`

	// BufferedAmountLowThreshold is the send buffer size in bytes above which
	// file sending pauses.
	BufferedAmountLowThreshold uint64 `yaml:"buffered_amount_low_threshold"`

	// GatherTimeout bounds candidate gathering for one description.
	GatherTimeout time.Duration `yaml:"gather_timeout"`

	// DownloadDir receives files sent by the peer.
	DownloadDir string `yaml:"download_dir"`

	// HistoryPath is the SQLite message archive. Empty disables it.
	HistoryPath string `yaml:"history_path"`

	// Compact zstd-compresses the descriptions to paste.
	Compact bool `yaml:"compact"`

	LogLevel string `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		ICEServers:                 rtc.DefaultConfig().ICEServers,
		BufferedAmountLowThreshold: transfer.DefaultThreshold,
		GatherTimeout:              15 * time.Second,
		DownloadDir:                defaultDownloadDir(),
		HistoryPath:                defaultHistoryPath(),
		LogLevel:                   "info",
	}
}

// Load reads the YAML file at path over the defaults. Unknown keys are an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BufferedAmountLowThreshold == 0 {
		return errors.New("buffered_amount_low_threshold must be positive")
	}
	if c.GatherTimeout <= 0 {
		return errors.New("gather_timeout must be positive")
	}
	if c.DownloadDir == "" {
		return errors.New("download_dir is required")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "downloads"
	}
	return filepath.Join(home, "Downloads", "pairlink")
}

func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pairlink", "history.db")
}
