package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/Tawesh/idb-to-sql/internal/fs"
)

// ConfigFileName is the local config file read from the working directory
const ConfigFileName = ".ibdreplay.toml"

// LocalConfig represents a saved configuration. The password is never written.
type LocalConfig struct {
	Database DatabaseSection `toml:"database"`
	Replay   ReplaySection   `toml:"replay"`
	Logging  LoggingSection  `toml:"logging"`
}

// DatabaseSection is the [database] table
type DatabaseSection struct {
	Host     string `toml:"host,omitempty"`
	Port     int    `toml:"port,omitempty"`
	User     string `toml:"user,omitempty"`
	Database string `toml:"database,omitempty"`
	Charset  string `toml:"charset,omitempty"`
}

// ReplaySection is the [replay] table
type ReplaySection struct {
	Converter string `toml:"converter,omitempty"`
	Extension string `toml:"extension,omitempty"`
	Processes int    `toml:"processes,omitempty"`
	Threads   int    `toml:"threads,omitempty"`
	OutputDir string `toml:"output_dir,omitempty"`
	Compress  string `toml:"compress,omitempty"`
}

// LoggingSection is the [logging] table
type LoggingSection struct {
	Level  string `toml:"level,omitempty"`
	Format string `toml:"format,omitempty"`
}

// LoadLocalConfig loads .ibdreplay.toml from the current directory
func LoadLocalConfig() (*LocalConfig, error) {
	return LoadLocalConfigFromPath(ConfigFileName)
}

// LoadLocalConfigFromPath loads configuration from a specific path.
// A missing file is not an error; it returns nil.
func LoadLocalConfigFromPath(configPath string) (*LocalConfig, error) {
	data, err := fs.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &LocalConfig{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveLocalConfig writes cfg to .ibdreplay.toml in the current directory
func SaveLocalConfig(cfg *LocalConfig) error {
	return SaveLocalConfigToPath(cfg, ConfigFileName)
}

// SaveLocalConfigToPath writes cfg to configPath with owner-only permissions
func SaveLocalConfigToPath(cfg *LocalConfig, configPath string) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	header := []byte("# ibdreplay configuration\n# Command line flags override these values.\n\n")
	if err := fs.WriteFile(configPath, append(header, data...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyLocalConfig copies every non-empty value from local into cfg.
// Explicit command line flags are re-applied by the caller afterwards.
func ApplyLocalConfig(cfg *Config, local *LocalConfig) {
	if local == nil {
		return
	}

	db := local.Database
	if db.Host != "" {
		cfg.Host = db.Host
	}
	if db.Port != 0 {
		cfg.Port = db.Port
	}
	if db.User != "" {
		cfg.User = db.User
	}
	if db.Database != "" {
		cfg.Database = db.Database
	}
	if db.Charset != "" {
		cfg.Charset = db.Charset
	}

	r := local.Replay
	if r.Converter != "" {
		cfg.Converter = r.Converter
	}
	if r.Extension != "" {
		cfg.Extension = r.Extension
	}
	if r.Processes != 0 {
		cfg.Processes = r.Processes
	}
	if r.Threads != 0 {
		cfg.Threads = r.Threads
	}
	if r.OutputDir != "" {
		cfg.OutputDir = r.OutputDir
	}
	if r.Compress != "" {
		cfg.Compress = r.Compress
	}

	if local.Logging.Level != "" {
		cfg.LogLevel = local.Logging.Level
	}
	if local.Logging.Format != "" {
		cfg.LogFormat = local.Logging.Format
	}
}

// ConfigFromConfig creates a LocalConfig from a Config
func ConfigFromConfig(cfg *Config) *LocalConfig {
	return &LocalConfig{
		Database: DatabaseSection{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Database: cfg.Database,
			Charset:  cfg.Charset,
		},
		Replay: ReplaySection{
			Converter: cfg.Converter,
			Extension: cfg.Extension,
			Processes: cfg.Processes,
			Threads:   cfg.Threads,
			OutputDir: cfg.OutputDir,
			Compress:  cfg.Compress,
		},
		Logging: LoggingSection{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
		},
	}
}
