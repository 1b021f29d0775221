package config

import (
	"errors"
	iofs "io/fs"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/Tawesh/idb-to-sql/internal/compression"
	"github.com/Tawesh/idb-to-sql/internal/database"
	apperrors "github.com/Tawesh/idb-to-sql/internal/errors"
)

const (
	mysqlDefaultPort = 3306

	// DefaultConverter is the ibd-to-SQL binary looked up on PATH
	DefaultConverter = "ibd_to_sql"
	// DefaultExtension is the suffix of table-space files picked up from the input directory
	DefaultExtension = ".ibd"
	// DefaultThreads bounds the INSERT workers per file
	DefaultThreads = 5
)

// Config holds all configuration options
type Config struct {
	// Version information
	Version   string
	BuildTime string
	GitCommit string

	// Local config file path (--config flag)
	ConfigPath string

	// Database connection
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Charset  string

	// Replay options
	InputDir   string
	OutputDir  string // empty = sql_output_<timestamp> next to InputDir
	Converter  string
	Extension  string
	Processes  int // files converted and replayed at once
	Threads    int // INSERT workers per file
	NoProgress bool
	Compress   string // none, gzip or zstd for converted scripts

	// Output options
	NoColor   bool
	Debug     bool
	LogLevel  string
	LogFormat string

	// Config persistence
	NoLoadConfig bool
	SaveConfig   bool
}

// New creates a configuration from defaults and the environment
func New() *Config {
	return &Config{
		Host:     getEnvString("MYSQL_HOST", "localhost"),
		Port:     getEnvInt("MYSQL_PORT", mysqlDefaultPort),
		User:     getEnvString("MYSQL_USER", "root"),
		Password: getEnvString("MYSQL_PWD", ""),
		Database: getEnvString("MYSQL_DATABASE", ""),
		Charset:  "utf8mb4",

		Converter: getEnvString("IBD_CONVERTER", DefaultConverter),
		Extension: getEnvString("IBD_EXTENSION", DefaultExtension),
		Processes: getEnvInt("REPLAY_PROCESSES", DefaultProcesses()),
		Threads:   getEnvInt("REPLAY_THREADS", DefaultThreads),
		Compress:  getEnvString("REPLAY_COMPRESS", "none"),

		NoColor:   getEnvBool("NO_COLOR", false),
		Debug:     getEnvBool("DEBUG", false),
		LogLevel:  getEnvString("LOG_LEVEL", "info"),
		LogFormat: getEnvString("LOG_FORMAT", "text"),

		ConfigPath: ConfigFileName,
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Variables already set are left alone and
// missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, iofs.ErrNotExist) {
			return apperrors.InvalidConfig(p, err.Error()).WithCause(err)
		}
	}
	return nil
}

// DefaultProcesses returns the number of logical CPUs
func DefaultProcesses() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Validate checks the settings every command depends on
func (c *Config) Validate() error {
	if c.Host == "" {
		return apperrors.InvalidConfig("host", "must not be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return apperrors.InvalidConfig("port", "must be between 1 and 65535, got "+strconv.Itoa(c.Port))
	}
	if c.User == "" {
		return apperrors.InvalidConfig("user", "must not be empty")
	}
	if c.Database == "" {
		return apperrors.InvalidConfig("database", "a target database name is required (--database or MYSQL_DATABASE)")
	}
	if c.Processes < 1 {
		return apperrors.InvalidConfig("processes", "must be at least 1, got "+strconv.Itoa(c.Processes))
	}
	if c.Threads < 1 {
		return apperrors.InvalidConfig("threads", "must be at least 1, got "+strconv.Itoa(c.Threads))
	}
	if c.Converter == "" {
		return apperrors.InvalidConfig("converter", "must not be empty")
	}
	if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
		return apperrors.InvalidConfig("extension", "must start with a dot, e.g. .ibd, got "+strconv.Quote(c.Extension))
	}
	if _, err := compression.ParseAlgorithm(c.Compress); err != nil {
		return apperrors.InvalidConfig("compress", err.Error())
	}
	return nil
}

// Compression returns the parsed Compress setting. Call Validate first.
func (c *Config) Compression() compression.Algorithm {
	algo, _ := compression.ParseAlgorithm(c.Compress)
	return algo
}

// ConnectionConfig returns the immutable connection settings for a run
func (c *Config) ConnectionConfig() database.ConnectionConfig {
	return database.ConnectionConfig{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Database: c.Database,
		Charset:  c.Charset,
	}
}

// EffectiveLogLevel returns "debug" when --debug is set, else LogLevel
func (c *Config) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

// Helper functions
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
