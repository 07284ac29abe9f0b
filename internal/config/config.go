package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// History backends
	HistoryJSON   = "json"
	HistorySQLite = "sqlite"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultMaxFileSize   = 16 * 1024 * 1024  // 16MB per document
	DefaultBatchMaxSize  = 100 * 1024 * 1024 // 100MB per batch request
	DefaultHistoryLimit  = 5
	DefaultSelfRateLimit = 3 // self-evaluation requests per minute
	DefaultAdminPassword = "ADMIN123"
	DefaultOutputDirName = "processed_files"
	DefaultHistoryFile   = "history.json"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the score reader server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Storage configuration
	UploadDirectory string // evaluation forms are only read from inside this directory
	OutputDirectory string // generated xlsx reports
	HistoryBackend  string // "json" or "sqlite"
	HistoryPath     string
	HistoryLimit    int

	// Processing limits
	MaxFileSize   int64 // Maximum size of a single document in bytes
	BatchMaxSize  int64 // Maximum combined size of a batch request in bytes
	SelfRateLimit int   // Self-evaluation requests allowed per minute
	Workers       int

	AdminPassword string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:            ModeStdio,
		Host:            DefaultHost,
		Port:            DefaultPort,
		UploadDirectory: currentDir,
		OutputDirectory: filepath.Join(currentDir, DefaultOutputDirName),
		HistoryBackend:  HistoryJSON,
		HistoryPath:     filepath.Join(currentDir, DefaultHistoryFile),
		HistoryLimit:    DefaultHistoryLimit,
		MaxFileSize:     DefaultMaxFileSize,
		BatchMaxSize:    DefaultBatchMaxSize,
		SelfRateLimit:   DefaultSelfRateLimit,
		Workers:         runtime.NumCPU(),
		AdminPassword:   DefaultAdminPassword,
		Version:         "1.0.0",
		ServerName:      "mcp-score-reader",
		LogLevel:        DefaultLogLevel,
	}
}

// LoadFromFlags parses command line flags and returns a configuration.
// Precedence: flags, then MCP_SCORE_* environment, then .env, then defaults.
func LoadFromFlags() (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	for _, p := range []*string{&cfg.UploadDirectory, &cfg.OutputDirectory, &cfg.HistoryPath} {
		if *p == "" {
			continue
		}
		if abs, err := filepath.Abs(*p); err == nil {
			*p = abs
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("MCP_SCORE")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.UploadDirectory)
	viper.SetDefault("output", cfg.OutputDirectory)
	viper.SetDefault("history", cfg.HistoryBackend)
	viper.SetDefault("historypath", cfg.HistoryPath)
	viper.SetDefault("historylimit", cfg.HistoryLimit)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("batchmaxsize", cfg.BatchMaxSize)
	viper.SetDefault("ratelimit", cfg.SelfRateLimit)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("loglevel", cfg.LogLevel)

	// ADMIN_PASS is the historical variable name, MCP_SCORE_ADMIN_PASSWORD wins.
	_ = viper.BindEnv("adminpassword", "MCP_SCORE_ADMIN_PASSWORD", "ADMIN_PASS")
	viper.SetDefault("adminpassword", cfg.AdminPassword)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.UploadDirectory, "Directory containing evaluation forms (.docx)")
	pflag.String("output", cfg.OutputDirectory, "Directory for generated xlsx reports")
	pflag.String("history", cfg.HistoryBackend, "History backend: 'json' or 'sqlite'")
	pflag.String("historypath", cfg.HistoryPath, "History file (json) or database (sqlite) path")
	pflag.Int("historylimit", cfg.HistoryLimit, "Number of reports kept in history")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum document size in bytes")
	pflag.Int64("batchmaxsize", cfg.BatchMaxSize, "Maximum combined size of a batch request in bytes")
	pflag.Int("ratelimit", cfg.SelfRateLimit, "Self-evaluation requests allowed per minute")
	pflag.Int("workers", cfg.Workers, "Documents parsed in parallel")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "output", "history", "historypath",
		"historylimit", "maxfilesize", "batchmaxsize", "ratelimit", "workers", "loglevel",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Score Reader - extracts evaluation scores from .docx forms into xlsx reports\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                   # stdio mode, current directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/srv/forms --history=sqlite # sqlite history\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081          # HTTP server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MCP_SCORE_MODE            Server mode\n")
		fmt.Fprintf(os.Stderr, "  MCP_SCORE_DIR             Upload directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_SCORE_OUTPUT          Report directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_SCORE_HISTORY         History backend\n")
		fmt.Fprintf(os.Stderr, "  MCP_SCORE_ADMIN_PASSWORD  Admin password (also ADMIN_PASS)\n")
		fmt.Fprintf(os.Stderr, "  MCP_SCORE_LOGLEVEL        Log level\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.UploadDirectory = viper.GetString("dir")
	cfg.OutputDirectory = viper.GetString("output")
	cfg.HistoryBackend = viper.GetString("history")
	cfg.HistoryPath = viper.GetString("historypath")
	cfg.HistoryLimit = viper.GetInt("historylimit")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.BatchMaxSize = viper.GetInt64("batchmaxsize")
	cfg.SelfRateLimit = viper.GetInt("ratelimit")
	cfg.Workers = viper.GetInt("workers")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.AdminPassword = viper.GetString("adminpassword")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.HistoryBackend != HistoryJSON && c.HistoryBackend != HistorySQLite {
		return fmt.Errorf("invalid history backend: %s (must be one of: json, sqlite)", c.HistoryBackend)
	}
	if c.HistoryPath == "" {
		return errors.New("history path cannot be empty")
	}
	if c.HistoryLimit <= 0 {
		return errors.New("history limit must be positive")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.BatchMaxSize <= 0 {
		return errors.New("maximum batch size must be positive")
	}
	if c.SelfRateLimit <= 0 {
		return errors.New("rate limit must be positive")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if c.AdminPassword == "" {
		return errors.New("admin password cannot be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.UploadDirectory == "" {
		return errors.New("upload directory cannot be empty")
	}
	if c.OutputDirectory == "" {
		return errors.New("output directory cannot be empty")
	}
	for _, dir := range []string{c.UploadDirectory, c.OutputDirectory, filepath.Dir(c.HistoryPath)} {
		if err := ensureDir(dir); err != nil {
			return err
		}
	}

	return nil
}

func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration.
// The admin password is never included.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, UploadDirectory: %s, OutputDirectory: %s, "+
		"HistoryBackend: %s, HistoryPath: %s, HistoryLimit: %d, MaxFileSize: %d, BatchMaxSize: %d, "+
		"SelfRateLimit: %d, Workers: %d, LogLevel: %s}",
		c.Mode, c.Host, c.Port, c.UploadDirectory, c.OutputDirectory,
		c.HistoryBackend, c.HistoryPath, c.HistoryLimit, c.MaxFileSize, c.BatchMaxSize,
		c.SelfRateLimit, c.Workers, c.LogLevel)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
