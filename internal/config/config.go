package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/justyntemme/wsl-t/internal/storage"
	"github.com/justyntemme/wsl-t/pkg/models"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	configFileName = "config.toml"
	configDirName  = "wsl-t"
	logFileName    = "wsl-t.log"
	dbFileName     = "wsl-t.db"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrConfigExists  = errors.New("config file already exists")
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Auth    AuthConfig    `toml:"auth"`
	Reader  ReaderConfig  `toml:"reader"`
	Storage StorageConfig `toml:"storage"`
	Log     LogConfig     `toml:"log"`

	// Path to config file (not persisted)
	path string
}

// ServerConfig describes the book API
type ServerConfig struct {
	URL       string  `toml:"url"`
	Lang      string  `toml:"lang"`
	Timeout   string  `toml:"timeout"`
	RateLimit float64 `toml:"rate_limit"`
}

// AuthConfig holds the session token
type AuthConfig struct {
	Token   string `toml:"token"`
	Account string `toml:"account"`
}

// ReaderConfig holds page sizes and the theme
type ReaderConfig struct {
	ChapterPageSize     int    `toml:"chapter_page_size"`
	BookPageSize        int    `toml:"book_page_size"`
	ChapterListPageSize int    `toml:"chapter_list_page_size"`
	Theme               string `toml:"theme"`
}

// StorageConfig selects where reading progress is kept
type StorageConfig struct {
	Backend     string `toml:"backend"`
	Path        string `toml:"path"`
	ProgressKey string `toml:"progress_key"`
}

// LogConfig controls logging
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns the configuration of the embedded example file
func DefaultConfig() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &cfg
}

// Load reads the config file at path, or at DefaultPath when path is empty.
// Values missing from the file keep their defaults; a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: server.url %q is not an absolute URL", ErrInvalidConfig, c.Server.URL)
	}
	if c.Server.Lang != "" && c.Server.Lang != models.LangTC {
		return fmt.Errorf("%w: server.lang must be empty or %q", ErrInvalidConfig, models.LangTC)
	}
	if c.Server.Timeout != "" {
		if d, err := time.ParseDuration(c.Server.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("%w: server.timeout %q", ErrInvalidConfig, c.Server.Timeout)
		}
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("%w: server.rate_limit must not be negative", ErrInvalidConfig)
	}
	switch c.Storage.Backend {
	case "", storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	default:
		return fmt.Errorf("%w: unknown storage.backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
		}
	}
	return nil
}

// Save persists the configuration to disk
func (c *Config) Save() error {
	if c.path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		c.path = p
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(c.path, buf.Bytes(), 0o600)
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	return c.path
}

// SetToken updates the token and saves
func (c *Config) SetToken(token string) error {
	c.Auth.Token = token
	return c.Save()
}

// ClearToken removes the token and saves
func (c *Config) ClearToken() error {
	c.Auth.Token = ""
	c.Auth.Account = ""
	return c.Save()
}

// IsAuthenticated returns true if a token is stored
func (c *Config) IsAuthenticated() bool {
	return c.Auth.Token != ""
}

// Timeout returns the request timeout, zero meaning the client default
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// LogLevel returns the configured level, info when unset
func (c *Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// StorageOptions resolves the storage backend and its default location
func (c *Config) StorageOptions() (storage.Options, error) {
	opts := storage.Options{Backend: c.Storage.Backend, Path: c.Storage.Path}
	if opts.Backend == "" {
		opts.Backend = storage.BackendFile
	}
	if opts.Path != "" || opts.Backend == storage.BackendMemory {
		return opts, nil
	}

	dir, err := configDir()
	if err != nil {
		return opts, err
	}
	switch opts.Backend {
	case storage.BackendSQLite:
		opts.Path = filepath.Join(dir, dbFileName)
	default:
		opts.Path = filepath.Join(dir, "progress")
	}
	return opts, nil
}

// LogFile returns the log file of the terminal UI
func (c *Config) LogFile() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, configDirName, logFileName), nil
}

// CreateConfigFile writes the embedded example config to path
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w at %s", ErrConfigExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(path, exampleConf, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultPath returns <user config dir>/wsl-t/config.toml
func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// configDir returns the directory holding config and local state
func configDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, configDirName), nil
}
