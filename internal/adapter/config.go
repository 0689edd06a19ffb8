package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mmcdole/scenedl/internal/catalog"
	"github.com/mmcdole/scenedl/internal/domain"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Download DownloadConfig `mapstructure:"download"`
	Scenes   []domain.Scene `mapstructure:"scenes"` // Replaces the built-in catalog when set
	Logging  LoggingConfig  `mapstructure:"logging"`
	State    StateConfig    `mapstructure:"state"`
}

// DownloadConfig holds fetch and extraction settings
type DownloadConfig struct {
	Dir         string        `mapstructure:"dir"`          // Download + extraction directory
	ChunkSize   int           `mapstructure:"chunk_size"`   // Bytes per read
	Timeout     time.Duration `mapstructure:"timeout"`      // 0 disables the timeout
	Resume      bool          `mapstructure:"resume"`       // Continue partial archives
	KeepArchive bool          `mapstructure:"keep_archive"` // Keep archive after extraction
	UserAgent   string        `mapstructure:"user_agent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// StateConfig holds the install history location
type StateConfig struct {
	File string `mapstructure:"file"` // Empty keeps history in memory only
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Download: DownloadConfig{
			Dir:       ".",
			ChunkSize: 1024,
			UserAgent: "scenedl",
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "scenedl.log"),
			Level: "INFO",
		},
		State: StateConfig{
			File: filepath.Join(defaultDataPath(), "history.db"),
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "scenedl")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "scenedl")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "scenedl")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "scenedl")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New(), defaultConfigPath(), ".")
}

func loadConfig(v *viper.Viper, paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Defaults make every key visible to AutomaticEnv
	v.SetDefault("download.dir", cfg.Download.Dir)
	v.SetDefault("download.chunk_size", cfg.Download.ChunkSize)
	v.SetDefault("download.timeout", cfg.Download.Timeout)
	v.SetDefault("download.resume", cfg.Download.Resume)
	v.SetDefault("download.keep_archive", cfg.Download.KeepArchive)
	v.SetDefault("download.user_agent", cfg.Download.UserAgent)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("state.file", cfg.State.File)

	// Environment variable overrides, e.g. SCENEDL_DOWNLOAD_DIR
	v.SetEnvPrefix("SCENEDL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.Download.ChunkSize <= 0 {
		return nil, fmt.Errorf("download.chunk_size must be positive, got %d", cfg.Download.ChunkSize)
	}
	if cfg.Download.Timeout < 0 {
		return nil, fmt.Errorf("download.timeout must not be negative, got %s", cfg.Download.Timeout)
	}

	return cfg, nil
}

// Catalog builds the scene catalog, preferring configured scenes over the
// built-in list.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	if len(c.Scenes) == 0 {
		return catalog.Default(), nil
	}
	cat, err := catalog.New(c.Scenes)
	if err != nil {
		return nil, fmt.Errorf("invalid scenes in config: %w", err)
	}
	return cat, nil
}

// SaveConfig writes cfg as YAML to the default config location, returning
// the file path
func SaveConfig(cfg *Config) (string, error) {
	return saveConfig(viper.New(), cfg, defaultConfigPath())
}

func saveConfig(v *viper.Viper, cfg *Config, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	v.Set("download.dir", cfg.Download.Dir)
	v.Set("download.chunk_size", cfg.Download.ChunkSize)
	v.Set("download.timeout", cfg.Download.Timeout.String())
	v.Set("download.resume", cfg.Download.Resume)
	v.Set("download.keep_archive", cfg.Download.KeepArchive)
	v.Set("download.user_agent", cfg.Download.UserAgent)

	scenes := cfg.Scenes
	if len(scenes) == 0 {
		scenes = catalog.Default().List()
	}
	entries := make([]map[string]string, 0, len(scenes))
	for _, s := range scenes {
		entries = append(entries, map[string]string{"name": s.Name, "url": s.URL})
	}
	v.Set("scenes", entries)

	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("state.file", cfg.State.File)

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configFile, nil
}
