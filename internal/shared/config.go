package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Providers   ProvidersConfig   `toml:"providers"`
	Playback    PlaybackConfig    `toml:"playback"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains the YouTube Data API key pool and rotation settings.
type CredentialsConfig struct {
	APIKeys    []string `toml:"api_keys"`
	AutoRotate bool     `toml:"auto_rotate"`
}

// ProvidersConfig contains metadata provider endpoints and request policy.
type ProvidersConfig struct {
	YouTubeBaseURL   string `toml:"youtube_base_url"`
	ProxyURL         string `toml:"proxy_url"`
	PageSize         int    `toml:"page_size"`
	PageCap          int    `toml:"page_cap"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	CallsPerMinute   int    `toml:"calls_per_minute"`
	FailureThreshold int    `toml:"failure_threshold"`
	CooldownMinutes  int    `toml:"cooldown_minutes"`
}

// PlaybackConfig contains jukebox playback and credit settings.
type PlaybackConfig struct {
	Mode           string `toml:"mode"` // "freeplay" or "coin"
	CreditsPerCoin int    `toml:"credits_per_coin"`
	PlaylistID     string `toml:"playlist_id"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
