package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Session   SessionConfig   `mapstructure:"session"`
	APIKeys   APIKeysConfig   `mapstructure:"api_keys"`
	Giphy     GiphyConfig     `mapstructure:"giphy"`
	Search    SearchConfig    `mapstructure:"search"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type AppConfig struct {
	// URL is the public base URL of this instance. Its hostname doubles as
	// the Matrix server_name.
	URL string `mapstructure:"url"`
}

// ServerName returns the hostname component of the public URL. This is the
// identity other Matrix servers see and the key under which signatures are
// published.
func (a AppConfig) ServerName() (string, error) {
	u, err := url.Parse(a.URL)
	if err != nil {
		return "", fmt.Errorf("invalid app url %q: %w", a.URL, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("app url %q has no hostname", a.URL)
	}
	return u.Hostname(), nil
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	// PublicURL is the base under which stored objects are reachable,
	// e.g. https://cdn.gifable.example/media
	PublicURL  string `mapstructure:"public_url"`
	PathPrefix string `mapstructure:"path_prefix"`
}

type SessionConfig struct {
	Secret     string        `mapstructure:"secret"`
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
}

type APIKeysConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type GiphyConfig struct {
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CacheMaxEntries int           `mapstructure:"cache_max_entries"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

type SearchConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

type RateLimitConfig struct {
	SearchPerMinute int `mapstructure:"search_per_minute"`
	MediaPerMinute  int `mapstructure:"media_per_minute"`
}

type AnalyticsConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("session.cookie_name", "gifable_session")
	viper.SetDefault("session.ttl", "720h")
	viper.SetDefault("api_keys.enabled", true)
	viper.SetDefault("search.default_limit", 20)
	viper.SetDefault("search.max_limit", 50)
	viper.SetDefault("giphy.cache_ttl", "15m")
	viper.SetDefault("giphy.cache_max_entries", 100)
	viper.SetDefault("giphy.request_timeout", "10s")
	viper.SetDefault("analytics.retention_days", 90)
	viper.SetDefault("rate_limit.search_per_minute", 120)
	viper.SetDefault("rate_limit.media_per_minute", 300)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
