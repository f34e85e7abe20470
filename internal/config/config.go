package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"tradedash/internal/logger"
)

type Config struct {
	Server    ServerConfig
	Feed      FeedConfig
	Dashboard DashboardConfig
	Runtime   RuntimeConfig
}

type ServerConfig struct {
	BaseURL        string
	APIPath        string
	WSURL          string
	RequestTimeout time.Duration
}

type FeedConfig struct {
	DefaultSymbol string
	Reconnect     bool
	ReconnectMin  time.Duration
	ReconnectMax  time.Duration
	EventBuffer   int
}

type DashboardConfig struct {
	Address         string
	RefreshInterval time.Duration
}

type RuntimeConfig struct {
	Log LogConfig
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

var envPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// Load reads configs/config.yaml (if present), TRADEDASH_* environment overrides and
// a .env file from the working directory.
func Load() (*Config, error) {
	return LoadFrom("configs")
}

func LoadFrom(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Не удалось прочитать .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetEnvPrefix("tradedash")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Не удалось прочитать конфигурацию: %w", err)
		}
	}

	cfg := &Config{}

	cfg.Server = ServerConfig{
		BaseURL:        strings.TrimRight(envSub(v, "server.base_url"), "/"),
		APIPath:        normalizePath(v.GetString("server.api_path")),
		WSURL:          envSub(v, "server.ws_url"),
		RequestTimeout: v.GetDuration("server.request_timeout"),
	}

	cfg.Feed = FeedConfig{
		DefaultSymbol: strings.ToUpper(v.GetString("feed.default_symbol")),
		Reconnect:     v.GetBool("feed.reconnect"),
		ReconnectMin:  v.GetDuration("feed.reconnect_min"),
		ReconnectMax:  v.GetDuration("feed.reconnect_max"),
		EventBuffer:   v.GetInt("feed.event_buffer"),
	}

	cfg.Dashboard = DashboardConfig{
		Address:         v.GetString("dashboard.address"),
		RefreshInterval: v.GetDuration("dashboard.refresh_interval"),
	}

	cfg.Runtime = RuntimeConfig{
		Log: LogConfig{
			Level:      v.GetString("runtime.log.level"),
			Format:     v.GetString("runtime.log.format"),
			File:       v.GetString("runtime.log.file"),
			MaxSize:    v.GetInt("runtime.log.max_size"),
			MaxBackups: v.GetInt("runtime.log.max_backups"),
			MaxAge:     v.GetInt("runtime.log.max_age"),
			Compress:   v.GetBool("runtime.log.compress"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.base_url", "http://localhost:3001")
	v.SetDefault("server.api_path", "/api")
	v.SetDefault("server.ws_url", "ws://localhost:3001/ws")
	v.SetDefault("server.request_timeout", 5*time.Second)

	v.SetDefault("feed.default_symbol", "BTCUSDT")
	v.SetDefault("feed.reconnect", true)
	v.SetDefault("feed.reconnect_min", 1*time.Second)
	v.SetDefault("feed.reconnect_max", 30*time.Second)
	v.SetDefault("feed.event_buffer", 100)

	v.SetDefault("dashboard.address", "127.0.0.1:8080")
	v.SetDefault("dashboard.refresh_interval", 2*time.Second)

	v.SetDefault("runtime.log.level", "info")
	v.SetDefault("runtime.log.format", "text")
	v.SetDefault("runtime.log.file", "stdout")
	v.SetDefault("runtime.log.max_size", 50)
	v.SetDefault("runtime.log.max_backups", 3)
	v.SetDefault("runtime.log.max_age", 14)
}

func (c *Config) validate() error {
	if c.Server.BaseURL == "" {
		return errors.New("Не задан server.base_url")
	}
	if c.Server.WSURL == "" {
		return errors.New("Не задан server.ws_url")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("Некорректный server.request_timeout: %s", c.Server.RequestTimeout)
	}
	if c.Feed.DefaultSymbol == "" {
		return errors.New("Не задан feed.default_symbol")
	}
	if c.Feed.ReconnectMin <= 0 || c.Feed.ReconnectMax < c.Feed.ReconnectMin {
		return fmt.Errorf("Некорректные интервалы переподключения: min=%s max=%s", c.Feed.ReconnectMin, c.Feed.ReconnectMax)
	}
	return nil
}

func normalizePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func envSub(v *viper.Viper, key string) string {
	val := v.GetString(key)
	if val == "" {
		return ""
	}

	return envPattern.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}

func (l LogConfig) LoggerConfig() logger.Config {
	return logger.Config{
		Level:      l.Level,
		Format:     l.Format,
		Output:     l.File,
		MaxSize:    l.MaxSize,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAge,
		Compress:   l.Compress,
	}
}
