package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "resvalidator/pkg/errors"

	"github.com/spf13/viper"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ScanConfig struct {
	MaxLines int `mapstructure:"max_lines"`
}

type HistoryConfig struct {
	Limit int `mapstructure:"limit"`
}

type SessionConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Secret      string        `mapstructure:"secret"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	Watch  bool   `mapstructure:"watch"`
}

type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// DSN returns the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type NotifyConfig struct {
	DiscordToken   string `mapstructure:"discord_token"`
	DiscordChannel string `mapstructure:"discord_channel"`
}

type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Scan    ScanConfig    `mapstructure:"scan"`
	History HistoryConfig `mapstructure:"history"`
	Session SessionConfig `mapstructure:"session"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	Server  ServerConfig  `mapstructure:"server"`
	Notify  NotifyConfig  `mapstructure:"notify"`
}

// LoadOptions controls where configuration is searched for.
type LoadOptions struct {
	ConfigPath string
	ConfigName string
	EnvPrefix  string
}

func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		ConfigName: "resvalidator",
		EnvPrefix:  "RESVALIDATOR",
	}
}

// Defaults returns the default value for every known key.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"backend.base_url":       "http://localhost:8000",
		"backend.timeout":        time.Duration(0),
		"scan.max_lines":         50,
		"history.limit":          5,
		"session.idle_timeout":   10 * time.Minute,
		"session.secret":         "IDNIC2026",
		"storage.driver":         DriverFile,
		"storage.path":           defaultStatePath(),
		"storage.watch":          false,
		"db.host":                "localhost",
		"db.port":                5432,
		"db.user":                "resvalidator",
		"db.password":            "resvalidator",
		"db.name":                "resvalidator",
		"server.host":            "localhost",
		"server.port":            8080,
		"notify.discord_token":   "",
		"notify.discord_channel": "",
	}
}

// Load reads configuration from file and environment. A missing config file
// is not an error; defaults and environment variables still apply.
func Load(opts LoadOptions) (*Config, error) {
	v, err := newViper(opts)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newViper(opts LoadOptions) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if opts.ConfigName == "" {
		opts.ConfigName = "resvalidator"
	}
	v.SetConfigName(opts.ConfigName)

	configPaths := []string{}
	if opts.ConfigPath != "" {
		configPaths = append(configPaths, opts.ConfigPath)
	}
	configPaths = append(configPaths, "./config", "$HOME/.resvalidator", "/etc/resvalidator")
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		v.AutomaticEnv()
	}

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

// Upper bounds for the configurable batch and history sizes. Lower values
// are allowed.
const (
	MaxScanLines      = 50
	MaxHistoryEntries = 5
)

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return apperrors.NewConfigError("backend.base_url", c.Backend.BaseURL, "must not be empty")
	}
	if c.Backend.Timeout < 0 {
		return apperrors.NewConfigError("backend.timeout", c.Backend.Timeout, "must not be negative")
	}
	if c.Scan.MaxLines < 1 || c.Scan.MaxLines > MaxScanLines {
		return apperrors.NewConfigError("scan.max_lines", c.Scan.MaxLines, fmt.Sprintf("must be between 1 and %d", MaxScanLines))
	}
	if c.History.Limit < 1 || c.History.Limit > MaxHistoryEntries {
		return apperrors.NewConfigError("history.limit", c.History.Limit, fmt.Sprintf("must be between 1 and %d", MaxHistoryEntries))
	}
	if c.Session.IdleTimeout <= 0 {
		return apperrors.NewConfigError("session.idle_timeout", c.Session.IdleTimeout, "must be positive")
	}
	switch c.Storage.Driver {
	case DriverFile:
		if c.Storage.Path == "" {
			return apperrors.NewConfigError("storage.path", c.Storage.Path, "required for file storage")
		}
	case DriverPostgres:
	default:
		return apperrors.NewConfigError("storage.driver", c.Storage.Driver, "must be one of file, postgres")
	}
	return nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".resvalidator", "state.json")
	}
	return filepath.Join(home, ".resvalidator", "state.json")
}
