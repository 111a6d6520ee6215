package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

const configBaseName = "portal_config"

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DatabaseConfig selects the datastore
type DatabaseConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=postgres sqlite"`
	URL    string `yaml:"url" validate:"required"`
}

// TelegramConfig holds the bot credentials and admin channel
type TelegramConfig struct {
	BotToken      string `yaml:"botToken" validate:"required"`
	AdminChatID   string `yaml:"adminChatID" validate:"required"`
	APIURL        string `yaml:"apiURL,omitempty" validate:"omitempty,url"`
	WebhookSecret string `yaml:"webhookSecret,omitempty"`
}

// NotifyConfig tunes the outbound notification queue
type NotifyConfig struct {
	QueueSize   int           `yaml:"queueSize,omitempty" validate:"omitempty,min=1"`
	MaxAttempts int           `yaml:"maxAttempts,omitempty" validate:"omitempty,min=1,max=10"`
	RetryDelay  time.Duration `yaml:"retryDelay,omitempty"`
}

// RedisConfig enables cross-instance de-duplication of Telegram updates
type RedisConfig struct {
	Addr      string        `yaml:"addr" validate:"required,hostname_port"`
	Password  string        `yaml:"password,omitempty"`
	DB        int           `yaml:"db,omitempty" validate:"min=0"`
	DedupeTTL time.Duration `yaml:"dedupeTTL,omitempty"`
}

// AdminConfig guards the admin-only routes. An empty secret leaves them open.
type AdminConfig struct {
	JWTSecret string `yaml:"jwtSecret,omitempty" validate:"omitempty,min=16"`
}

// SweepConfig schedules the automatic close of open sessions
type SweepConfig struct {
	RRule string `yaml:"rrule,omitempty"`
}

// ReportsConfig points at the Google spreadsheet used for roster import and hours export
type ReportsConfig struct {
	CredentialsFile string `yaml:"credentialsFile,omitempty" validate:"required_with=SpreadsheetID"`
	SpreadsheetID   string `yaml:"spreadsheetID,omitempty"`
	RosterTab       string `yaml:"rosterTab,omitempty"`
	HoursTab        string `yaml:"hoursTab,omitempty"`
}

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Telegram TelegramConfig `yaml:"telegram"`
	Notify   NotifyConfig   `yaml:"notify,omitempty"`
	Redis    *RedisConfig   `yaml:"redis,omitempty" validate:"omitempty"`
	Admin    AdminConfig    `yaml:"admin,omitempty"`
	Sweep    SweepConfig    `yaml:"sweep,omitempty"`
	Reports  ReportsConfig  `yaml:"reports,omitempty"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load reads .env if present, then loads and validates portal_config.yaml for env.
// It looks for the config file in the current directory first, then in the user's home directory
func Load(env string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expandEnv(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} with its environment value. Bare $ is left alone.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(ref []byte) []byte {
		name := envRef.FindSubmatch(ref)[1]
		return []byte(os.Getenv(string(name)))
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Notify.QueueSize == 0 {
		cfg.Notify.QueueSize = 100
	}
	if cfg.Notify.MaxAttempts == 0 {
		cfg.Notify.MaxAttempts = 3
	}
	if cfg.Notify.RetryDelay == 0 {
		cfg.Notify.RetryDelay = 2 * time.Second
	}
	if cfg.Redis != nil && cfg.Redis.DedupeTTL == 0 {
		cfg.Redis.DedupeTTL = 24 * time.Hour
	}
	if cfg.Reports.RosterTab == "" {
		cfg.Reports.RosterTab = "Volunteers"
	}
	if cfg.Reports.HoursTab == "" {
		cfg.Reports.HoursTab = "Hours"
	}
}

// Validate validates the configuration struct and checks rrule syntax
func Validate(cfg *Config) error {
	// Run struct validation
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Sweep.RRule != "" {
		if _, err := rrule.StrToRRule(cfg.Sweep.RRule); err != nil {
			return fmt.Errorf("invalid rrule in sweep: %w", err)
		}
	}

	return nil
}

// SweepSchedule returns the sweep rule anchored at from, or nil when no sweep is configured
func (c *Config) SweepSchedule(from time.Time) (*rrule.RRule, error) {
	if c.Sweep.RRule == "" {
		return nil, nil
	}

	rule, err := rrule.StrToRRule(c.Sweep.RRule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sweep rrule: %w", err)
	}
	rule.DTStart(from)
	return rule, nil
}

// findConfigFile searches for portal_config.<env>.yaml then portal_config.yaml,
// in the current directory and then the home directory
func findConfigFile(env string) (string, error) {
	names := []string{configBaseName + ".yaml"}
	if env != "" {
		names = append([]string{fmt.Sprintf("%s.%s.yaml", configBaseName, env)}, names...)
	}

	dirs := []string{"."}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dirs = append(dirs, homeDir)

	for _, dir := range dirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", fmt.Errorf("config file not found in current directory or home directory")
}
