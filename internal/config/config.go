package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the seshat configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Search   SearchConfig   `yaml:"search"`
	Auth     AuthConfig     `yaml:"auth"`
	Mail     MailConfig     `yaml:"mail"`
	Pictures PicturesConfig `yaml:"pictures"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	// PublicURL is the externally visible base URL, used in emailed links.
	PublicURL string `yaml:"public_url"`
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool `yaml:"secure_cookies"`
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite file, ":memory:" for a throwaway store
}

// SearchConfig holds full-text index settings.
type SearchConfig struct {
	Driver           string             `yaml:"driver"` // none, redis, bleve (default: none)
	Addrs            []string           `yaml:"addrs"`
	Password         string             `yaml:"password"`
	KeyPrefix        string             `yaml:"key_prefix"`
	ReadinessTimeout int                `yaml:"readiness_timeout_sec"`
	Path             string             `yaml:"path"` // bleve index directory, empty for in-memory
	PerPage          int                `yaml:"per_page"`
	FieldWeights     map[string]float64 `yaml:"field_weights"`
}

// Enabled reports whether a search backend is configured.
func (s SearchConfig) Enabled() bool {
	return s.Driver != "" && s.Driver != "none"
}

// AuthConfig holds session and password reset settings.
type AuthConfig struct {
	SecretKey       string `yaml:"secret_key"`
	SessionTTLHours int    `yaml:"session_ttl_hours"`
	ResetTTLMin     int    `yaml:"reset_ttl_min"`
	// ResetEverySec and ResetBurst throttle password reset requests per email.
	ResetEverySec int `yaml:"reset_every_sec"`
	ResetBurst    int `yaml:"reset_burst"`
}

// MailConfig holds SMTP settings. An empty host logs mail instead of sending it.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PicturesConfig holds profile picture storage settings.
type PicturesConfig struct {
	Driver    string `yaml:"driver"` // local, s3 (default: local)
	Dir       string `yaml:"dir"`
	URLPrefix string `yaml:"url_prefix"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	PublicURL string `yaml:"public_url"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.PublicURL == "" {
		c.HTTP.PublicURL = fmt.Sprintf("http://localhost:%d", c.HTTP.Port)
	}
	if c.Database.Path == "" {
		c.Database.Path = "site.db"
	}
	if c.Search.Driver == "" {
		c.Search.Driver = "none"
	}
	if c.Search.KeyPrefix == "" {
		c.Search.KeyPrefix = "seshat"
	}
	if c.Search.ReadinessTimeout <= 0 {
		c.Search.ReadinessTimeout = 10
	}
	if c.Search.PerPage <= 0 {
		c.Search.PerPage = 10
	}
	if c.Auth.SessionTTLHours <= 0 {
		c.Auth.SessionTTLHours = 24 * 30
	}
	if c.Auth.ResetTTLMin <= 0 {
		c.Auth.ResetTTLMin = 10
	}
	if c.Auth.ResetEverySec <= 0 {
		c.Auth.ResetEverySec = 60
	}
	if c.Auth.ResetBurst <= 0 {
		c.Auth.ResetBurst = 3
	}
	if c.Mail.Port <= 0 {
		c.Mail.Port = 25
	}
	if c.Pictures.Driver == "" {
		c.Pictures.Driver = "local"
	}
	if c.Pictures.Dir == "" {
		c.Pictures.Dir = "static/profile_pics"
	}
	if c.Pictures.URLPrefix == "" {
		c.Pictures.URLPrefix = "/static/profile_pics"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth.secret_key is required")
	}
	switch c.Search.Driver {
	case "none", "bleve":
	case "redis":
		if len(c.Search.Addrs) == 0 {
			return fmt.Errorf("search.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("search.driver must be \"none\", \"redis\" or \"bleve\", got %q", c.Search.Driver)
	}
	for field, w := range c.Search.FieldWeights {
		if w <= 0 {
			return fmt.Errorf("search.field_weights.%s must be positive, got %v", field, w)
		}
	}
	switch c.Pictures.Driver {
	case "local":
	case "s3":
		if c.Pictures.Endpoint == "" || c.Pictures.Bucket == "" {
			return fmt.Errorf("pictures.endpoint and pictures.bucket are required for the s3 driver")
		}
	default:
		return fmt.Errorf("pictures.driver must be \"local\" or \"s3\", got %q", c.Pictures.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
