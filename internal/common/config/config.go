package config

import (
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// IdentityConfig is the top-level configuration for the identity server.
	IdentityConfig struct {
		Server     ServerConfig     `yaml:"server"`
		Database   DatabaseConfig   `yaml:"database"`
		Session    SessionConfig    `yaml:"session"`
		OTP        OTPConfig        `yaml:"otp"`
		SMS        SMSConfig        `yaml:"sms"`
		Permission PermissionConfig `yaml:"permission"`
		Logger     LoggerConfig     `yaml:"logger"`
		Metrics    MetricsConfig    `yaml:"metrics"`
	}

	// ServerConfig represents the HTTP server configuration
	ServerConfig struct {
		Port            int           `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	}

	// DatabaseConfig represents the relational database configuration
	DatabaseConfig struct {
		Type     string `yaml:"type"`     // postgres, mysql, sqlite
		Host     string `yaml:"host"`     // localhost
		Port     int    `yaml:"port"`     // 5432 (postgres), 3306 (mysql)
		User     string `yaml:"user"`     // database user
		Password string `yaml:"password"` // password
		DBName   string `yaml:"dbname"`   // database name, or file path for sqlite
		SSLMode  string `yaml:"sslmode"`  // disable (postgres only)
	}

	// SessionConfig represents the session store configuration
	SessionConfig struct {
		Type  string        `yaml:"type"` // "memory" or "redis"
		TTL   time.Duration `yaml:"ttl"`  // session lifetime, default 24h
		Redis RedisConfig   `yaml:"redis"`
	}

	// OTPConfig represents the OTP engine configuration
	OTPConfig struct {
		Store       string        `yaml:"store"`        // "memory" or "redis"
		TTL         time.Duration `yaml:"ttl"`          // challenge lifetime, default 5m
		MaxAttempts int           `yaml:"max_attempts"` // verify attempts per challenge, default 3
		SendLimit   int           `yaml:"send_limit"`   // sends per phone per window, default 5
		SendWindow  time.Duration `yaml:"send_window"`  // rate limit window, default 1h
		Redis       RedisConfig   `yaml:"redis"`
	}

	// RedisConfig represents a Redis connection
	RedisConfig struct {
		Addr     string `yaml:"addr"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	}

	// SMSConfig represents the outbound SMS gateway configuration
	SMSConfig struct {
		Provider string `yaml:"provider"` // "bulksms" or "log"
		BaseURL  string `yaml:"base_url"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Sender   string `yaml:"sender"`
	}

	// PermissionConfig controls how effective permissions are evaluated
	PermissionConfig struct {
		// RecomputePerRequest re-resolves effective permissions on every
		// authenticated request instead of trusting the login-time snapshot,
		// so admin changes take effect without re-login. A pointer so an
		// omitted key defaults to true rather than to the zero value.
		RecomputePerRequest *bool `yaml:"recompute_per_request"`
	}
)

// Recompute reports whether permissions are re-resolved per request. Unset
// means true.
func (c PermissionConfig) Recompute() bool {
	return c.RecomputePerRequest == nil || *c.RecomputePerRequest
}

type (
	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps
		TimeFormat string `yaml:"time_format"` // time format for log timestamps
	}

	// MetricsConfig represents the Prometheus metrics configuration
	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Namespace string    `yaml:"namespace"`
		Path      string    `yaml:"path"`
		Buckets   []float64 `yaml:"buckets"`
	}
)

// SetDefaults normalizes zero values to the documented defaults.
func (c *IdentityConfig) SetDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.DBName == "" && c.Database.Type == "sqlite" {
		c.Database.DBName = "portal.db"
	}
	if c.Session.Type == "" {
		c.Session.Type = "memory"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 24 * time.Hour
	}
	if c.OTP.Store == "" {
		c.OTP.Store = c.Session.Type
	}
	if c.OTP.TTL == 0 {
		c.OTP.TTL = 5 * time.Minute
	}
	if c.OTP.MaxAttempts == 0 {
		c.OTP.MaxAttempts = 3
	}
	if c.OTP.SendLimit == 0 {
		c.OTP.SendLimit = 5
	}
	if c.OTP.SendWindow == 0 {
		c.OTP.SendWindow = time.Hour
	}
	if c.SMS.Provider == "" {
		c.SMS.Provider = "log"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "portal_identity"
	}
}

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig(filename string) (*IdentityConfig, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	// Resolve environment variables
	data = resolveEnv(data)

	var cfg IdentityConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.SetDefaults()

	return &cfg, nil
}

// resolveEnv replaces ${VAR} and ${VAR:default} placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
