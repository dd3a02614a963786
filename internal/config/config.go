package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Access   AccessConfig   `yaml:"access"`
	Admin    AdminConfig    `yaml:"admin"`
	Payment  PaymentConfig  `yaml:"payment"`
	Telegram TelegramConfig `yaml:"telegram"`
	Storage  StorageConfig  `yaml:"storage"`
	Mail     MailConfig     `yaml:"mail"`
}

// AppConfig holds app-specific configuration
type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Host           string          `yaml:"host"`
	Port           int             `yaml:"port"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	BodyLimitMB    int             `yaml:"body_limit_mb"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds the global in-memory request limit
type RateLimitConfig struct {
	Max        int `yaml:"max"`
	Expiration int `yaml:"expiration"` // seconds
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds redis-specific configuration. An empty host disables Redis.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig holds logging-specific configuration
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// AccessConfig holds the access gate policy
type AccessConfig struct {
	// SessionWindow is how long a device session stays active after its last use.
	SessionWindow     time.Duration `yaml:"session_window"`
	DefaultMaxDevices int           `yaml:"default_max_devices"`
	// TrustProxyHeaders makes X-Forwarded-For / X-Real-IP the device identity.
	TrustProxyHeaders *bool `yaml:"trust_proxy_headers"`
	// StrictDeviceLimit serializes the device-limit check per email.
	StrictDeviceLimit bool          `yaml:"strict_device_limit"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
}

// AdminConfig holds admin panel authentication settings
type AdminConfig struct {
	PasswordHash string        `yaml:"password_hash"` // argon2id encoded hash
	TokenTTL     time.Duration `yaml:"token_ttl"`
	LoginLimit   int           `yaml:"login_limit"` // attempts per minute per address
}

// PaymentConfig holds payment intake settings
type PaymentConfig struct {
	Prices      map[string]int `yaml:"prices"`
	SubmitLimit int            `yaml:"submit_limit"` // submissions per hour per address
}

// TelegramConfig holds Telegram bot settings. An empty token disables the bot.
type TelegramConfig struct {
	BotToken      string `yaml:"bot_token"`
	AdminChatID   int64  `yaml:"admin_chat_id"`
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`
	AdminURL      string `yaml:"admin_url"`
}

// StorageConfig holds S3-compatible object storage settings. An empty endpoint disables uploads.
type StorageConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	UseSSL        bool   `yaml:"use_ssl"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// MailConfig holds SMTP settings. An empty host disables e-mail delivery.
type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()

	return &cfg, nil
}

// ApplyDefaults fills zero values with the defaults the services expect
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "matrix"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.BodyLimitMB == 0 {
		c.Server.BodyLimitMB = 10
	}
	if c.Server.RateLimit.Max == 0 {
		c.Server.RateLimit.Max = 120
	}
	if c.Server.RateLimit.Expiration == 0 {
		c.Server.RateLimit.Expiration = 60
	}
	if c.Access.SessionWindow == 0 {
		c.Access.SessionWindow = 24 * time.Hour
	}
	if c.Access.DefaultMaxDevices == 0 {
		c.Access.DefaultMaxDevices = 2
	}
	if c.Access.TrustProxyHeaders == nil {
		trust := true
		c.Access.TrustProxyHeaders = &trust
	}
	if c.Access.TokenTTL == 0 {
		c.Access.TokenTTL = 24 * time.Hour
	}
	if c.Admin.TokenTTL == 0 {
		c.Admin.TokenTTL = 12 * time.Hour
	}
	if c.Admin.LoginLimit == 0 {
		c.Admin.LoginLimit = 5
	}
	if c.Payment.SubmitLimit == 0 {
		c.Payment.SubmitLimit = 10
	}
	if c.Payment.Prices == nil {
		c.Payment.Prices = map[string]int{}
	}
	for plan, price := range defaultPrices {
		if _, ok := c.Payment.Prices[plan]; !ok {
			c.Payment.Prices[plan] = price
		}
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
}

var defaultPrices = map[string]int{
	"single":    300,
	"month":     990,
	"half_year": 4990,
	"year":      8990,
}

// TrustsProxyHeaders reports whether forwarded headers identify the device
func (a *AccessConfig) TrustsProxyHeaders() bool {
	return a.TrustProxyHeaders == nil || *a.TrustProxyHeaders
}

// Address returns the server address in the format "host:port"
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Address returns the redis address in the format "host:port"
func (r *RedisConfig) Address() string {
	return net.JoinHostPort(r.Host, fmt.Sprintf("%d", r.Port))
}

// Enabled reports whether a Redis host is configured
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

// Enabled reports whether the Telegram bot is configured
func (t *TelegramConfig) Enabled() bool {
	return t.BotToken != ""
}

// Enabled reports whether object storage is configured
func (s *StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

// Enabled reports whether SMTP delivery is configured
func (m *MailConfig) Enabled() bool {
	return m.Host != ""
}

// quoteDSNValue quotes a DSN value if it contains spaces or special characters.
// Single quotes inside the value are escaped by doubling them.
func quoteDSNValue(value string) string {
	needsQuoting := false
	for _, r := range value {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' || r == '/' || r == '@' || r == ':') {
			needsQuoting = true
			break
		}
	}

	if !needsQuoting {
		return value
	}

	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// DSN returns the database connection string
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSNValue(d.Host),
		d.Port,
		quoteDSNValue(d.User),
		quoteDSNValue(d.Password),
		quoteDSNValue(d.DBName),
		quoteDSNValue(d.SSLMode),
	)
}

// URL returns the database connection URL in postgres:// format for golang-migrate
func (d *DatabaseConfig) URL() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port)),
		Path:     "/" + d.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s&search_path=public", url.QueryEscape(d.SSLMode)),
	}

	return u.String()
}
