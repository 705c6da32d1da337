// ABOUTME: Configuration loading and parsing for coven-sso
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete coven-sso configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Services ServicesConfig `yaml:"services"`
	Tickets  TicketsConfig  `yaml:"tickets"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds ticket registry storage configuration. An empty
// path selects the in-memory registry.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// JWTSecret signs minted access tokens. At least 32 bytes.
	JWTSecret string `yaml:"jwt_secret"`
	// Users maps usernames to bcrypt password hashes for the password
	// handler.
	Users map[string]string `yaml:"users"`
	// Attributes maps principal ids to released attribute values fed to
	// the attribute resolver.
	Attributes map[string]map[string][]string `yaml:"attributes"`
}

// ServicesConfig locates the registered-services TOML file.
type ServicesConfig struct {
	Path string `yaml:"path"`
}

// TicketsConfig holds ticket lifetime configuration.
type TicketsConfig struct {
	TGTMaxLifetime time.Duration `yaml:"-"`
	TGTIdleTimeout time.Duration `yaml:"-"`
	ServiceTicket  time.Duration `yaml:"-"`
	OAuthCode      time.Duration `yaml:"-"`
	AccessToken    time.Duration `yaml:"-"`
	RefreshToken   time.Duration `yaml:"-"`
	SweepInterval  time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TGTMaxLifetimeRaw string `yaml:"tgt_max_lifetime"`
	TGTIdleTimeoutRaw string `yaml:"tgt_idle_timeout"`
	ServiceTicketRaw  string `yaml:"service_ticket_ttl"`
	OAuthCodeRaw      string `yaml:"oauth_code_ttl"`
	AccessTokenRaw    string `yaml:"access_token_ttl"`
	RefreshTokenRaw   string `yaml:"refresh_token_ttl"`
	SweepIntervalRaw  string `yaml:"sweep_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Services.Path == "" {
		return fmt.Errorf("services.path is required")
	}
	return nil
}

// durationField pairs a raw YAML string with its parsed destination.
type durationField struct {
	name string
	raw  string
	dst  *time.Duration
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	fields := []durationField{
		{"tgt_max_lifetime", cfg.Tickets.TGTMaxLifetimeRaw, &cfg.Tickets.TGTMaxLifetime},
		{"tgt_idle_timeout", cfg.Tickets.TGTIdleTimeoutRaw, &cfg.Tickets.TGTIdleTimeout},
		{"service_ticket_ttl", cfg.Tickets.ServiceTicketRaw, &cfg.Tickets.ServiceTicket},
		{"oauth_code_ttl", cfg.Tickets.OAuthCodeRaw, &cfg.Tickets.OAuthCode},
		{"access_token_ttl", cfg.Tickets.AccessTokenRaw, &cfg.Tickets.AccessToken},
		{"refresh_token_ttl", cfg.Tickets.RefreshTokenRaw, &cfg.Tickets.RefreshToken},
		{"sweep_interval", cfg.Tickets.SweepIntervalRaw, &cfg.Tickets.SweepInterval},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
