// Package config provides YAML configuration loading with environment
// variable overrides for the mail actions.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoAccounts is returned when an account lookup happens against a
// configuration with no accounts at all.
var ErrNoAccounts = errors.New("at least one account is required to send email")

// Config holds the complete application configuration.
type Config struct {
	Accounts map[string]AccountConfig `yaml:"accounts"`
	Policy   PolicyConfig             `yaml:"policy"`
	Logging  LoggingConfig            `yaml:"logging"`
}

// AccountConfig holds the credentials and delivery settings of one named
// sending account.
type AccountConfig struct {
	Server   string    `yaml:"server"`
	Port     int       `yaml:"port"`
	Username string    `yaml:"username"`
	Password string    `yaml:"password"`
	Provider string    `yaml:"provider"`
	TLS      TLSConfig `yaml:"tls"`
	SES      SESConfig `yaml:"ses"`
}

// TLSConfig holds the client-side TLS trust settings for STARTTLS.
type TLSConfig struct {
	CAFile             string `yaml:"ca_file"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// SESConfig holds AWS SES credentials for accounts delivering through SES.
type SESConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// PolicyConfig holds the default header-processing policy. The domain and
// user entries are regular-expression fragments, not escaped literals.
type PolicyConfig struct {
	EnforceCC      []string `yaml:"enforce_cc"`
	AllowedDomains []string `yaml:"allowed_domains"`
	AllowedUsers   []string `yaml:"allowed_users"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from environment variables with sensible defaults.
// Environment variables always take precedence.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvVars()
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file as the base layer, then
// overrides with environment variables. Returns an error if the specified
// file path does not exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	cfg.applyDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment variables always override YAML values
	cfg.applyEnvVars()

	return cfg, nil
}

// Account returns the named account. It fails with ErrNoAccounts when no
// accounts are configured, and with an error listing the configured account
// names when the requested one is absent.
func (c *Config) Account(name string) (AccountConfig, error) {
	if len(c.Accounts) == 0 {
		return AccountConfig{}, ErrNoAccounts
	}
	account, ok := c.Accounts[name]
	if !ok {
		return AccountConfig{}, fmt.Errorf(
			"account %q does not appear in the configuration, available accounts are: %s",
			name, strings.Join(c.AccountNames(), ","))
	}
	return account, nil
}

// AccountNames returns the configured account names in sorted order.
func (c *Config) AccountNames() []string {
	names := make([]string, 0, len(c.Accounts))
	for name := range c.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PolicyConfigured returns true if any allow-list or enforced-CC rule is set.
func (c *Config) PolicyConfigured() bool {
	return len(c.Policy.EnforceCC) > 0 ||
		len(c.Policy.AllowedDomains) > 0 ||
		len(c.Policy.AllowedUsers) > 0
}

// applyDefaults sets sensible default values for all configuration fields.
func (c *Config) applyDefaults() {
	c.Logging.Level = "info"
}

// applyEnvVars overrides configuration with environment variable values.
// Only non-empty environment variables override existing values.
func (c *Config) applyEnvVars() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}
