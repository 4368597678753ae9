package resolver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "gpt-4o-mini"
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 2

	envAPIKey     = "RESOLVER_API_KEY"
	envBaseURL    = "RESOLVER_BASE_URL"
	envModel      = "RESOLVER_MODEL"
	envTimeout    = "RESOLVER_TIMEOUT"
	envMaxRetries = "RESOLVER_MAX_RETRIES"
)

// Config holds runtime settings for the symbol resolution client.
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	Timeout    time.Duration `yaml:"-"`
	MaxRetries int           `yaml:"max_retries"`
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open resolver config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from a reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	var raw struct {
		BaseURL    string `yaml:"base_url"`
		APIKey     string `yaml:"api_key"`
		Model      string `yaml:"model"`
		Timeout    string `yaml:"timeout"`
		MaxRetries int    `yaml:"max_retries"`
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read resolver config: %w", err)
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal resolver config: %w", err)
	}

	cfg := &Config{
		BaseURL:    strings.TrimSpace(os.ExpandEnv(raw.BaseURL)),
		APIKey:     strings.TrimSpace(os.ExpandEnv(raw.APIKey)),
		Model:      strings.TrimSpace(os.ExpandEnv(raw.Model)),
		MaxRetries: raw.MaxRetries,
	}
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return nil, fmt.Errorf("resolver config: invalid timeout %q: %w", raw.Timeout, err)
		}
		cfg.Timeout = d
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(envBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(envModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(envTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v := os.Getenv(envMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
}

// Enabled reports whether a credential is configured. An absent credential
// disables symbol resolution entirely; it is never an error.
func (c *Config) Enabled() bool {
	return c != nil && c.APIKey != ""
}

// Validate checks settings required to construct a client.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("resolver: config cannot be nil")
	}
	if c.APIKey == "" {
		return errors.New("resolver: api key is required")
	}
	if c.BaseURL == "" {
		return errors.New("resolver: base url is required")
	}
	if c.Model == "" {
		return errors.New("resolver: model is required")
	}
	return nil
}
