package provider

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"stocklens/pkg/confkit"
)

// Config describes the set of market-data providers available to the engine.
type Config struct {
	Providers map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig represents configuration for a single data source.
// Credentials are expanded from the environment; an empty credential for a
// provider that requires one disables it rather than erroring.
type ProviderConfig struct {
	Type     string `yaml:"type"`
	Priority int    `yaml:"priority"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`

	MinIntervalRaw string        `yaml:"min_interval"`
	MinInterval    time.Duration `yaml:"-"`
	TimeoutRaw     string        `yaml:"timeout"`
	Timeout        time.Duration `yaml:"-"`
	BackoffBaseRaw string        `yaml:"backoff_base"`
	BackoffBase    time.Duration `yaml:"-"`

	DailyQuota     int `yaml:"daily_quota"`
	PerMinuteQuota int `yaml:"per_minute_quota"`
}

// ErrNoCredential is returned by builders whose source requires an API key
// that was not configured. BuildChain skips such providers silently.
var ErrNoCredential = errors.New("provider: no credential configured")

// Builder constructs a Provider from configuration.
type Builder func(name string, cfg *ProviderConfig) (Provider, error)

var (
	registry   = make(map[string]Builder)
	registryMu sync.RWMutex
)

// Register registers a provider constructor under a type name.
func Register(typeName string, builder Builder) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupBuilder(typeName string) (Builder, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	builder, ok := registry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// LoadConfig reads provider configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open provider config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read provider config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal provider config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	for name, pc := range c.Providers {
		if pc == nil {
			pc = &ProviderConfig{}
			c.Providers[name] = pc
		}
		pc.expandEnv()
		if err := pc.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProviderConfig) expandEnv() {
	p.Type = strings.TrimSpace(os.ExpandEnv(p.Type))
	p.APIKey = strings.TrimSpace(os.ExpandEnv(p.APIKey))
	p.BaseURL = strings.TrimSpace(os.ExpandEnv(p.BaseURL))
	p.MinIntervalRaw = strings.TrimSpace(os.ExpandEnv(p.MinIntervalRaw))
	p.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.TimeoutRaw))
	p.BackoffBaseRaw = strings.TrimSpace(os.ExpandEnv(p.BackoffBaseRaw))
}

func (p *ProviderConfig) parseDurations(name string) error {
	parse := func(field, raw string) (time.Duration, error) {
		if raw == "" {
			return 0, nil
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("provider %s: invalid %s %q: %w", name, field, raw, err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("provider %s: %s must be positive, got %s", name, field, d)
		}
		return d, nil
	}

	var err error
	if p.MinInterval, err = parse("min_interval", p.MinIntervalRaw); err != nil {
		return err
	}
	if p.Timeout, err = parse("timeout", p.TimeoutRaw); err != nil {
		return err
	}
	if p.BackoffBase, err = parse("backoff_base", p.BackoffBaseRaw); err != nil {
		return err
	}
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("provider config: providers cannot be empty")
	}
	for name, pc := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("provider config: provider name cannot be empty")
		}
		if strings.TrimSpace(pc.Type) == "" {
			return fmt.Errorf("provider config: provider %s must specify type", name)
		}
		if _, ok := lookupBuilder(pc.Type); !ok {
			return fmt.Errorf("provider config: provider %s has unsupported type %q", name, pc.Type)
		}
		if pc.Priority <= 0 {
			return fmt.Errorf("provider config: provider %s must specify a positive priority", name)
		}
		if pc.DailyQuota < 0 || pc.PerMinuteQuota < 0 {
			return fmt.Errorf("provider config: provider %s quotas cannot be negative", name)
		}
	}
	return nil
}

// ChainEntry pairs a built provider with the configuration that produced it.
type ChainEntry struct {
	Name     string
	Priority int
	Provider Provider
	Config   *ProviderConfig
}

// BuildChain instantiates all providers whose credentials are present and
// returns them ordered by priority rank (lower rank tried first). Providers
// without a configured credential are skipped, never errored.
func (c *Config) BuildChain() ([]ChainEntry, error) {
	entries := make([]ChainEntry, 0, len(c.Providers))
	for name, pc := range c.Providers {
		builder, ok := lookupBuilder(pc.Type)
		if !ok {
			return nil, fmt.Errorf("provider %s: unsupported type %q", name, pc.Type)
		}
		p, err := builder(name, pc)
		if errors.Is(err, ErrNoCredential) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		entries = append(entries, ChainEntry{Name: name, Priority: pc.Priority, Provider: p, Config: pc})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority < entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}
