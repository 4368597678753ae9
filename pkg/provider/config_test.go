package provider

import (
	"context"
	"strings"
	"testing"
	"time"
)

type stubProvider struct{ name string }

func (p *stubProvider) Name() string { return p.name }
func (p *stubProvider) FetchStock(context.Context, string) (*StockRecord, error) {
	return nil, Errorf(p.name, KindNotFound, "stub")
}

func init() {
	Register("stub", func(name string, cfg *ProviderConfig) (Provider, error) {
		return &stubProvider{name: name}, nil
	})
	Register("stub-keyed", func(name string, cfg *ProviderConfig) (Provider, error) {
		if cfg.APIKey == "" {
			return nil, ErrNoCredential
		}
		return &stubProvider{name: name}, nil
	})
}

func TestLoadConfigFromReader(t *testing.T) {
	t.Setenv("STUB_KEY", "k-123")
	yaml := `
providers:
  first:
    type: stub
    priority: 1
    min_interval: 500ms
    timeout: 10s
    backoff_base: 15m
  second:
    type: stub-keyed
    priority: 2
    api_key: ${STUB_KEY}
    daily_quota: 25
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadConfigFromReader: %v", err)
	}

	first := cfg.Providers["first"]
	if first.MinInterval != 500*time.Millisecond {
		t.Fatalf("MinInterval = %v", first.MinInterval)
	}
	if first.BackoffBase != 15*time.Minute {
		t.Fatalf("BackoffBase = %v", first.BackoffBase)
	}
	if got := cfg.Providers["second"].APIKey; got != "k-123" {
		t.Fatalf("APIKey = %q, env not expanded", got)
	}
}

func TestLoadConfig_rejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown type": `
providers:
  x:
    type: nosuch
    priority: 1
`,
		"missing priority": `
providers:
  x:
    type: stub
`,
		"bad duration": `
providers:
  x:
    type: stub
    priority: 1
    min_interval: fast
`,
		"empty set": `
providers: {}
`,
	}
	for name, yaml := range cases {
		if _, err := LoadConfigFromReader(strings.NewReader(yaml)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestBuildChain_ordersAndSkips(t *testing.T) {
	yaml := `
providers:
  slow:
    type: stub
    priority: 9
  fast:
    type: stub
    priority: 1
  disabled:
    type: stub-keyed
    priority: 2
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	chain, err := cfg.BuildChain()
	if err != nil {
		t.Fatalf("BuildChain: %v", err)
	}
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2 (credential-less provider skipped)", len(chain))
	}
	if chain[0].Name != "fast" || chain[1].Name != "slow" {
		t.Fatalf("chain order = %s, %s", chain[0].Name, chain[1].Name)
	}
}

func TestNormalizeTicker(t *testing.T) {
	if got := NormalizeTicker("  geo.us "); got != "GEO.US" {
		t.Fatalf("NormalizeTicker = %q", got)
	}
}
