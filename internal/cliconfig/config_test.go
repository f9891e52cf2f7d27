package cliconfig

import (
	"reflect"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Site != DefaultSite {
		t.Errorf("Site = %v, want %v", cfg.Site, DefaultSite)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %v, want 10", cfg.BatchSize)
	}
	if cfg.FlushInterval != 5*time.Second {
		t.Errorf("FlushInterval = %v, want 5s", cfg.FlushInterval)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %v, want 3", cfg.MaxRetries)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.OverflowPolicy != "drop_newest" {
		t.Errorf("OverflowPolicy = %v, want drop_newest", cfg.OverflowPolicy)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		c := DefaultConfig()
		c.APIKey = "key"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid defaults with key", func(c *Config) {}, false},
		{"missing api key", func(c *Config) { c.APIKey = "" }, true},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, true},
		{"negative flush interval", func(c *Config) { c.FlushInterval = -time.Second }, true},
		{"zero max retries", func(c *Config) { c.MaxRetries = 0 }, true},
		{"capacity below batch size", func(c *Config) { c.QueueCapacity = 5 }, true},
		{"unknown overflow policy", func(c *Config) { c.OverflowPolicy = "drop_random" }, true},
		{"drop oldest", func(c *Config) { c.OverflowPolicy = "drop_oldest" }, false},
		{"follow without state dir", func(c *Config) { c.Follow = true }, true},
		{"follow with state dir", func(c *Config) { c.Follow = true; c.StateDir = "/tmp/s" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateDerived(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "key"
	cfg.Site = ""
	cfg.EndpointURL = "http://localhost:8080/api/v2/logs/"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if cfg.Site != DefaultSite {
		t.Errorf("Site = %v, want %v", cfg.Site, DefaultSite)
	}
	if cfg.EndpointURL != "http://localhost:8080/api/v2/logs" {
		t.Errorf("EndpointURL = %v, want trailing slash removed", cfg.EndpointURL)
	}
}

func TestConfig_Masked(t *testing.T) {
	cfg := Config{APIKey: "secret"}

	if got := cfg.Masked().APIKey; got != "*****" {
		t.Errorf("Masked().APIKey = %q", got)
	}
	if cfg.APIKey != "secret" {
		t.Error("Masked modified the original")
	}
}

func TestSplitTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"team:core", []string{"team:core"}},
		{"team:core,region:eu", []string{"team:core", "region:eu"}},
		{"team:core region:eu", []string{"team:core", "region:eu"}},
		{" a , b ", []string{"a", "b"}},
	}

	for _, tt := range tests {
		if got := SplitTags(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitTags(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoadHostInfo(t *testing.T) {
	cfg := Config{Hostname: "preset", Version: "1.0.0"}
	if err := LoadHostInfo(&cfg); err != nil {
		t.Fatalf("LoadHostInfo() error: %v", err)
	}
	if cfg.Hostname != "preset" || cfg.Version != "1.0.0" {
		t.Errorf("LoadHostInfo overwrote set values: %+v", cfg)
	}

	empty := Config{}
	if err := LoadHostInfo(&empty); err != nil {
		t.Fatalf("LoadHostInfo() error: %v", err)
	}
	if empty.Hostname == "" {
		t.Error("Hostname not filled in")
	}
}
