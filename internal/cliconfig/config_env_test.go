package cliconfig

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"DD_API_KEY":         "env-key",
				"DD_SERVICE":         "api",
				"DD_ENV":             "prod",
				"DD_VERSION":         "2.1.0",
				"DD_TAGS":            "team:core,region:eu",
				"DD_BATCH_SIZE":      "100",
				"DD_FLUSH_INTERVAL":  "250ms",
				"DD_OVERFLOW_POLICY": "drop_oldest",
				"DD_COMPRESS":        "true",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				APIKey:         "env-key",
				Service:        "api",
				Environment:    "prod",
				Version:        "2.1.0",
				Tags:           []string{"team:core", "region:eu"},
				BatchSize:      100,
				FlushInterval:  250 * time.Millisecond,
				OverflowPolicy: "drop_oldest",
				Compress:       true,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"DD_SERVICE": "env-service",
				"DD_ENV":     "staging",
			},
			changed: map[string]bool{"service": true},
			initial: Config{
				Service: "flag-service",
			},
			expected: Config{
				Service:     "flag-service",
				Environment: "staging",
			},
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"DD_FLUSH_INTERVAL": "not-a-duration",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"DD_BATCH_SIZE": "ten",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(cfg, tt.expected) {
				t.Errorf("config = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DD_SERVICE=from-dotenv\nDD_ENV=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}

	// Already-set variables win over the file
	t.Setenv("DD_ENV", "from-shell")
	t.Setenv("DD_SERVICE", "")
	os.Unsetenv("DD_SERVICE")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("DD_SERVICE") })

	if got := os.Getenv("DD_SERVICE"); got != "from-dotenv" {
		t.Errorf("DD_SERVICE = %q, want from-dotenv", got)
	}
	if got := os.Getenv("DD_ENV"); got != "from-shell" {
		t.Errorf("DD_ENV = %q, want from-shell", got)
	}
}

func TestLoadDotEnv_Missing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("LoadDotEnv() on missing file = %v, want nil", err)
	}
}
