package cliconfig

import (
	"fmt"
	"os"
	"runtime/debug"
)

// LoadHostInfo fills Hostname and Version from the running host and binary
// when they are not already set.
func LoadHostInfo(cfg *Config) error {
	if cfg.Hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("read hostname: %w", err)
		}
		cfg.Hostname = h
	}

	if cfg.Version == "" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			cfg.Version = info.Main.Version
		}
	}
	return nil
}
