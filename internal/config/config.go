package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Discovery DiscoveryConfig `toml:"discovery"`
}

// DiscoveryConfig controls where sensors are looked up and which chips are
// excluded from the inventory.
type DiscoveryConfig struct {
	SysfsRoot   string   `toml:"sysfs_root"`
	IgnoreChips []string `toml:"ignore_chips"`
}

func DefaultConfig() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			SysfsRoot: "/sys",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return NormalizeAndValidate(cfg)
}

func NormalizeAndValidate(cfg *Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}

	sanitized := *cfg

	var err error
	sanitized.Discovery.SysfsRoot, err = sanitizePath("discovery.sysfs_root", sanitized.Discovery.SysfsRoot)
	if err != nil {
		return nil, err
	}

	chips := make([]string, 0, len(sanitized.Discovery.IgnoreChips))
	for _, name := range sanitized.Discovery.IgnoreChips {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, fmt.Errorf("discovery.ignore_chips must not contain empty names")
		}
		chips = append(chips, trimmed)
	}
	sanitized.Discovery.IgnoreChips = chips

	return &sanitized, nil
}

func sanitizePath(name, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("%s must not be empty", name)
	}
	cleaned := filepath.Clean(trimmed)
	if !filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%s must be an absolute path, got %q", name, value)
	}
	return cleaned, nil
}
