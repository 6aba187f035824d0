package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "SANCTIONS_"
	envFileVar = "SANCTIONS_ENV_FILE"
	configVar  = "SANCTIONS_CONFIG"
)

// listKeys are decoded from comma-separated environment values.
var listKeys = map[string]bool{
	"matcher.datasets":    true,
	"audit.kafka.brokers": true,
}

// Load builds a Config by layering, from low to high precedence:
//  1. defaults (New)
//  2. a YAML file when SANCTIONS_CONFIG is set
//  3. environment variables prefixed SANCTIONS_, after loading .env
//     (or SANCTIONS_ENV_FILE) without overriding variables already set
//
// Nested keys use a double underscore: SANCTIONS_MATCHER__BASE_URL sets
// matcher.base_url. The result is validated before it is returned.
func Load() (*Config, error) {
	envFile := os.Getenv(envFileVar)
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	k := koanf.New(".")

	if path := os.Getenv(configVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.ProviderWithValue(envPrefix, ".", envKeyValue)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	// Bookkeeping variables are not configuration keys.
	k.Delete("config")
	k.Delete("env_file")

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// envKeyValue maps SANCTIONS_MATCHER__BASE_URL to matcher.base_url and splits
// list keys on commas, trimming each element and dropping empties.
func envKeyValue(key, value string) (string, any) {
	key = strings.TrimPrefix(key, envPrefix)
	key = strings.ReplaceAll(strings.ToLower(key), "__", ".")
	if !listKeys[key] {
		return key, value
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return key, items
}
