package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfigFromFile reads a config file on top of DefaultConfig, resolves
// its template variables and validates the result.
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}

	if err := ResolveConfigVariables(cfg, EnvContext()); err != nil {
		return nil, fmt.Errorf("resolving variables in %q: %w", path, err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ParseConfig decodes YAML over the defaults. Unknown keys are rejected so
// typos do not silently fall back to defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return cfg, nil
}
