package core

import (
	"fmt"

	"github.com/arnavsurve/pagerun/pkg/browser"
	"github.com/rs/zerolog"
)

// ValidateConfig checks the engine, namespace, durations and log level.
func ValidateConfig(cfg *Config) error {
	if cfg.Engine == "" {
		return fmt.Errorf("config is missing 'engine'")
	}
	if !browser.IsRegistered(cfg.Engine) {
		return fmt.Errorf("engine %q is not one of %v", cfg.Engine, browser.EngineNames())
	}

	if err := browser.ValidateNamespace(cfg.Namespace); err != nil {
		return fmt.Errorf("namespace: %w", err)
	}

	if cfg.LoadTimeout < 0 {
		return fmt.Errorf("load_timeout must not be negative")
	}
	if cfg.LaunchTimeout < 0 {
		return fmt.Errorf("launch_timeout must not be negative")
	}
	if cfg.Settle < 0 {
		return fmt.Errorf("settle must not be negative")
	}

	for i, flag := range cfg.Flags {
		if flag == "" {
			return fmt.Errorf("flags[%d] must not be an empty string", i)
		}
	}
	for i, name := range cfg.Secrets {
		if name == "" {
			return fmt.Errorf("secrets[%d] must not be an empty string", i)
		}
	}

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w", cfg.LogLevel, err)
	}

	return nil
}
