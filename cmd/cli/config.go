package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/arnavsurve/pagerun/pkg/core"
)

// loadConfig reads path when it exists. A missing default config file falls
// back to core.DefaultConfig; a missing file the user named explicitly is an
// error. The returned directory anchors relative paths in the config.
func loadConfig(path string) (*core.Config, string, error) {
	if path == "" {
		path = core.DefaultConfigFile
	}

	if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
		if path != core.DefaultConfigFile {
			return nil, "", fmt.Errorf("config file %q not found", path)
		}
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("determining working directory: %w", err)
		}
		return core.DefaultConfig(), wd, nil
	}

	cfg, err := core.LoadConfigFromFile(path)
	if err != nil {
		return nil, "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("determining absolute path for config file %q: %w", path, err)
	}
	return cfg, filepath.Dir(absPath), nil
}
