package core

import (
	"time"

	"github.com/arnavsurve/pagerun/pkg/browser"
)

// DefaultConfigFile is looked up in the working directory when --config is
// not given.
const DefaultConfigFile = "pagerun.yml"

// Config is the optional pagerun.yml file. Command line flags override the
// values it sets.
type Config struct {
	Engine        string            `yaml:"engine"`
	Headless      bool              `yaml:"headless"`
	Namespace     string            `yaml:"namespace"`
	Strict        bool              `yaml:"strict"`
	LoadTimeout   time.Duration     `yaml:"load_timeout"`
	LaunchTimeout time.Duration     `yaml:"launch_timeout"`
	Settle        time.Duration     `yaml:"settle"`
	ChromePath    string            `yaml:"chrome_path,omitempty"`
	UserAgent     string            `yaml:"user_agent,omitempty"`
	Flags         []string          `yaml:"flags,omitempty"`
	Secrets       []string          `yaml:"secrets,omitempty"`
	LogFile       string            `yaml:"log_file,omitempty"`
	LogLevel      string            `yaml:"log_level"`
	Vars          map[string]string `yaml:"vars,omitempty"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Engine:        "chromedp",
		Headless:      true,
		Namespace:     browser.DefaultNamespace,
		Strict:        true,
		LoadTimeout:   60 * time.Second,
		LaunchTimeout: 30 * time.Second,
		LogLevel:      "info",
	}
}

// EngineConfig converts the browser settings for browser.NewEngine.
func (c *Config) EngineConfig() browser.EngineConfig {
	return browser.EngineConfig{
		Name:          c.Engine,
		Headless:      c.Headless,
		ChromePath:    c.ChromePath,
		UserAgent:     c.UserAgent,
		Flags:         append([]string(nil), c.Flags...),
		LaunchTimeout: c.LaunchTimeout,
	}
}
