package core

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// VarContext holds the values available to {{ ... }} placeholders.
// Environment variables are stored under "env.NAME".
type VarContext map[string]string

// varRegex is a package-level compiled regular expression for matching {{ varName }} placeholders.
var varRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9\._-]+)\s*\}\}`)

const envPrefix = "env."

// EnvContext snapshots the process environment.
func EnvContext() VarContext {
	ctx := make(VarContext)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			ctx[envPrefix+k] = v
		}
	}
	return ctx
}

// With returns a copy of c extended with vars. Keys in vars must not use the
// env. prefix; those entries are ignored.
func (c VarContext) With(vars map[string]string) VarContext {
	merged := make(VarContext, len(c)+len(vars))
	for k, v := range c {
		merged[k] = v
	}
	for k, v := range vars {
		if strings.HasPrefix(k, envPrefix) {
			continue
		}
		merged[k] = v
	}
	return merged
}

// ResolveString replaces every {{ key }} in input. An unset environment
// variable resolves to the empty string; any other unknown key is an error.
func ResolveString(input string, vars VarContext) (string, error) {
	var firstErr error
	output := varRegex.ReplaceAllStringFunc(input, func(match string) string {
		if firstErr != nil {
			return match
		}

		key := varRegex.FindStringSubmatch(match)[1]
		if val, ok := vars[key]; ok {
			return val
		}
		if strings.HasPrefix(key, envPrefix) {
			return ""
		}
		firstErr = fmt.Errorf("undefined variable: %s", key)
		return match
	})

	if firstErr != nil {
		return "", firstErr
	}
	return output, nil
}

// ResolveConfigVariables resolves placeholders in every string setting of
// cfg in place, using env and the config's own vars.
func ResolveConfigVariables(cfg *Config, env VarContext) error {
	vars := env.With(cfg.Vars)

	fields := []struct {
		name string
		ptr  *string
	}{
		{"engine", &cfg.Engine},
		{"namespace", &cfg.Namespace},
		{"chrome_path", &cfg.ChromePath},
		{"user_agent", &cfg.UserAgent},
		{"log_file", &cfg.LogFile},
		{"log_level", &cfg.LogLevel},
	}
	for _, f := range fields {
		resolved, err := ResolveString(*f.ptr, vars)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", f.name, err)
		}
		*f.ptr = resolved
	}

	for i, flag := range cfg.Flags {
		resolved, err := ResolveString(flag, vars)
		if err != nil {
			return fmt.Errorf("resolving flags[%d]: %w", i, err)
		}
		cfg.Flags[i] = resolved
	}

	return nil
}
