package cli

import (
	"fmt"

	"github.com/arnavsurve/pagerun/pkg/browser"
	"github.com/arnavsurve/pagerun/pkg/log"
	"github.com/arnavsurve/pagerun/pkg/log/sinks"
	"github.com/arnavsurve/pagerun/pkg/runner"
	"github.com/arnavsurve/pagerun/pkg/types"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type LintCmd struct {
	Config string `help:"The pagerun config file." default:"pagerun.yml"`
}

func (l *LintCmd) Run(app *App) error {
	logRouter := log.NewRouter(sinks.NewConsoleSinkWriter(app.Stderr, types.InfoLevel))
	cmdLogger := log.New(logRouter, zerolog.InfoLevel).With().Str("component", "lint").Logger()

	cmdLogger.Info().Msgf("Validating %s", l.Config)

	if err := godotenv.Load(); err != nil {
		cmdLogger.Debug().Err(err).Msg("No .env file loaded. Relying on existing ENV for {{ env.* }} placeholders")
	}

	cfg, _, err := loadConfig(l.Config)
	if err != nil {
		cmdLogger.Error().Err(err).Msgf("Config %s is invalid", l.Config)
		return &runner.ExitError{Code: runner.ExitUsage, Err: fmt.Errorf("linting %q: %w", l.Config, err)}
	}

	cmdLogger.Info().
		Str("engine", cfg.Engine).
		Str("namespace", cfg.Namespace).
		Interface("engines", browser.EngineNames()).
		Msg("Successfully validated config")
	return nil
}
