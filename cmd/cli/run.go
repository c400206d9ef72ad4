package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arnavsurve/pagerun/pkg/browser"
	"github.com/arnavsurve/pagerun/pkg/core"
	"github.com/arnavsurve/pagerun/pkg/log"
	"github.com/arnavsurve/pagerun/pkg/log/sinks"
	"github.com/arnavsurve/pagerun/pkg/runner"
	"github.com/arnavsurve/pagerun/pkg/security"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// RunCmd flags override the config file. Zero values leave the config value
// in place.
type RunCmd struct {
	URL string `arg:"" optional:"" help:"URL or local file of the page to run. Used verbatim; {{ }} placeholders only apply to config values."`

	Config      string        `help:"The pagerun config file." default:"pagerun.yml"`
	Engine      string        `help:"Browser engine to drive (chromedp or rod)."`
	Namespace   string        `help:"Namespace whose test.run() entry point is called."`
	Lenient     bool          `help:"Always exit 0 once the run completes, even if the load or the entry point failed."`
	Headful     bool          `help:"Show the browser window."`
	ChromePath  string        `help:"Path of the Chrome/Chromium binary."`
	LoadTimeout time.Duration `help:"Maximum time to wait for the page load."`
	Settle      time.Duration `help:"Time to keep relaying console output after the entry point returns."`
	LogFile     string        `help:"Also write JSON logs to this file."`
	LogLevel    string        `help:"Log level (debug, info, warn, error)."`
}

func (r *RunCmd) applyOverrides(cfg *core.Config) {
	if r.Engine != "" {
		cfg.Engine = r.Engine
	}
	if r.Namespace != "" {
		cfg.Namespace = r.Namespace
	}
	if r.Lenient {
		cfg.Strict = false
	}
	if r.Headful {
		cfg.Headless = false
	}
	if r.ChromePath != "" {
		cfg.ChromePath = r.ChromePath
	}
	if r.LoadTimeout > 0 {
		cfg.LoadTimeout = r.LoadTimeout
	}
	if r.Settle > 0 {
		cfg.Settle = r.Settle
	}
	if r.LogFile != "" {
		cfg.LogFile = r.LogFile
	}
	if r.LogLevel != "" {
		cfg.LogLevel = r.LogLevel
	}
}

func (r *RunCmd) Run(app *App) error {
	runID := uuid.New().String()
	dotenvErr := godotenv.Load()

	cfg, configDir, err := loadConfig(r.Config)
	if err != nil {
		return &runner.ExitError{Code: runner.ExitUsage, Err: err}
	}
	r.applyOverrides(cfg)
	if err := core.ValidateConfig(cfg); err != nil {
		return &runner.ExitError{Code: runner.ExitUsage, Err: fmt.Errorf("invalid settings: %w", err)}
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)

	// Logs go to stderr; stdout only carries relayed console output.
	logRouter := log.NewRouter(sinks.NewConsoleSinkWriter(app.Stderr, log.ConvertZerologLevel(level)))
	logRouter.Redactor = security.NewEnvRedactor(cfg.Secrets)

	if cfg.LogFile != "" {
		logFilePath := core.ResolvePathFromConfig(configDir, cfg.LogFile)
		fileSink, err := sinks.NewFileSink(logFilePath)
		if err != nil {
			return &runner.ExitError{Code: runner.ExitUsage, Err: fmt.Errorf("creating file log sink: %w", err)}
		}
		logRouter.AddSink(fileSink)
	}

	cmdLogger := log.New(logRouter, level).With().Str("run_id", runID).Logger()

	defer func() {
		if err := logRouter.Close(); err != nil {
			fmt.Fprintf(app.Stderr, "Error during log shutdown: %v\n", err)
		}
	}()

	if dotenvErr != nil {
		cmdLogger.Debug().Err(dotenvErr).Msg("No .env file loaded. Relying on existing ENV for {{ env.* }} placeholders")
	}

	engineCfg := cfg.EngineConfig()
	engineCfg.Logger = cmdLogger
	engine, err := browser.NewEngine(engineCfg)
	if err != nil {
		cmdLogger.Error().Err(err).Str("engine", cfg.Engine).Msg("Failed to start browser engine")
		return &runner.ExitError{Code: runner.ExitBrowser, Err: err}
	}
	defer func() {
		if err := engine.Close(); err != nil {
			cmdLogger.Warn().Err(err).Msg("Closing browser engine failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmdLogger.Info().Str("engine", engine.Name()).Msgf("Starting page run with ID: %s", runID)

	pageRunner := runner.NewPageRunner(engine, app.Stdout, cmdLogger, runner.Options{
		Namespace:   cfg.Namespace,
		Strict:      cfg.Strict,
		LoadTimeout: cfg.LoadTimeout,
		Settle:      cfg.Settle,
	})

	res, err := pageRunner.Run(ctx, r.URL)
	if err != nil {
		cmdLogger.Error().Err(err).Msg("Page run could not start")
		return &runner.ExitError{Code: startFailureCode(err), Err: err}
	}

	switch res.ExitCode {
	case runner.ExitOK:
		return nil
	case runner.ExitLoadFailed:
		return &runner.ExitError{Code: res.ExitCode, Err: fmt.Errorf("loading %s: %w", res.URL, res.LoadErr)}
	default:
		return &runner.ExitError{Code: res.ExitCode, Err: fmt.Errorf("running %s.test.run(): %w", cfg.Namespace, res.EvalErr)}
	}
}

func startFailureCode(err error) int {
	switch {
	case errors.Is(err, runner.ErrNoURL),
		errors.Is(err, runner.ErrInvalidURL),
		errors.Is(err, browser.ErrInvalidNamespace):
		return runner.ExitUsage
	default:
		return runner.ExitBrowser
	}
}
