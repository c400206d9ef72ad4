// Package runner loads a page, relays its console to an output stream and
// triggers the page's in-page test entry point once the load completes.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/arnavsurve/pagerun/pkg/browser"
	"github.com/arnavsurve/pagerun/pkg/log"
	"github.com/arnavsurve/pagerun/pkg/types"
)

var ErrAlreadyRun = errors.New("page runner already used")

// Options controls a single run.
type Options struct {
	// Namespace owns the entry point; the runner evaluates <Namespace>.test.run().
	Namespace string
	// Strict maps a failed load or a failed evaluation to a non-zero exit
	// code. When false every completed run exits 0.
	Strict bool
	// LoadTimeout bounds the page load. Zero means no bound.
	LoadTimeout time.Duration
	// Settle keeps the page open after evaluation so console output of an
	// asynchronous test run is still relayed. Zero exits right away.
	Settle time.Duration
}

// Result describes a completed run.
type Result struct {
	URL      string
	Status   browser.LoadStatus
	LoadErr  error
	EvalErr  error
	Messages int
	ExitCode int
	Elapsed  time.Duration
}

// PageRunner performs one run against a page from its engine. A PageRunner
// is single use.
type PageRunner struct {
	engine browser.Engine
	out    io.Writer
	logger types.Logger
	opts   Options

	state atomic.Int32
	used  atomic.Bool
}

func NewPageRunner(engine browser.Engine, out io.Writer, logger types.Logger, opts Options) *PageRunner {
	if logger == nil {
		logger = log.Nop()
	}
	if opts.Namespace == "" {
		opts.Namespace = browser.DefaultNamespace
	}
	return &PageRunner{
		engine: engine,
		out:    out,
		logger: logger.With().Str("component", "runner").Logger(),
		opts:   opts,
	}
}

// State reports how far the run has progressed.
func (r *PageRunner) State() State {
	return State(r.state.Load())
}

func (r *PageRunner) setState(s State) {
	r.state.Store(int32(s))
	r.logger.Debug().Str("state", s.String()).Msg("State changed")
}

// Run loads rawURL, relays console output, evaluates the entry point once the
// load completes and returns the exit code to report. An error is returned
// only when the run could not start: a bad argument, a bad namespace or a
// browser that failed to launch.
func (r *PageRunner) Run(ctx context.Context, rawURL string) (*Result, error) {
	if !r.used.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}
	defer r.setState(StateExited)

	start := time.Now()

	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	script, err := browser.EntryPointScript(r.opts.Namespace)
	if err != nil {
		return nil, err
	}

	page, err := r.engine.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating page with %s engine: %w", r.engine.Name(), err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("Closing page failed")
		}
	}()

	relay := newConsoleRelay(r.out)
	page.OnConsole(relay.handle)

	result := &Result{URL: target}

	r.setState(StateLoading)
	r.logger.Info().Str("url", target).Msg("Opening page")

	loadCtx := ctx
	if r.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, r.opts.LoadTimeout)
		defer cancel()
	}

	load, ok := <-page.Open(loadCtx, target)
	if !ok {
		load = browser.LoadResult{Status: browser.LoadFail, Err: browser.ErrPageClosed}
	}
	result.Status = load.Status
	result.LoadErr = load.Err
	r.setState(StateLoaded)

	if load.Status == browser.LoadSuccess {
		r.logger.Info().Str("status", string(load.Status)).Msg("Page loaded")
	} else {
		r.logger.Warn().Err(load.Err).Str("status", string(load.Status)).Msg("Page load failed")
	}

	// The entry point is evaluated whatever the load status.
	result.EvalErr = page.Evaluate(ctx, script)
	r.setState(StateEvaluated)
	if result.EvalErr != nil {
		r.logger.Warn().Err(result.EvalErr).Str("namespace", r.opts.Namespace).Msg("Entry point evaluation failed")
	} else {
		r.logger.Debug().Str("namespace", r.opts.Namespace).Msg("Entry point evaluated")
	}

	if r.opts.Settle > 0 {
		timer := time.NewTimer(r.opts.Settle)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	count, writeErr := relay.stats()
	if writeErr != nil {
		r.logger.Error().Err(writeErr).Msg("Relaying console output failed")
	}
	result.Messages = count
	result.ExitCode = r.exitCode(result)
	result.Elapsed = time.Since(start)

	r.logger.Info().
		Int("messages", result.Messages).
		Int("exit_code", result.ExitCode).
		Dur("elapsed", result.Elapsed).
		Msg("Run finished")

	return result, nil
}

func (r *PageRunner) exitCode(res *Result) int {
	if !r.opts.Strict {
		return ExitOK
	}
	if res.Status != browser.LoadSuccess {
		return ExitLoadFailed
	}
	if res.EvalErr != nil {
		return ExitEvalFailed
	}
	return ExitOK
}
