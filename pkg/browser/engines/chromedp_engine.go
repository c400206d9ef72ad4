package engines

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arnavsurve/pagerun/pkg/browser"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const ChromedpEngineName = "chromedp"

func init() {
	browser.RegisterEngineFactory(ChromedpEngineName, func(cfg browser.EngineConfig) (browser.Engine, error) {
		return NewChromedpEngine(cfg), nil
	})
}

// ChromedpEngine launches one Chrome process per page through a chromedp
// exec allocator.
type ChromedpEngine struct {
	cfg browser.EngineConfig

	mu    sync.Mutex
	pages []*chromedpPage
}

func NewChromedpEngine(cfg browser.EngineConfig) *ChromedpEngine {
	return &ChromedpEngine{cfg: cfg}
}

func (e *ChromedpEngine) Name() string { return ChromedpEngineName }

func (e *ChromedpEngine) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
	)
	if e.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(e.cfg.ChromePath))
	}
	if e.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(e.cfg.UserAgent))
	}
	for _, raw := range e.cfg.Flags {
		name, value, hasValue := splitFlag(raw)
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

// NewPage starts Chrome and opens a blank tab. ctx only bounds startup; the
// browser lives until the page is closed.
func (e *ChromedpEngine) NewPage(ctx context.Context) (browser.Page, error) {
	logger := e.cfg.Logger

	// The browser must not inherit ctx: cancelling the context used for the
	// first Run tears down the whole allocator.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), e.allocatorOptions()...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	launchCtx := ctx
	if e.cfg.LaunchTimeout > 0 {
		var cancel context.CancelFunc
		launchCtx, cancel = context.WithTimeout(ctx, e.cfg.LaunchTimeout)
		defer cancel()
	}

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()

	select {
	case err := <-started:
		if err != nil {
			cancelTab()
			cancelAlloc()
			return nil, fmt.Errorf("starting chrome: %w", err)
		}
	case <-launchCtx.Done():
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("starting chrome: %w", launchCtx.Err())
	}

	logger.Debug().Str("engine", ChromedpEngineName).Msg("Chrome started")

	p := &chromedpPage{
		ctx: tabCtx,
		shutdown: func() error {
			err := chromedp.Cancel(tabCtx)
			cancelTab()
			cancelAlloc()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	e.mu.Lock()
	e.pages = append(e.pages, p)
	e.mu.Unlock()
	return p, nil
}

func (e *ChromedpEngine) Close() error {
	e.mu.Lock()
	pages := e.pages
	e.pages = nil
	e.mu.Unlock()

	var firstErr error
	for _, p := range pages {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type chromedpPage struct {
	ctx context.Context

	closeOnce sync.Once
	closeErr  error
	shutdown  func() error
}

// OnConsole uses ListenTarget, whose callbacks run synchronously on the tab's
// event loop. That keeps messages ordered ahead of the load event that
// completes Navigate.
func (p *chromedpPage) OnConsole(fn func(browser.ConsoleMessage)) {
	chromedp.ListenTarget(p.ctx, func(ev any) {
		e, ok := ev.(*runtime.EventConsoleAPICalled)
		if !ok {
			return
		}
		fn(browser.ConsoleMessage{
			Level: string(e.Type),
			Text:  formatChromedpArgs(e.Args),
		})
	})
}

func (p *chromedpPage) Open(ctx context.Context, url string) <-chan browser.LoadResult {
	done := make(chan browser.LoadResult, 1)
	go func() {
		defer close(done)
		navCtx, cancel := p.callContext(ctx)
		defer cancel()

		if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
			done <- browser.LoadResult{Status: browser.LoadFail, Err: err}
			return
		}
		done <- browser.LoadResult{Status: browser.LoadSuccess}
	}()
	return done
}

func (p *chromedpPage) Evaluate(ctx context.Context, fnSource string) error {
	evalCtx, cancel := p.callContext(ctx)
	defer cancel()
	return chromedp.Run(evalCtx, chromedp.Evaluate(browser.AsExpression(fnSource), nil))
}

// callContext derives a per-call context from the tab that is also cancelled
// when ctx is.
func (p *chromedpPage) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	callCtx, cancel := context.WithCancel(p.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return callCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromedpPage) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.shutdown()
	})
	return p.closeErr
}

func formatChromedpArgs(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		parts = append(parts, renderConsoleArg(
			string(a.Type),
			string(a.Subtype),
			[]byte(a.Value),
			string(a.UnserializableValue),
			a.Description,
		))
	}
	return joinConsoleArgs(parts)
}
