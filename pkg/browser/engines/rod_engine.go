package engines

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/arnavsurve/pagerun/pkg/browser"
	"github.com/arnavsurve/pagerun/pkg/types"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

const RodEngineName = "rod"

func init() {
	browser.RegisterEngineFactory(RodEngineName, func(cfg browser.EngineConfig) (browser.Engine, error) {
		return NewRodEngine(cfg), nil
	})
}

// RodEngine launches one Chrome process per page with the rod launcher.
type RodEngine struct {
	cfg browser.EngineConfig

	mu    sync.Mutex
	pages []*rodPage
}

func NewRodEngine(cfg browser.EngineConfig) *RodEngine {
	return &RodEngine{cfg: cfg}
}

func (e *RodEngine) Name() string { return RodEngineName }

func (e *RodEngine) newLauncher() *launcher.Launcher {
	l := launcher.New().Headless(e.cfg.Headless)
	if e.cfg.ChromePath != "" {
		l = l.Bin(e.cfg.ChromePath)
	}
	for _, raw := range e.cfg.Flags {
		name, value, hasValue := splitFlag(raw)
		if name == "" {
			continue
		}
		if hasValue {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}
	return l
}

func (e *RodEngine) NewPage(ctx context.Context) (browser.Page, error) {
	logger := e.cfg.Logger
	l := e.newLauncher()

	launchCtx := ctx
	if e.cfg.LaunchTimeout > 0 {
		var cancel context.CancelFunc
		launchCtx, cancel = context.WithTimeout(ctx, e.cfg.LaunchTimeout)
		defer cancel()
	}

	type launched struct {
		url string
		err error
	}
	started := make(chan launched, 1)
	go func() {
		u, err := l.Launch()
		started <- launched{url: u, err: err}
	}()

	var controlURL string
	select {
	case res := <-started:
		if res.err != nil {
			return nil, fmt.Errorf("launching chrome: %w", res.err)
		}
		controlURL = res.url
	case <-launchCtx.Done():
		l.Kill()
		return nil, fmt.Errorf("launching chrome: %w", launchCtx.Err())
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to chrome: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("creating page: %w", err)
	}
	if e.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: e.cfg.UserAgent}); err != nil {
			logger.Warn().Err(err).Msg("Could not override user agent")
		}
	}

	logger.Debug().Str("engine", RodEngineName).Str("control_url", controlURL).Msg("Chrome started")

	p := newRodPage(b, page, l, logger)
	e.mu.Lock()
	e.pages = append(e.pages, p)
	e.mu.Unlock()
	return p, nil
}

func (e *RodEngine) Close() error {
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

// rodPage drives a single rod page. Console messages and load events share
// one event subscription so a load is never reported ahead of the console
// messages emitted before it.
type rodPage struct {
	browser  *rod.Browser
	page     *rod.Page
	launcher *launcher.Launcher
	logger   types.Logger

	mu      sync.Mutex
	console func(browser.ConsoleMessage)
	loaded  chan struct{}
	flushes *flushBarrier

	stopEvents context.CancelFunc
	eventsDone chan struct{}

	closeOnce sync.Once
	closeErr  error
}

func newRodPage(b *rod.Browser, page *rod.Page, l *launcher.Launcher, logger types.Logger) *rodPage {
	eventsCtx, stop := context.WithCancel(context.Background())
	p := &rodPage{
		browser:    b,
		page:       page,
		launcher:   l,
		logger:     logger,
		loaded:     make(chan struct{}, 1),
		flushes:    newFlushBarrier(),
		stopEvents: stop,
		eventsDone: make(chan struct{}),
	}

	wait := page.Context(eventsCtx).EachEvent(
		func(ev *proto.RuntimeConsoleAPICalled) {
			text := formatRodArgs(ev.Args)
			if p.flushes.release(text) {
				return
			}
			p.mu.Lock()
			fn := p.console
			p.mu.Unlock()
			if fn == nil {
				return
			}
			fn(browser.ConsoleMessage{
				Level: string(ev.Type),
				Text:  text,
			})
		},
		func(ev *proto.PageLoadEventFired) {
			select {
			case p.loaded <- struct{}{}:
			default:
			}
		},
	)
	go func() {
		defer close(p.eventsDone)
		wait()
	}()
	return p
}

func (p *rodPage) OnConsole(fn func(browser.ConsoleMessage)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.console = fn
}

func (p *rodPage) Open(ctx context.Context, url string) <-chan browser.LoadResult {
	done := make(chan browser.LoadResult, 1)

	// drop a load event left over from the initial blank page
	select {
	case <-p.loaded:
	default:
	}

	go func() {
		defer close(done)
		res, err := proto.PageNavigate{URL: url}.Call(p.page.Context(ctx))
		if err != nil {
			done <- browser.LoadResult{Status: browser.LoadFail, Err: err}
			return
		}
		if res.ErrorText != "" {
			done <- browser.LoadResult{Status: browser.LoadFail, Err: errors.New(res.ErrorText)}
			return
		}

		select {
		case <-p.loaded:
			done <- browser.LoadResult{Status: browser.LoadSuccess}
		case <-p.eventsDone:
			done <- browser.LoadResult{Status: browser.LoadFail, Err: browser.ErrPageClosed}
		case <-ctx.Done():
			done <- browser.LoadResult{Status: browser.LoadFail, Err: ctx.Err()}
		}
	}()
	return done
}

// Evaluate waits for the console events the call produced before returning.
// rod answers commands ahead of dispatching the events they caused.
func (p *rodPage) Evaluate(ctx context.Context, fnSource string) error {
	_, evalErr := p.page.Context(ctx).Evaluate(rod.Eval(fnSource))
	if err := p.flushConsole(ctx); err != nil {
		p.logger.Warn().Err(err).Str("engine", RodEngineName).Msg("Console events may be incomplete")
	}
	return evalErr
}

// flushConsole logs a marker and blocks until the event subscription has
// handled it.
func (p *rodPage) flushConsole(ctx context.Context) error {
	marker, seen := p.flushes.add()
	if _, err := p.page.Context(ctx).Evaluate(rod.Eval(`function (m) { console.debug(m); }`, marker)); err != nil {
		p.flushes.cancel(marker)
		return fmt.Errorf("logging flush marker: %w", err)
	}

	select {
	case <-seen:
		return nil
	case <-p.eventsDone:
		p.flushes.cancel(marker)
		return browser.ErrPageClosed
	case <-ctx.Done():
		p.flushes.cancel(marker)
		return ctx.Err()
	}
}

func (p *rodPage) Close() error {
	p.closeOnce.Do(func() {
		p.stopEvents()
		if err := p.browser.Close(); err != nil {
			p.closeErr = fmt.Errorf("closing chrome: %w", err)
		}
		p.launcher.Kill()
		p.launcher.Cleanup()
	})
	return p.closeErr
}

func formatRodArgs(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		var raw []byte
		if !a.Value.Nil() {
			raw, _ = a.Value.MarshalJSON()
		}
		parts = append(parts, renderConsoleArg(
			string(a.Type),
			string(a.Subtype),
			raw,
			string(a.UnserializableValue),
			a.Description,
		))
	}
	return joinConsoleArgs(parts)
}
