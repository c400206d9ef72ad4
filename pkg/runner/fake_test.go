package runner_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/arnavsurve/pagerun/pkg/browser"
)

// fakePage replays scripted console output during Open and records the order
// in which the runner drives it. With asyncConsole set, console messages are
// handed to the handler from a dispatcher goroutine and Open and Evaluate
// wait for that queue before returning, as engines with a separate event
// path do.
type fakePage struct {
	mu      sync.Mutex
	events  []string
	console func(browser.ConsoleMessage)

	loadMessages []string
	evalMessages []string
	load         browser.LoadResult
	evalErr      error
	blockLoad    bool
	asyncConsole bool

	queue      chan func()
	dispatched chan struct{}

	evaluated []string
	closed    bool
}

func (p *fakePage) record(event string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePage) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func (p *fakePage) OnConsole(fn func(browser.ConsoleMessage)) {
	p.record("on_console")
	p.mu.Lock()
	p.console = fn
	p.mu.Unlock()

	if p.asyncConsole {
		p.queue = make(chan func(), 16)
		p.dispatched = make(chan struct{})
		go func() {
			defer close(p.dispatched)
			for deliver := range p.queue {
				time.Sleep(time.Millisecond)
				deliver()
			}
		}()
	}
}

func (p *fakePage) emit(text string) {
	p.mu.Lock()
	fn := p.console
	p.mu.Unlock()
	if fn == nil {
		return
	}
	msg := browser.ConsoleMessage{Level: "log", Text: text}
	if p.queue != nil {
		p.queue <- func() { fn(msg) }
		return
	}
	fn(msg)
}

// flush blocks until every queued console message has been delivered.
func (p *fakePage) flush() {
	if p.queue == nil {
		return
	}
	done := make(chan struct{})
	p.queue <- func() { close(done) }
	<-done
}

func (p *fakePage) Open(ctx context.Context, url string) <-chan browser.LoadResult {
	p.record("open " + url)
	done := make(chan browser.LoadResult, 1)
	go func() {
		defer close(done)
		for _, m := range p.loadMessages {
			p.emit(m)
		}
		p.flush()
		if p.blockLoad {
			<-ctx.Done()
			done <- browser.LoadResult{Status: browser.LoadFail, Err: ctx.Err()}
			return
		}
		p.record("load " + string(p.load.Status))
		done <- p.load
	}()
	return done
}

func (p *fakePage) Evaluate(ctx context.Context, fnSource string) error {
	p.record("evaluate")
	p.mu.Lock()
	p.evaluated = append(p.evaluated, fnSource)
	p.mu.Unlock()
	for _, m := range p.evalMessages {
		p.emit(m)
	}
	p.flush()
	return p.evalErr
}

func (p *fakePage) Close() error {
	p.record("close")
	if p.queue != nil {
		close(p.queue)
		<-p.dispatched
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeEngine struct {
	page    *fakePage
	pageErr error
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) NewPage(ctx context.Context) (browser.Page, error) {
	if e.pageErr != nil {
		return nil, e.pageErr
	}
	return e.page, nil
}

func (e *fakeEngine) Close() error { return nil }

var errRefused = errors.New("net::ERR_CONNECTION_REFUSED")
