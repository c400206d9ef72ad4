// Package browser defines the headless browser capability the page runner
// depends on. Engines are registered by name and constructed through
// NewEngine; see the engines subpackage for the chromedp and rod backends.
package browser

import (
	"context"
	"time"

	"github.com/arnavsurve/pagerun/pkg/types"
)

// LoadStatus is the outcome reported when a page load completes.
type LoadStatus string

const (
	LoadSuccess LoadStatus = "success"
	LoadFail    LoadStatus = "fail"
)

// LoadResult is delivered exactly once on the channel returned by Page.Open.
// Err is set when Status is LoadFail.
type LoadResult struct {
	Status LoadStatus
	Err    error
}

// ConsoleMessage is one console API call made by the page. Text is the
// space-joined rendering of all arguments.
type ConsoleMessage struct {
	Level string
	Text  string
}

// Page is a single headless browser tab.
type Page interface {
	// OnConsole registers fn for every console message the page emits for
	// the rest of its lifetime. It must be called before Open for no
	// messages to be lost. Calls to fn are serialized and in emission order.
	OnConsole(fn func(ConsoleMessage))

	// Open starts loading url and returns immediately. The returned channel
	// receives one LoadResult and is then closed.
	Open(ctx context.Context, url string) <-chan LoadResult

	// Evaluate runs the zero-argument JavaScript function fnSource in the
	// page. Promises returned by the function are not awaited. Console
	// messages emitted synchronously by the function have been delivered to
	// the OnConsole handler by the time Evaluate returns.
	Evaluate(ctx context.Context, fnSource string) error

	Close() error
}

// Engine creates pages on a browser instance it owns.
type Engine interface {
	Name() string
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// EngineConfig carries the settings shared by every engine.
type EngineConfig struct {
	Name       string
	Headless   bool
	ChromePath string
	UserAgent  string
	Flags      []string
	// LaunchTimeout bounds browser startup. Zero means no bound.
	LaunchTimeout time.Duration
	Logger        types.Logger
}
