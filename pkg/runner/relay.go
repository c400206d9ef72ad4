package runner

import (
	"fmt"
	"io"
	"sync"

	"github.com/arnavsurve/pagerun/pkg/browser"
)

// consoleRelay writes each console message as one line, verbatim.
type consoleRelay struct {
	mu    sync.Mutex
	out   io.Writer
	count int
	err   error
}

func newConsoleRelay(out io.Writer) *consoleRelay {
	return &consoleRelay{out: out}
}

func (r *consoleRelay) handle(msg browser.ConsoleMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	if r.err != nil {
		return
	}
	if _, err := fmt.Fprintln(r.out, msg.Text); err != nil {
		r.err = err
	}
}

func (r *consoleRelay) stats() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count, r.err
}
