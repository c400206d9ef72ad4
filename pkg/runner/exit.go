package runner

import "fmt"

// Exit codes reported by a run.
const (
	ExitOK         = 0
	ExitUsage      = 1
	ExitLoadFailed = 2
	ExitEvalFailed = 3
	ExitBrowser    = 4
)

// ExitError is returned by the command layer when a run finishes with a
// non-zero exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exit status %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
