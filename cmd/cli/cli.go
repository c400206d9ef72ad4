// Package cli wires the pagerun command line onto the runner.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	"github.com/arnavsurve/pagerun/pkg/runner"

	// Ensure all engine implementations are initialized
	_ "github.com/arnavsurve/pagerun/pkg/browser/engines"
)

// App carries the process streams into command Run methods.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
}

// CLI is the command tree. "run" is the default command, so
// "pagerun <url>" and "pagerun run <url>" are equivalent.
type CLI struct {
	Run  RunCmd  `cmd:"" default:"withargs" help:"Open a page, relay its console and run its test entry point."`
	Lint LintCmd `cmd:"" help:"Validate a pagerun config file."`
}

type exitSignal int

// Main parses args, runs the selected command and returns the process exit
// code.
func Main(args []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			sig, ok := r.(exitSignal)
			if !ok {
				panic(r)
			}
			code = int(sig)
		}
	}()

	var cli CLI
	app := &App{Stdout: stdout, Stderr: stderr}

	parser, err := kong.New(&cli,
		kong.Name("pagerun"),
		kong.Description("Headless page runner: relays a page's console to stdout and triggers its test entry point."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { panic(exitSignal(code)) }),
		kong.Bind(app),
	)
	if err != nil {
		fmt.Fprintf(stderr, "pagerun: %v\n", err)
		return runner.ExitUsage
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "pagerun: error: %v\n", err)
		return runner.ExitUsage
	}

	if err := ctx.Run(); err != nil {
		return exitCodeFor(stderr, err)
	}
	return runner.ExitOK
}

func exitCodeFor(stderr io.Writer, err error) int {
	var exitErr *runner.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(stderr, "pagerun: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}
	fmt.Fprintf(stderr, "pagerun: %v\n", err)
	return runner.ExitUsage
}
