package runner_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arnavsurve/pagerun/pkg/browser"
	"github.com/arnavsurve/pagerun/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newRunner(page *fakePage, out *bytes.Buffer, opts runner.Options) *runner.PageRunner {
	return runner.NewPageRunner(&fakeEngine{page: page}, out, nil, opts)
}

func TestRun_RelaysConsoleInOrderAndExitsZero(t *testing.T) {
	page := &fakePage{
		loadMessages: []string{"a", "b"},
		load:         browser.LoadResult{Status: browser.LoadSuccess},
	}
	var out bytes.Buffer
	r := newRunner(page, &out, runner.Options{Namespace: "myns", Strict: true})

	res, err := r.Run(context.Background(), "http://localhost:8000/test.html")
	require.NoError(t, err)

	assert.Equal(t, "a\nb\n", out.String())
	assert.Equal(t, runner.ExitOK, res.ExitCode)
	assert.Equal(t, 2, res.Messages)
	assert.Equal(t, browser.LoadSuccess, res.Status)
	assert.Equal(t, []string{"function () { myns.test.run(); }"}, page.evaluated)
	assert.Equal(t, runner.StateExited, r.State())
}

func TestRun_DrivesPageInContractOrder(t *testing.T) {
	page := &fakePage{load: browser.LoadResult{Status: browser.LoadSuccess}}
	r := newRunner(page, &bytes.Buffer{}, runner.Options{Strict: true})

	_, err := r.Run(context.Background(), "http://example.test/")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"on_console",
		"open http://example.test/",
		"load success",
		"evaluate",
		"close",
	}, page.Events())
}

func TestRun_NoConsoleOutput(t *testing.T) {
	page := &fakePage{load: browser.LoadResult{Status: browser.LoadSuccess}}
	var out bytes.Buffer
	r := newRunner(page, &out, runner.Options{Strict: true})

	res, err := r.Run(context.Background(), "http://example.test/")
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Equal(t, runner.ExitOK, res.ExitCode)
	assert.Zero(t, res.Messages)
}

func TestRun_DefaultNamespace(t *testing.T) {
	page := &fakePage{load: browser.LoadResult{Status: browser.LoadSuccess}}
	r := newRunner(page, &bytes.Buffer{}, runner.Options{})

	_, err := r.Run(context.Background(), "http://example.test/")
	require.NoError(t, err)
	assert.Equal(t, []string{"function () { hasch.test.run(); }"}, page.evaluated)
}

func TestRun_UnreachableURL(t *testing.T) {
	tests := []struct {
		name     string
		strict   bool
		wantCode int
	}{
		{name: "lenient keeps exit 0", strict: false, wantCode: runner.ExitOK},
		{name: "strict reports load failure", strict: true, wantCode: runner.ExitLoadFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &fakePage{
				load:    browser.LoadResult{Status: browser.LoadFail, Err: errRefused},
				evalErr: errors.New("ReferenceError: hasch is not defined"),
			}
			r := newRunner(page, &bytes.Buffer{}, runner.Options{Strict: tt.strict})

			res, err := r.Run(context.Background(), "http://127.0.0.1:1/")
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, res.ExitCode)
			assert.Equal(t, browser.LoadFail, res.Status)
			assert.ErrorIs(t, res.LoadErr, errRefused)
			assert.Len(t, page.evaluated, 1, "entry point is evaluated even after a failed load")
		})
	}
}

func TestRun_EvaluationFailure(t *testing.T) {
	tests := []struct {
		name     string
		strict   bool
		wantCode int
	}{
		{name: "lenient", strict: false, wantCode: runner.ExitOK},
		{name: "strict", strict: true, wantCode: runner.ExitEvalFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := &fakePage{
				load:    browser.LoadResult{Status: browser.LoadSuccess},
				evalErr: errors.New("TypeError: Cannot read properties of undefined (reading 'run')"),
			}
			r := newRunner(page, &bytes.Buffer{}, runner.Options{Strict: tt.strict})

			res, err := r.Run(context.Background(), "http://example.test/")
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, res.ExitCode)
			assert.Error(t, res.EvalErr)
		})
	}
}

func TestRun_LoadTimeoutIsAFailedLoad(t *testing.T) {
	page := &fakePage{blockLoad: true}
	r := newRunner(page, &bytes.Buffer{}, runner.Options{Strict: true, LoadTimeout: 20 * time.Millisecond})

	res, err := r.Run(context.Background(), "http://example.test/slow")
	require.NoError(t, err)
	assert.Equal(t, browser.LoadFail, res.Status)
	assert.ErrorIs(t, res.LoadErr, context.DeadlineExceeded)
	assert.Equal(t, runner.ExitLoadFailed, res.ExitCode)
	assert.Len(t, page.evaluated, 1)
}

func TestRun_SettleRelaysLateOutput(t *testing.T) {
	page := &fakePage{
		load:         browser.LoadResult{Status: browser.LoadSuccess},
		evalMessages: []string{"1 test, 0 failures"},
	}
	var out bytes.Buffer
	r := newRunner(page, &out, runner.Options{Strict: true, Settle: 5 * time.Millisecond})

	res, err := r.Run(context.Background(), "http://example.test/")
	require.NoError(t, err)
	assert.Equal(t, "1 test, 0 failures\n", out.String())
	assert.Equal(t, 1, res.Messages)
}

func TestRun_RejectsMissingURL(t *testing.T) {
	page := &fakePage{}
	r := newRunner(page, &bytes.Buffer{}, runner.Options{})

	_, err := r.Run(context.Background(), "")
	assert.ErrorIs(t, err, runner.ErrNoURL)
	assert.Empty(t, page.Events(), "nothing is loaded without a URL")
	assert.Equal(t, runner.StateExited, r.State())
}

func TestRun_RejectsInvalidNamespace(t *testing.T) {
	page := &fakePage{}
	r := newRunner(page, &bytes.Buffer{}, runner.Options{Namespace: "x;alert(1)"})

	_, err := r.Run(context.Background(), "http://example.test/")
	assert.ErrorIs(t, err, browser.ErrInvalidNamespace)
	assert.Empty(t, page.Events())
}

func TestRun_BrowserStartFailure(t *testing.T) {
	boom := errors.New("chrome not found")
	r := runner.NewPageRunner(&fakeEngine{pageErr: boom}, &bytes.Buffer{}, nil, runner.Options{})

	_, err := r.Run(context.Background(), "http://example.test/")
	assert.ErrorIs(t, err, boom)
}

func TestRun_IsSingleUse(t *testing.T) {
	page := &fakePage{load: browser.LoadResult{Status: browser.LoadSuccess}}
	r := newRunner(page, &bytes.Buffer{}, runner.Options{})

	_, err := r.Run(context.Background(), "http://example.test/")
	require.NoError(t, err)

	_, err = r.Run(context.Background(), "http://example.test/")
	assert.ErrorIs(t, err, runner.ErrAlreadyRun)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRun_WriteErrorsDoNotAbortTheRun(t *testing.T) {
	page := &fakePage{
		loadMessages: []string{"a", "b"},
		load:         browser.LoadResult{Status: browser.LoadSuccess},
	}
	r := runner.NewPageRunner(&fakeEngine{page: page}, failingWriter{}, nil, runner.Options{Strict: true})

	res, err := r.Run(context.Background(), "http://example.test/")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Messages)
	assert.Equal(t, runner.ExitOK, res.ExitCode)
}

func TestNormalizeURL(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(file, []byte("<html></html>"), 0o644))

	got, err := runner.NormalizeURL("http://localhost:9876/context.html")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9876/context.html", got)

	got, err = runner.NormalizeURL(file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "file://"), got)
	assert.True(t, strings.HasSuffix(got, "/index.html"), got)

	_, err = runner.NormalizeURL("")
	assert.ErrorIs(t, err, runner.ErrNoURL)

	_, err = runner.NormalizeURL(filepath.Join(dir, "missing.html"))
	assert.ErrorIs(t, err, runner.ErrInvalidURL)
}

func TestNormalizeURL_Schemes(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		invalid bool
	}{
		{raw: "https://example.test/t.html", want: "https://example.test/t.html"},
		{raw: "about:blank", want: "about:blank"},
		{raw: "data:text/html,<p>hi</p>", want: "data:text/html,<p>hi</p>"},
		{raw: "file:///tmp/t.html", want: "file:///tmp/t.html"},
		{raw: "HTTP://example.test/", want: "HTTP://example.test/"},
		{raw: "localhost:8080/page.html", want: "http://localhost:8080/page.html"},
		{raw: "localhost:8080", want: "http://localhost:8080"},
		{raw: "127.0.0.1:9876/context.html?x=1", want: "http://127.0.0.1:9876/context.html?x=1"},
		{raw: "javascript:alert(1)", invalid: true},
		{raw: "ftp://example.test/t.html", invalid: true},
		{raw: "localhost:http/page.html", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := runner.NormalizeURL(tt.raw)
			if tt.invalid {
				assert.ErrorIs(t, err, runner.ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExitError(t *testing.T) {
	inner := errors.New("page load failed")
	err := &runner.ExitError{Code: runner.ExitLoadFailed, Err: inner}
	assert.Equal(t, "exit status 2: page load failed", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "exit status 3", (&runner.ExitError{Code: 3}).Error())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "created", runner.StateCreated.String())
	assert.Equal(t, "loading", runner.StateLoading.String())
	assert.Equal(t, "loaded", runner.StateLoaded.String())
	assert.Equal(t, "evaluated", runner.StateEvaluated.String())
	assert.Equal(t, "exited", runner.StateExited.String())
}

func TestRun_CountsConsoleDeliveredAsynchronously(t *testing.T) {
	page := &fakePage{
		asyncConsole: true,
		loadMessages: []string{"loading"},
		evalMessages: []string{"ok 1 - adds", "ok 2 - subtracts"},
		load:         browser.LoadResult{Status: browser.LoadSuccess},
	}
	var out bytes.Buffer
	r := newRunner(page, &out, runner.Options{Strict: true})

	res, err := r.Run(context.Background(), "http://example.test/")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Messages)
	assert.Equal(t, "loading\nok 1 - adds\nok 2 - subtracts\n", out.String())
	assert.Equal(t, runner.ExitOK, res.ExitCode)
}
