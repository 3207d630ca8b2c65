package reactor

import (
	"context"
	"sync"

	"github.com/danmuck/squadron/internal/tools"
)

type fakeRunnerResult struct {
	stdout   []byte
	exitCode int
	err      error
}

// fakeRunner answers by declared command line and records every invocation.
type fakeRunner struct {
	mu      sync.Mutex
	results map[string]fakeRunnerResult
	calls   []tools.Command
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: make(map[string]fakeRunnerResult)}
}

func (r *fakeRunner) on(line string, res fakeRunnerResult) *fakeRunner {
	r.results[line] = res
	return r
}

func (r *fakeRunner) Run(ctx context.Context, cmd tools.Command) (tools.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, cmd)
	if err := ctx.Err(); err != nil {
		return tools.Result{ExitCode: -1}, &tools.LaunchError{Command: cmd.String(), Err: err}
	}
	res := r.results[cmd.String()]
	if res.err != nil {
		return tools.Result{ExitCode: res.exitCode}, res.err
	}
	if cmd.Stdout != nil && len(res.stdout) > 0 {
		_, _ = cmd.Stdout.Write(res.stdout)
		return tools.Result{ExitCode: res.exitCode}, nil
	}
	return tools.Result{Stdout: res.stdout, ExitCode: res.exitCode}, nil
}

func (r *fakeRunner) lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.String())
	}
	return out
}
