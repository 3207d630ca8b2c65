package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/danmuck/squadron/internal/testutil/testlog"
)

func TestJoinCommandEscaping(t *testing.T) {
	testlog.Start(t)
	got := joinCommand("echo", []string{"a b", "quote'v"})
	want := "'echo' 'a b' 'quote'\"'\"'v'"
	if got != want {
		t.Fatalf("unexpected joined command\nwant: %s\ngot:  %s", want, got)
	}
}

func TestRemoteCommandLineChangesDir(t *testing.T) {
	testlog.Start(t)
	got := remoteCommandLine(Command{Name: "make", Args: []string{"deploy"}, Dir: "/srv/app"})
	want := "cd '/srv/app' && 'make' 'deploy'"
	if got != want {
		t.Fatalf("unexpected remote line\nwant: %s\ngot:  %s", want, got)
	}
}

func TestSSHRunnerAddressValidation(t *testing.T) {
	testlog.Start(t)
	r := SSHRunner{}
	if _, err := r.address(); err == nil {
		t.Fatalf("expected host validation error")
	}

	r.Host = "node-a"
	addr, err := r.address()
	if err != nil {
		t.Fatalf("unexpected address error: %v", err)
	}
	if addr != "node-a:22" {
		t.Fatalf("expected default ssh port, got %q", addr)
	}

	r.Port = "2222"
	if addr, _ = r.address(); addr != "node-a:2222" {
		t.Fatalf("expected explicit port, got %q", addr)
	}
}

func TestSSHRunnerClientConfigValidation(t *testing.T) {
	testlog.Start(t)
	r := SSHRunner{Host: "node-a"}
	if _, err := r.clientConfig(); err == nil {
		t.Fatalf("expected missing user validation error")
	}
	r.User = "deploy"
	if _, err := r.clientConfig(); err == nil {
		t.Fatalf("expected missing key path validation error")
	}
}

func TestSSHRunnerDialFailureIsLaunchError(t *testing.T) {
	testlog.Start(t)
	_, err := SSHRunner{}.Run(context.Background(), Command{Name: "true"})
	if !errors.Is(err, ErrLaunch) {
		t.Fatalf("expected launch error for unconfigured runner, got %v", err)
	}
}

type fakeExit int

func (e fakeExit) Error() string   { return fmt.Sprintf("exit status %d", int(e)) }
func (e fakeExit) ExitStatus() int { return int(e) }

func TestRemoteResultMapsExitStatus(t *testing.T) {
	testlog.Start(t)
	cmd := Command{Name: "make", Args: []string{"deploy"}}
	cases := []struct {
		name       string
		err        error
		wantCode   int
		wantLaunch bool
		wantIs     error
	}{
		{name: "success", err: nil, wantCode: 0},
		{name: "plain exit", err: fakeExit(3), wantCode: 3},
		{name: "wrapped exit", err: fmt.Errorf("session: %w", fakeExit(1)), wantCode: 1},
		{name: "not executable", err: fakeExit(126), wantCode: 126, wantLaunch: true, wantIs: ErrRemoteNotExecutable},
		{name: "not found", err: fakeExit(127), wantCode: 127, wantLaunch: true, wantIs: ErrRemoteNotExecutable},
		{name: "transport", err: io.EOF, wantCode: -1, wantLaunch: true, wantIs: io.EOF},
		{name: "cancelled", err: context.Canceled, wantCode: -1, wantLaunch: true, wantIs: context.Canceled},
	}
	for _, tc := range cases {
		res, err := remoteResult(cmd, Result{Stdout: []byte("out")}, tc.err)
		if res.ExitCode != tc.wantCode {
			t.Fatalf("%s: expected exit %d, got %d", tc.name, tc.wantCode, res.ExitCode)
		}
		if string(res.Stdout) != "out" {
			t.Fatalf("%s: expected captured output to survive, got %q", tc.name, res.Stdout)
		}
		if !tc.wantLaunch {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		var launch *LaunchError
		if !errors.As(err, &launch) || launch.Command != cmd.String() {
			t.Fatalf("%s: expected LaunchError for %q, got %v", tc.name, cmd.String(), err)
		}
		if !errors.Is(err, ErrLaunch) || !errors.Is(err, tc.wantIs) {
			t.Fatalf("%s: expected %v in chain, got %v", tc.name, tc.wantIs, err)
		}
	}
}

func TestWaitRemoteKillsOnCancel(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan struct{})
	killed := false
	cancel()

	err := waitRemote(ctx, func() error {
		<-stop
		return io.EOF
	}, func() {
		killed = true
		close(stop)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if !killed {
		t.Fatalf("expected kill on cancellation")
	}
}

func TestWaitRemoteReturnsRunError(t *testing.T) {
	testlog.Start(t)
	err := waitRemote(context.Background(), func() error { return fakeExit(2) }, func() {
		t.Fatalf("kill must not run when the command finishes")
	})
	var exit fakeExit
	if !errors.As(err, &exit) || exit != 2 {
		t.Fatalf("expected exit 2, got %v", err)
	}
}
