package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrRemoteNotExecutable marks a remote shell exit of 126 or 127, the shell's
// codes for a command that was not found or could not be executed.
var ErrRemoteNotExecutable = errors.New("tools: remote command not executable")

func joinCommand(cmd string, args []string) string {
	if len(args) == 0 {
		return shellEscape(cmd)
	}

	var builder strings.Builder
	builder.WriteString(shellEscape(cmd))
	for _, arg := range args {
		builder.WriteByte(' ')
		builder.WriteString(shellEscape(arg))
	}

	return builder.String()
}

func shellEscape(value string) string {
	if value == "" {
		return "''"
	}

	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}

// remoteCommandLine renders c for a remote shell, changing into c.Dir first when set.
func remoteCommandLine(c Command) string {
	line := joinCommand(c.Name, c.Args)
	if c.Dir == "" {
		return line
	}
	return "cd " + shellEscape(c.Dir) + " && " + line
}

// SSHRunner executes commands on a remote host, one session per command.
type SSHRunner struct {
	Host                        string
	Port                        string
	User                        string
	KeyPath                     string
	Passphrase                  []byte
	KnownHostsPath              string
	InsecureSkipHostKeyChecking bool
	Timeout                     time.Duration
}

// Run executes c on the remote host in c.Dir. Cancelling ctx kills the remote command.
func (r SSHRunner) Run(ctx context.Context, c Command) (Result, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Result{}, &LaunchError{Command: c.String(), Err: ErrEmptyCommand}
	}

	client, err := r.dial(ctx)
	if err != nil {
		return Result{}, &LaunchError{Command: c.String(), Err: err}
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return Result{}, &LaunchError{Command: c.String(), Err: err}
	}
	defer session.Close()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if c.Stdout != nil {
		session.Stdout = c.Stdout
	}
	if c.Stderr != nil {
		session.Stderr = c.Stderr
	}

	err = waitRemote(ctx, func() error { return session.Run(remoteCommandLine(c)) }, func() {
		_ = session.Signal(ssh.SIGKILL)
		client.Close()
	})
	return remoteResult(c, Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, err)
}

// waitRemote runs run until it returns or ctx ends. On ctx end it calls kill,
// waits for run to unwind and reports ctx.Err().
func waitRemote(ctx context.Context, run func() error, kill func()) error {
	done := make(chan error, 1)
	go func() { done <- run() }()
	select {
	case <-ctx.Done():
		kill()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// exitStatuser is satisfied by *ssh.ExitError.
type exitStatuser interface {
	ExitStatus() int
}

// remoteResult maps a session outcome onto Result and LaunchError.
// A remote exit status is a normal result except 126/127, which mean the command never started.
func remoteResult(c Command, res Result, err error) (Result, error) {
	if err == nil {
		return res, nil
	}
	var exit exitStatuser
	if errors.As(err, &exit) {
		res.ExitCode = exit.ExitStatus()
		if res.ExitCode == 126 || res.ExitCode == 127 {
			return res, &LaunchError{Command: c.String(), Err: fmt.Errorf("%w: exit=%d", ErrRemoteNotExecutable, res.ExitCode)}
		}
		return res, nil
	}
	res.ExitCode = -1
	return res, &LaunchError{Command: c.String(), Err: err}
}

func (r SSHRunner) dial(ctx context.Context) (*ssh.Client, error) {
	address, err := r.address()
	if err != nil {
		return nil, err
	}

	config, err := r.clientConfig()
	if err != nil {
		return nil, err
	}

	dialer := net.Dialer{Timeout: r.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return ssh.NewClient(clientConn, chans, reqs), nil
}

func (r SSHRunner) address() (string, error) {
	host := strings.TrimSpace(r.Host)
	if host == "" {
		return "", fmt.Errorf("ssh host is required")
	}

	if r.Port != "" {
		return net.JoinHostPort(host, r.Port), nil
	}

	if _, _, err := net.SplitHostPort(host); err == nil {
		return host, nil
	}

	return net.JoinHostPort(host, "22"), nil
}

func (r SSHRunner) clientConfig() (*ssh.ClientConfig, error) {
	if r.User == "" {
		return nil, fmt.Errorf("ssh user is required")
	}

	signer, err := r.signer()
	if err != nil {
		return nil, err
	}

	var hostKeyCallback ssh.HostKeyCallback
	if r.InsecureSkipHostKeyChecking {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	} else {
		callback, err := r.knownHostsCallback()
		if err != nil {
			return nil, err
		}
		hostKeyCallback = callback
	}

	return &ssh.ClientConfig{
		User:            r.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         r.Timeout,
	}, nil
}

func (r SSHRunner) signer() (ssh.Signer, error) {
	if r.KeyPath == "" {
		return nil, fmt.Errorf("ssh key path is required")
	}

	privateKey, err := os.ReadFile(r.KeyPath)
	if err != nil {
		return nil, err
	}

	if len(r.Passphrase) > 0 {
		return ssh.ParsePrivateKeyWithPassphrase(privateKey, r.Passphrase)
	}

	return ssh.ParsePrivateKey(privateKey)
}

func (r SSHRunner) knownHostsCallback() (ssh.HostKeyCallback, error) {
	path := strings.TrimSpace(r.KnownHostsPath)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("known hosts path not set and home dir unavailable")
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	return knownhosts.New(path)
}
