package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/internal/domain"
)

// Result is the textual output and exit code of one adb invocation.
type Result struct {
	ExitCode int
	Output   string
}

// Transport runs adb. Implementations return *domain.TransportFatalError when
// the tool cannot be executed at all and an error wrapping domain.ErrTimeout
// when the call exceeds its deadline. A non-zero exit is not an error.
type Transport interface {
	Run(ctx context.Context, serial string, args ...string) (Result, error)
	KillServer(ctx context.Context) error
	StartServer(ctx context.Context) error
}

// ExecTransport shells out to the adb binary.
type ExecTransport struct {
	path         string
	serverSocket string
	timeout      time.Duration
}

func NewExecTransport(cfg environments.DeviceConfig) *ExecTransport {
	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	path := cfg.ADBPath
	if path == "" {
		path = "adb"
	}

	return &ExecTransport{
		path:         path,
		serverSocket: cfg.ServerSocket(),
		timeout:      timeout,
	}
}

func (t *ExecTransport) Run(ctx context.Context, serial string, args ...string) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, t.path, args...)
	cmd.Env = t.environ(serial)
	cmd.WaitDelay = time.Second

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	output := strings.TrimSpace(out.String())
	op := "adb " + strings.Join(args, " ")

	if err == nil {
		return Result{ExitCode: 0, Output: output}, nil
	}

	if isFatal(err) {
		return Result{ExitCode: -1, Output: output}, &domain.TransportFatalError{Op: op, Err: err}
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return Result{ExitCode: -1, Output: output}, fmt.Errorf("%s after %v: %w", op, t.timeout, domain.ErrTimeout)
	}

	if ctx.Err() != nil {
		return Result{ExitCode: -1, Output: output}, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{ExitCode: exitErr.ExitCode(), Output: output}, nil
	}

	return Result{ExitCode: -1, Output: output}, fmt.Errorf("failed to run %s: %w", op, err)
}

func (t *ExecTransport) KillServer(ctx context.Context) error {
	return t.server(ctx, "kill-server")
}

func (t *ExecTransport) StartServer(ctx context.Context) error {
	return t.server(ctx, "start-server")
}

func (t *ExecTransport) server(ctx context.Context, verb string) error {
	res, err := t.Run(ctx, "", verb)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("adb %s exited with code %d: %s", verb, res.ExitCode, res.Output)
	}
	return nil
}

func (t *ExecTransport) environ(serial string) []string {
	env := os.Environ()
	if serial != "" {
		env = append(env, "ANDROID_SERIAL="+serial)
	}
	if t.serverSocket != "" {
		env = append(env, "ADB_SERVER_SOCKET="+t.serverSocket)
	}
	return env
}

func isFatal(err error) bool {
	return errors.Is(err, exec.ErrNotFound) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission)
}
