package device

import (
	"context"
	"strings"
	"sync"
)

// fakeTransport replays scripted `adb devices` outputs and records calls.
type fakeTransport struct {
	mu sync.Mutex

	devicesOutputs []string // consumed in order; the last one repeats
	devicesErr     error
	devicesExit    int

	sendResult Result
	sendErr    error

	killErr  error
	startErr error

	devicesCalls int
	killCalls    int
	startCalls   int
	runs         [][]string
	serials      []string
}

func (f *fakeTransport) Run(ctx context.Context, serial string, args ...string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.runs = append(f.runs, args)
	f.serials = append(f.serials, serial)

	if len(args) > 0 && args[0] == "devices" {
		f.devicesCalls++
		if f.devicesErr != nil {
			return Result{ExitCode: -1}, f.devicesErr
		}
		out := ""
		if len(f.devicesOutputs) > 0 {
			idx := f.devicesCalls - 1
			if idx >= len(f.devicesOutputs) {
				idx = len(f.devicesOutputs) - 1
			}
			out = f.devicesOutputs[idx]
		}
		return Result{ExitCode: f.devicesExit, Output: out}, nil
	}

	return f.sendResult, f.sendErr
}

func (f *fakeTransport) KillServer(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killCalls++
	return f.killErr
}

func (f *fakeTransport) StartServer(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	return f.startErr
}

func devicesOutput(rows ...string) string {
	return "List of devices attached\n" + strings.Join(rows, "\n") + "\n"
}
