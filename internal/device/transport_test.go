package device

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/internal/domain"
)

// writeFakeADB drops an executable shell script standing in for adb.
func writeFakeADB(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "adb")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write fake adb: %v", err)
	}
	return path
}

func TestExecTransport_PassesSerialAndServerSocket(t *testing.T) {
	path := writeFakeADB(t, `echo "$ANDROID_SERIAL|$ADB_SERVER_SOCKET|$*"`)
	tr := NewExecTransport(environments.DeviceConfig{
		ADBPath:        path,
		ServerHost:     "10.0.0.5",
		ServerPort:     "5037",
		CommandTimeout: 5 * time.Second,
	})

	res, err := tr.Run(context.Background(), "R58M123ABC", "devices")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d", res.ExitCode)
	}
	if res.Output != "R58M123ABC|tcp:10.0.0.5:5037|devices" {
		t.Fatalf("unexpected output %q", res.Output)
	}
}

func TestExecTransport_NonZeroExitIsNotAnError(t *testing.T) {
	path := writeFakeADB(t, `echo "error: no devices"; exit 1`)
	tr := NewExecTransport(environments.DeviceConfig{ADBPath: path, CommandTimeout: 5 * time.Second})

	res, err := tr.Run(context.Background(), "", "devices")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.ExitCode != 1 || !strings.Contains(res.Output, "no devices") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestExecTransport_MissingBinaryIsFatal(t *testing.T) {
	tr := NewExecTransport(environments.DeviceConfig{
		ADBPath:        filepath.Join(t.TempDir(), "does-not-exist"),
		CommandTimeout: time.Second,
	})

	_, err := tr.Run(context.Background(), "", "devices")
	if !errors.Is(err, domain.ErrTransportFatal) {
		t.Fatalf("expected transport fatal error, got %v", err)
	}
}

func TestExecTransport_TimeoutWrapsErrTimeout(t *testing.T) {
	path := writeFakeADB(t, `exec sleep 5`)
	tr := NewExecTransport(environments.DeviceConfig{ADBPath: path, CommandTimeout: 100 * time.Millisecond})

	_, err := tr.Run(context.Background(), "", "shell", "service", "call", "isms")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestExecTransport_StartServerReportsFailure(t *testing.T) {
	path := writeFakeADB(t, `exit 3`)
	tr := NewExecTransport(environments.DeviceConfig{ADBPath: path, CommandTimeout: time.Second})

	if err := tr.StartServer(context.Background()); err == nil {
		t.Fatalf("expected error for failing start-server")
	}
}
