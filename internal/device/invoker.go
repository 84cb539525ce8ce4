package device

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/alessio/shellescape"

	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/pkg/logger"
	"github.com/Ammly/AdbSms/pkg/metrics"
)

const (
	ismsService     = "isms"
	ismsSendCode    = "5"
	ismsCallingPkg  = "com.android.mms.service"
	ismsNull        = "null"
	parcelReplyMark = "Parcel"
)

// Invocation is the raw result of asking the device to send one message.
type Invocation struct {
	ExitedCleanly bool
	RawOutput     string
}

// Invoker issues the telephony send call through adb shell.
type Invoker struct {
	transport Transport
	legacy    bool
}

// NewInvoker builds an invoker. legacy drops the trailing flags and
// timestamp arguments that older telephony services do not accept.
func NewInvoker(transport Transport, legacy bool) *Invoker {
	return &Invoker{transport: transport, legacy: legacy}
}

// InvokeSend runs the send call on deviceID. The returned error is either a
// transport fatal error or one wrapping domain.ErrTimeout; a device-side
// failure is reported through Invocation.
func (i *Invoker) InvokeSend(ctx context.Context, deviceID string, simID int, recipient, content string) (Invocation, error) {
	args := BuildSendArgs(simID, recipient, content, i.legacy)

	start := time.Now()
	res, err := i.transport.Run(ctx, deviceID, args...)
	metrics.ObserveInvocation(time.Since(start))

	if err != nil {
		if errors.Is(err, domain.ErrTransportFatal) || errors.Is(err, domain.ErrTimeout) {
			return Invocation{RawOutput: res.Output}, err
		}
		logger.Warnf("Send invocation on %q failed: %v", deviceID, err)
		return Invocation{RawOutput: err.Error()}, nil
	}

	inv := Invocation{
		ExitedCleanly: res.ExitCode == 0 && strings.Contains(res.Output, parcelReplyMark),
		RawOutput:     res.Output,
	}
	if !inv.ExitedCleanly && inv.RawOutput == "" {
		inv.RawOutput = "exit code " + strconv.Itoa(res.ExitCode) + ", no output"
	}

	logger.Debugf("Send invocation on %q exited %d: %s", deviceID, res.ExitCode, res.Output)
	return inv, nil
}

// BuildSendArgs returns the adb argument vector for the isms send call.
// String arguments are shell quoted because the device shell re-parses them.
func BuildSendArgs(simID int, recipient, content string, legacy bool) []string {
	args := []string{
		"shell", "service", "call", ismsService, ismsSendCode,
		"i32", strconv.Itoa(simID),
		"s16", shellescape.Quote(ismsCallingPkg),
		"s16", shellescape.Quote(ismsNull),
		"s16", shellescape.Quote(recipient),
		"s16", shellescape.Quote(ismsNull),
		"s16", shellescape.Quote(content),
		"s16", shellescape.Quote(ismsNull),
		"s16", shellescape.Quote(ismsNull),
	}
	if !legacy {
		args = append(args, "i32", "0", "i64", "0")
	}
	return args
}
