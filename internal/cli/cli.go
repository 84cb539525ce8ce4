// Package cli is the synchronous command line front end: it checks the
// handset, then sends one message or a CSV batch without the task queue or
// the database.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/internal/batchinput"
	"github.com/Ammly/AdbSms/internal/device"
	"github.com/Ammly/AdbSms/internal/domain"
	"github.com/Ammly/AdbSms/internal/service"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitFailures    = 1
	ExitUsage       = 2
	ExitUnreachable = 3
	ExitTransport   = 4
	ExitInput       = 5
)

type options struct {
	file      string
	simID     int
	delay     float64
	single    bool
	number    string
	message   string
	checkOnly bool
}

// App holds what a run needs besides its arguments.
type App struct {
	Transport device.Transport
	Device    environments.DeviceConfig
	Dispatch  environments.DispatchConfig
	Stdout    io.Writer
	Stderr    io.Writer
}

// Run parses args (without the program name) and returns the exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	opts, err := a.parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK
		}
		fmt.Fprintf(a.Stderr, "Error: %v\n", err)
		return ExitUsage
	}

	link := device.NewLinkManager(a.Transport, a.Device.Serial)

	ready, err := link.EnsureReady(ctx)
	if err != nil {
		fmt.Fprintf(a.Stderr, "adb not found or not working: %v\n", err)
		return ExitTransport
	}
	if !ready.Ready {
		fmt.Fprintf(a.Stderr, "No usable device: %s\n", ready.Reason)
		return ExitUnreachable
	}

	if opts.checkOnly {
		fmt.Fprintf(a.Stdout, "ADB connection successful (device %s)\n", ready.DeviceID)
		return ExitOK
	}

	dispatcher := service.NewDispatcher(link, device.NewInvoker(a.Transport, a.Device.LegacyProtocol), device.NewLocalGuard(), nil)

	if opts.single {
		return a.sendSingle(ctx, dispatcher, opts)
	}
	return a.sendBatch(ctx, dispatcher, opts)
}

func (a *App) parse(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("adbsms", flag.ContinueOnError)
	fs.SetOutput(a.Stderr)

	defaultDelay := a.Dispatch.DefaultDelay.Seconds()
	if defaultDelay <= 0 {
		defaultDelay = 1.0
	}

	fs.StringVar(&opts.file, "f", "messages.csv", "CSV file with phone_number and message columns")
	fs.StringVar(&opts.file, "file", "messages.csv", "same as -f")
	fs.IntVar(&opts.simID, "s", a.Dispatch.DefaultSimID, "SIM subscription id (3 is typical for an eSIM)")
	fs.IntVar(&opts.simID, "sim-id", a.Dispatch.DefaultSimID, "same as -s")
	fs.Float64Var(&opts.delay, "d", defaultDelay, "delay between messages in seconds")
	fs.Float64Var(&opts.delay, "delay", defaultDelay, "same as -d")
	fs.BoolVar(&opts.single, "single", false, "send one message instead of reading a CSV file")
	fs.StringVar(&opts.number, "n", "", "recipient for --single")
	fs.StringVar(&opts.number, "number", "", "same as -n")
	fs.StringVar(&opts.message, "m", "", "message text for --single")
	fs.StringVar(&opts.message, "message", "", "same as -m")
	fs.BoolVar(&opts.checkOnly, "check-only", false, "only check the adb connection and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	switch {
	case opts.single && (opts.number == "" || opts.message == ""):
		return opts, errors.New("--number and --message are required with --single")
	case opts.simID < 0:
		return opts, errors.New("sim id must not be negative")
	case opts.delay < 0:
		return opts, errors.New("delay must not be negative")
	}

	return opts, nil
}

func (a *App) sendSingle(ctx context.Context, dispatcher *service.Dispatcher, opts options) int {
	msg := &domain.Message{
		PhoneNumber: opts.number,
		Content:     opts.message,
		SimID:       opts.simID,
		Status:      domain.StatusPending,
	}

	outcome, err := dispatcher.Dispatch(ctx, msg)
	if err != nil {
		fmt.Fprintf(a.Stderr, "Send failed: %v\n", err)
		if errors.Is(err, domain.ErrTransportFatal) {
			return ExitTransport
		}
		return ExitFailures
	}

	if outcome.Succeeded() {
		fmt.Fprintf(a.Stdout, "SMS sent to %s\n", opts.number)
		return ExitOK
	}

	failure := outcome.Err()
	fmt.Fprintf(a.Stderr, "SMS to %s failed: %v\n", opts.number, failure)
	return exitForFailure(failure)
}

func (a *App) sendBatch(ctx context.Context, dispatcher *service.Dispatcher, opts options) int {
	rows, err := batchinput.ParseFile(opts.file, 0)
	if err != nil {
		fmt.Fprintf(a.Stderr, "Cannot read %s: %v\n", opts.file, err)
		return ExitInput
	}

	items := make([]domain.BatchItem, 0, len(rows))
	for _, row := range rows {
		item := domain.BatchItem{Row: row.Line, Err: row.Err}
		if row.Valid() {
			item.Message = &domain.Message{
				PhoneNumber: row.PhoneNumber,
				Content:     row.Message,
				SimID:       opts.simID,
				Status:      domain.StatusPending,
			}
		}
		items = append(items, item)
	}

	fmt.Fprintf(a.Stdout, "Sending %d messages from %s with SIM ID %d and %.1fs delay\n", len(items), opts.file, opts.simID, opts.delay)

	batch := service.NewBatchCoordinator(dispatcher)
	res, err := batch.DispatchBatch(ctx, items, service.BatchOptions{
		Delay: time.Duration(opts.delay * float64(time.Second)),
	})

	for _, item := range res.Items {
		if item.Status == domain.StatusSent {
			fmt.Fprintf(a.Stdout, "row %d: sent to %s\n", item.Row, item.PhoneNumber)
		} else {
			fmt.Fprintf(a.Stdout, "row %d: failed: %s\n", item.Row, item.Reason)
		}
	}
	fmt.Fprintf(a.Stdout, "Completed: %d succeeded, %d failed\n", res.Succeeded, res.Failed)

	switch {
	case errors.Is(err, domain.ErrTransportFatal):
		fmt.Fprintf(a.Stderr, "Batch aborted: %v\n", err)
		return ExitTransport
	case errors.Is(err, domain.ErrBatchDeviceUnreachable):
		fmt.Fprintf(a.Stderr, "%v\n", err)
		return ExitUnreachable
	case err != nil:
		fmt.Fprintf(a.Stderr, "Batch stopped: %v\n", err)
		return ExitFailures
	case res.Failed > 0:
		return ExitFailures
	}
	return ExitOK
}

func exitForFailure(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return ExitUsage
	case errors.Is(err, domain.ErrDeviceUnreachable):
		return ExitUnreachable
	case errors.Is(err, domain.ErrTransportFatal):
		return ExitTransport
	default:
		return ExitFailures
	}
}
