package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ammly/AdbSms/environments"
	"github.com/Ammly/AdbSms/internal/cli"
	"github.com/Ammly/AdbSms/internal/device"
	"github.com/Ammly/AdbSms/pkg/logger"
)

func main() {
	cfg := environments.Load()

	logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	app := &cli.App{
		Transport: device.NewExecTransport(cfg.Device),
		Device:    cfg.Device,
		Dispatch:  cfg.Dispatch,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
	code := app.Run(ctx, os.Args[1:])

	stop()
	logger.Sync()
	os.Exit(code)
}
