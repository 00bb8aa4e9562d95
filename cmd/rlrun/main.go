package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"

	"rlrun/internal/cli"
	"rlrun/internal/dispatch"
	"rlrun/internal/registry"
	"rlrun/internal/trainers/randomagent"
)

// trainers lists every trainer package linked into the binary.
var trainers = fx.Options(
	randomagent.Module,
)

func main() {
	inv, err := cli.ParseInvocation(os.Args[1:])
	if err != nil {
		var invErr *cli.InvocationError
		if errors.As(err, &invErr) {
			fmt.Fprintln(os.Stderr, invErr.Message)
			os.Exit(invErr.ExitCode)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitInternalError)
	}

	logger := newLogger(inv.Log)
	slog.SetDefault(logger)

	var reg *registry.Registry
	app := fx.New(
		fx.NopLogger,
		trainers,
		registry.Module,
		fx.Populate(&reg),
	)
	if err := app.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cli.StageInternal, err)
		os.Exit(cli.ExitInternalError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	result, execErr := cli.Execute(ctx, inv, cli.Deps{Registry: reg, Logger: logger})
	stop()
	if execErr != nil {
		fmt.Fprintln(os.Stderr, dispatch.Describe(result.Stage, execErr))
	}
	os.Exit(result.ExitCode)
}

func newLogger(c cli.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level}
	if c.Format == cli.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
