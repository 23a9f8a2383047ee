// Command studentapi serves the student REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-student-api/internal/config"
	"github.com/goliatone/go-student-api/internal/logging"
	"github.com/goliatone/go-student-api/pkg/di"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "studentapi: load .env: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "studentapi",
		Usage: "Student records REST API",
		Flags: config.Flags(config.ConfigFile()),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.FromCommand(cmd)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logger, err := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
			if err != nil {
				return err
			}
			return serve(ctx, cfg, logger)
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "studentapi: %v\n", err)
		return 1
	}
	return 0
}

// serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests for up to cfg.ShutdownTimeout.
func serve(ctx context.Context, cfg config.Config, logger log.Logger) error {
	container, err := di.NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			level.Warn(logger).Log("msg", "close failed", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      container.API(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		level.Info(logger).Log("msg", "listening", "addr", srv.Addr, "environment", cfg.Environment)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	level.Info(logger).Log("msg", "shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	level.Info(logger).Log("msg", "server stopped")
	return nil
}
