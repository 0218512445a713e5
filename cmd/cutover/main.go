// Command cutover runs the daily cutover once and prints its report. It re-drives a
// sweep that the server's schedule missed.
package main

import (
	"alcyxob/exercise-tracker/internal/app"
	"alcyxob/exercise-tracker/internal/config"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cdr.dev/slog/v3"
	"cdr.dev/slog/v3/sloggers/sloghuman"
	"github.com/coder/quartz"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	at := flag.String("at", "", "cutover instant in RFC3339, defaults to now")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Make(sloghuman.Sink(os.Stderr)).Fatal(context.Background(), "load config", slog.Error(err))
	}
	logger := cfg.Log.NewLogger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *at); err != nil {
		logger.Fatal(ctx, "cutover failed", slog.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger slog.Logger, atFlag string) error {
	application, err := app.New(ctx, cfg, logger, quartz.NewReal())
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error(context.Background(), "close application", slog.Error(err))
		}
	}()

	at := application.Clock.Now()
	if atFlag != "" {
		at, err = time.Parse(time.RFC3339, atFlag)
		if err != nil {
			return fmt.Errorf("parse -at: %w", err)
		}
	}

	report, err := application.Cutover.Run(ctx, at)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			logger.Error(ctx, "write report", slog.Error(encErr))
		}
	}
	return err
}
