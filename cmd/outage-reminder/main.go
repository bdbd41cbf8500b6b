package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outagereminder/internal/app"
	"outagereminder/internal/calendar"
	"outagereminder/internal/config"
	"outagereminder/internal/logging"
	"outagereminder/internal/reminder"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	cli, err := parseFlags(flag.CommandLine, os.Args[1:], cfg)
	if err != nil {
		os.Exit(2)
	}
	if err := cfg.RequireChannel(); err != nil && !cli.cleanup {
		fmt.Fprintln(os.Stderr, "usage: outage-reminder -channel <name|@name|https://t.me/name> [-dry-run] [-group X] [-limit N] [-cleanup [-yes]] [-daemon]")
		os.Exit(2)
	}

	logger, cleanup, err := logging.New(cfg.Logging, "outage-reminder")
	if err != nil {
		log.Fatalf("log error: %v", err)
	}
	defer func() {
		_ = cleanup()
	}()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var prompt calendar.CodePrompt
	if !cli.daemon {
		prompt = calendar.StdinPrompt(os.Stdin, os.Stderr)
	}
	needCalendar := !cfg.DryRun || cli.cleanup
	a, err := app.Build(ctx, cfg, logger, app.Options{Calendar: needCalendar, Prompt: prompt, Feed: true})
	if err != nil {
		logger.Error("startup_failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	switch {
	case cli.cleanup:
		err = runCleanup(ctx, a.Service, cfg.DryRun, cli.yes)
	case cli.daemon:
		err = runDaemon(ctx, a, cfg, logger)
	default:
		var res reminder.Result
		res, err = a.Service.Run(ctx, app.RunOptions(cfg))
		if err == nil {
			printResult(os.Stdout, res, cfg.Location())
		}
	}
	if err != nil {
		logger.Error("run_failed", "error", err)
		os.Exit(1)
	}
}

func runCleanup(ctx context.Context, svc *reminder.Service, dryRun, yes bool) error {
	confirm := confirmPrompt(os.Stdin, os.Stdout)
	if yes {
		confirm = func([]calendar.Event) bool { return true }
	}
	res, err := svc.Cleanup(ctx, dryRun, confirm)
	if err != nil {
		return err
	}
	printCleanup(os.Stdout, res, dryRun)
	if len(res.Errors) > 0 {
		return errors.Join(res.Errors...)
	}
	return nil
}

func runDaemon(ctx context.Context, a *app.App, cfg *config.Config, logger *slog.Logger) error {
	d, err := reminder.NewDaemon(a.Service, app.RunOptions(cfg), cfg.SyncCron, logger)
	if err != nil {
		return err
	}

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.Metrics.Handler())
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics_listening", "addr", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics_server_error", "error", err)
			}
		}()
	}

	logger.Info("daemon_started", "cron", cfg.SyncCron, "channel", cfg.Telegram.Channel)
	d.Start()
	<-ctx.Done()

	logger.Info("shutdown", "service", "outage-reminder")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return d.Stop(shutdownCtx)
}
