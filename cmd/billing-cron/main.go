package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nordlane/cloudcrm/internal/config"
	"github.com/nordlane/cloudcrm/internal/jobs"
	"github.com/nordlane/cloudcrm/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env).With("component", "billing-cron")

	secret := cfg.Cron.Secret
	if secret == "" {
		secret = cfg.Billing.CronSecret
	}
	s := jobs.NewScheduler(cfg.Cron.Endpoint, secret, nil, log)

	// --once runs a single pass and exits, for external schedulers.
	if len(os.Args) > 1 && os.Args[1] == "--once" {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		rep, err := s.Trigger(ctx)
		if err != nil {
			log.Error("charge trigger failed", "err", err)
			os.Exit(1)
		}
		log.Info("charge trigger done", "charged", rep.Charged, "suspended", rep.Suspended, "failed", rep.Failed)
		return
	}

	if err := s.Start(cfg.Cron.Schedule); err != nil {
		log.Error("scheduler", "err", err)
		os.Exit(1)
	}
	log.Info("scheduler started", "schedule", cfg.Cron.Schedule, "endpoint", cfg.Cron.Endpoint)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Stop(stopCtx)
	log.Info("scheduler stopped")
}
