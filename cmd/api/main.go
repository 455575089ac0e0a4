package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nordlane/cloudcrm/internal/api"
	"github.com/nordlane/cloudcrm/internal/auth"
	"github.com/nordlane/cloudcrm/internal/config"
	"github.com/nordlane/cloudcrm/internal/db"
	"github.com/nordlane/cloudcrm/internal/logger"
	"github.com/nordlane/cloudcrm/internal/metrics"
	"github.com/nordlane/cloudcrm/internal/notify"
	"github.com/nordlane/cloudcrm/internal/repository"
	"github.com/nordlane/cloudcrm/internal/repository/memory"
	"github.com/nordlane/cloudcrm/internal/repository/postgres"
	"github.com/nordlane/cloudcrm/internal/services"
	"github.com/nordlane/cloudcrm/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	metrics.Init()

	var repos repository.Repositories
	switch cfg.Database.Driver {
	case "memory":
		log.Warn("using in-memory storage; data is lost on restart")
		repos = memory.New().Repositories()
	default:
		pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		if cfg.Database.Migrate {
			if err := db.RunMigrations(ctx, pool); err != nil {
				return err
			}
			log.Info("migrations applied")
		}
		repos = postgres.NewRepositories(pool)
	}

	var sender notify.Notifier = notify.NewLogNotifier(log)
	if cfg.Redis.Addr != "" {
		rdb, err := notify.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		sender = notify.NewRedisStream(rdb, cfg.Redis.Stream)
		log.Info("notifications via redis stream", "stream", cfg.Redis.Stream)
	}

	wp := worker.NewPool(4, 256)
	defer wp.Stop()
	dispatcher := notify.NewDispatcher(sender, wp, log)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.SessionTTL)
	ledger := services.NewLedgerService(repos.Ledger, dispatcher, log)
	charger := services.NewDailyCharger(repos.CloudServices, ledger, dispatcher, cfg.Billing.Method, log)

	r := api.NewRouter(api.RouterDeps{
		Cfg:      cfg,
		Log:      log,
		Tokens:   tokens,
		Users:    services.NewUserService(repos.Users, tokens, ledger, cfg.Auth.APIKeyTTL),
		Ledger:   ledger,
		Webhook:  services.NewWebhookService(cfg.Webhook.Secret, cfg.Webhook.Deduplicate, repos.Users, ledger, log),
		Billing:  services.NewBillingTrigger(cfg.Billing.CronSecret, charger, log),
		Services: services.NewCloudServiceService(repos.CloudServices, dispatcher),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           r,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.HTTP.Port, "env", cfg.Env, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
