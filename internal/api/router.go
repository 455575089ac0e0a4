package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/nordlane/cloudcrm/internal/api/handlers"
	"github.com/nordlane/cloudcrm/internal/auth"
	"github.com/nordlane/cloudcrm/internal/config"
	"github.com/nordlane/cloudcrm/internal/metrics"
	"github.com/nordlane/cloudcrm/internal/middleware"
	"github.com/nordlane/cloudcrm/internal/models"
	"github.com/nordlane/cloudcrm/internal/services"
)

type RouterDeps struct {
	Cfg      config.Config
	Log      *slog.Logger
	Tokens   *auth.TokenManager
	Users    *services.UserService
	Ledger   *services.LedgerService
	Webhook  *services.WebhookService
	Billing  *services.BillingTrigger
	Services *services.CloudServiceService
}

func NewRouter(d RouterDeps) http.Handler {
	h := &handlers.Handler{
		Users:        d.Users,
		Ledger:       d.Ledger,
		Webhook:      d.Webhook,
		Billing:      d.Billing,
		Services:     d.Services,
		SecureCookie: d.Cfg.IsProd(),
		Log:          d.Log,
	}
	guard := middleware.NewGuard(d.Tokens)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.AccessLog(d.Log), middleware.HTTPMetrics)
	if d.Cfg.HTTP.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(d.Cfg.HTTP.RateLimitRPS))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Cfg.HTTP.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		AllowCredentials: true,
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)

		// machine-to-machine
		r.Post("/webhooks/payments", h.PaymentWebhook)
		r.Post("/cron/charge", h.Charge)
		r.With(guard.Bearer).Get("/subscription", h.Subscription)

		r.Group(func(r chi.Router) {
			r.Use(guard.Cookie)

			r.Get("/auth/me", h.Me)
			r.Post("/auth/session/refresh", h.RefreshSession)
			r.Post("/account/password", h.ChangePassword)
			r.Post("/account/email", h.ChangeEmail)

			r.Route("/users/{id}", func(r chi.Router) {
				r.Use(middleware.RequireSelfOrAdmin(handlers.UserIDParam))
				r.Get("/balance", h.Balance)
				r.Get("/operations", h.Operations)
				r.Post("/api-key", h.IssueAPIKey)
				r.Get("/services", h.UserServices)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(models.RoleAdmin))
				r.Get("/users", h.ListUsers)
				r.Put("/users/{id}/role", h.SetRole)
				r.Post("/users/{id}/credit", h.Credit)
				r.Get("/services", h.ListServices)
				r.Post("/services", h.CreateService)
				r.Delete("/services/{id}", h.DeleteService)
			})
		})
	})

	return r
}
