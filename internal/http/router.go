package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/KuolDimDeng/dott-tenant/internal/cache"
	"github.com/KuolDimDeng/dott-tenant/internal/config"
	tenantfeature "github.com/KuolDimDeng/dott-tenant/internal/http/features/tenant"
	"github.com/KuolDimDeng/dott-tenant/internal/http/middleware"
	"github.com/KuolDimDeng/dott-tenant/internal/httputil"
	"github.com/KuolDimDeng/dott-tenant/pkg/idp"
	"github.com/KuolDimDeng/dott-tenant/pkg/repository"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	TenantsRepo     *repository.TenantsRepository
	IDPAdmin        idp.AdminAPI // optional
	VerifyCache     *cache.Cache // optional
	VerifyCacheTTL  time.Duration
	JWTSecret       []byte
	JWTIssuer       string
	RateLimitConfig config.RateLimitConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	tenantHandler := tenantfeature.NewHandler(
		cfg.Logger,
		cfg.TenantsRepo,
		cfg.IDPAdmin,
		cfg.VerifyCache,
		cfg.VerifyCacheTTL,
	)

	r.Route("/api/tenant", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret, cfg.JWTIssuer))

		r.Group(func(r chi.Router) {
			r.Use(rateLimiters["resolve"])
			r.Get("/verify", tenantHandler.Verify)
			r.Get("/cognito", tenantHandler.Cognito)
			r.Get("/fallback", tenantHandler.Fallback)
		})

		r.Group(func(r chi.Router) {
			r.Use(rateLimiters["mutate"])
			r.Post("/ensure-db-record", tenantHandler.EnsureDBRecord)
			r.Post("/init", tenantHandler.Init)
		})
	})

	return r
}
