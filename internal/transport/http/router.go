package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tapcard-api/internal/application/activation"
	"github.com/tapcard-api/internal/application/card"
	"github.com/tapcard-api/internal/application/session"
	"github.com/tapcard-api/internal/application/user"
	"github.com/tapcard-api/internal/config"
	"github.com/tapcard-api/internal/transport/http/handler"
	appmiddleware "github.com/tapcard-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := func(next http.Handler) http.Handler { return next }
	optionalAuthMw := authMw
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
		optionalAuthMw = appmiddleware.OptionalAuth(deps.JWTProvider)
	}

	trusted, err := appmiddleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		slog.Warn("ignoring TRUSTED_PROXIES, rate limiting on peer address", "err", err)
		trusted = nil
	}
	// 5 requests/second, burst of 10, on public endpoints that guess or spend codes.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10, trusted...)

	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo:     deps.SessionRepo,
		UserRepo:        deps.UserRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenExpiry,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:    deps.UserRepo,
		SessionRepo: deps.SessionRepo,
		Sessions:    sessionSvc,
	})
	actDeps := activation.ServiceDeps{
		Store:          deps.ActivationRepo,
		Staging:        deps.ClaimStaging,
		ManifestPrefix: cfg.S3ManifestPrefix,
		BatchMax:       cfg.ActivationBatchMax,
	}
	if deps.Mailer != nil {
		actDeps.Notifier = activation.NewMailNotifier(deps.UserRepo, deps.Mailer)
	}
	if deps.S3Store != nil {
		actDeps.Manifests = deps.S3Store
	}
	activationSvc := activation.NewService(actDeps)
	cardSvc := card.NewService(card.ServiceDeps{
		CardRepo:       deps.CardRepo,
		ActivationRepo: deps.ActivationRepo,
	})

	healthH := handler.NewHealthHandler(deps.Readiness)
	sessionH := handler.NewSessionHandler(sessionSvc, activationSvc)
	userH := handler.NewUserHandler(userSvc, activationSvc)
	activationH := handler.NewActivationHandler(activationSvc)
	cardH := handler.NewCardHandler(cardSvc)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)
		r.With(sensitiveRL.Limit).Post("/activations/verify", activationH.Verify)
		r.With(sensitiveRL.Limit, optionalAuthMw).Post("/activations/activate", activationH.Activate)
		r.Get("/activations/pending/{ticket}", activationH.PeekPending)
		r.Get("/cards/slug/{slug}", cardH.GetBySlug)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/users/{id}", userH.Get)
			r.Delete("/users/{id}", userH.Delete)

			r.Post("/activations/pending/claim", activationH.ClaimPending)
			r.Get("/activations/mine", activationH.Mine)

			r.Post("/cards", cardH.Create)
			r.Get("/cards", cardH.List)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireAdmin)

				r.Post("/activations", activationH.Create)
				r.Post("/activations/batch", activationH.CreateBatch)
				r.Get("/activations", activationH.List)
				r.Get("/activations/{id}", activationH.Get)
			})
		})
	})

	return r
}
