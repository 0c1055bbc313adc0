/**
 * @description
 * This file sets up the HTTP router for the ledger-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies the
 * middleware stack: request ids, structured logging, panic recovery, timeouts,
 * CORS, per-IP rate limiting and authentication.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors, github.com/go-chi/httprate: CORS and rate limiting.
 * - github.com/prometheus/client_golang: The /metrics endpoint.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/viewcoin/ledger-service/internal/logging"
)

// RouterConfig carries the HTTP-level settings.
type RouterConfig struct {
	Auth                  AuthConfig
	AllowedOrigins        []string
	APIRateLimitPerMinute int
}

// LedgerRoutes creates and returns a new router for the ledger service.
func LedgerRoutes(h *LedgerHandlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logging.Component("http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))
	if cfg.APIRateLimitPerMinute > 0 {
		r.Use(httprate.Limit(cfg.APIRateLimitPerMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "Too many requests")
			}),
		))
	}

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Auth, h.service))

		r.Route("/videos", func(r chi.Router) {
			r.Post("/add", h.AddCampaignHandler)
			r.Get("/user-videos", h.ListOwnCampaignsHandler)
			r.Put("/update/{videoId}", h.UpdateCampaignHandler)
			r.Get("/available", h.ListAvailableCampaignsHandler)
			r.Post("/view/{videoId}", h.RecordViewHandler)
			r.Get("/top-creators", h.TopCreatorsHandler)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/wallet", h.WalletHandler)
			r.Post("/request-withdrawal", h.RequestWithdrawalHandler)
			r.Get("/transaction-history", h.TransactionHistoryHandler)
			r.Get("/withdrawal-history", h.WithdrawalHistoryHandler)
			r.Post("/recharge-wallet", h.RechargeWalletHandler)
			r.Post("/verify-recharge", h.VerifyRechargeHandler)
			r.Post("/create-subscription", h.CreateSubscriptionHandler)
			r.Post("/verify-subscription", h.VerifySubscriptionHandler)
		})

		r.Route("/profile", func(r chi.Router) {
			r.Get("/wallet", h.WalletHandler)
			r.Put("/become-creator", h.BecomeCreatorHandler)
			r.Get("/subscription", h.SubscriptionHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/payment-requests", h.ListPaymentRequestsHandler)
			r.Put("/payment-requests/{requestId}", h.ProcessPaymentRequestHandler)
			r.Get("/statistics", h.StatisticsHandler)
			r.Get("/wallets", h.WalletsHandler)
			r.Get("/subscriptions", h.SubscribersHandler)
			r.Put("/users/{userId}/type", h.UpdateUserTypeHandler)
		})
	})

	return r
}
