package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-match-analysis/internal/config"
	"telegram-match-analysis/internal/usecase"
)

// SignatureHeader carries the webhook HMAC over the raw request body.
const SignatureHeader = "X-Payment-Signature"

type Server struct {
	accounts usecase.AccountUseCase
	payments usecase.PaymentUseCase
	settings usecase.SettingsUseCase
	invites  usecase.InviteUseCase
	stats    usecase.StatsUseCase

	auth *AuthManager
	cfg  *config.WebConfig
	log  *zerolog.Logger
}

func NewServer(
	accounts usecase.AccountUseCase,
	payments usecase.PaymentUseCase,
	settings usecase.SettingsUseCase,
	invites usecase.InviteUseCase,
	stats usecase.StatsUseCase,
	cfg *config.WebConfig,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		accounts: accounts,
		payments: payments,
		settings: settings,
		invites:  invites,
		stats:    stats,
		auth:     NewAuthManager(cfg.JWTSecret, cfg.Origin != "", cfg.SessionTTL),
		cfg:      cfg,
		log:      logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", s.loginHandler())
		r.Post("/logout", s.logoutHandler())

		r.Get("/packages", s.packagesHandler())
		r.Post("/checkout/credits", s.checkoutCreditsHandler())
		r.Post("/checkout/premium", s.checkoutPremiumHandler())
		r.Post("/webhook/payments", s.webhookHandler())

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Get("/stats", s.statsHandler())
			r.Get("/users", s.usersListHandler())
			r.Get("/users/{tgID}", s.userGetHandler())
			r.Put("/users/{tgID}", s.userUpdateHandler())
			r.Post("/users/{tgID}/ban", s.userBanHandler(true))
			r.Post("/users/{tgID}/unban", s.userBanHandler(false))
			r.Post("/users/{tgID}/credits", s.userCreditsHandler())
			r.Get("/payments", s.paymentsListHandler())
			r.Get("/settings", s.settingsGetHandler())
			r.Put("/settings", s.settingsUpdateHandler())
			r.Get("/invites", s.invitesListHandler())
			r.Post("/invites", s.invitesCreateHandler())
			r.Delete("/invites/{code}", s.invitesDeleteHandler())
		})
	})
	return r
}

// requireAdmin rejects requests without a valid admin session.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cors admits the configured dashboard origin. With no origin configured the
// API is same-origin only.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.cfg.Origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
