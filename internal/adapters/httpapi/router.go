package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const requestTimeout = 30 * time.Second

func NewRouter(h *Handler, auth *Authenticator, metrics *Metrics, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(metrics.Instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Post("/accounts", h.register)
		r.Post("/session", h.login)

		r.Route("/me", func(r chi.Router) {
			r.Get("/", h.me)
			r.Put("/profile", h.completeProfile)
			r.Post("/consume", h.consume)
			r.Post("/deletion", h.requestDeletion)
			r.Delete("/deletion", h.cancelDeletion)
			r.Post("/upgrade-requests", h.requestUpgrade)
		})

		r.Get("/settings/{kind}", h.getSettings)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/accounts/{id}/transition", h.transition)
			r.Post("/accounts/{id}/dormant", h.markDormant)
			r.Put("/accounts/{id}/plan", h.setPlan)
			r.Delete("/accounts/{id}", h.hardDelete)
			r.Get("/dormancy", h.dormancy)
			r.Get("/purgeable", h.purgeable)
			r.Get("/upgrade-requests", h.pendingUpgrades)
			r.Post("/upgrade-requests/{id}/complete", h.completeUpgrade)
			r.Put("/settings/{kind}", h.saveSettings)
		})
	})

	return r
}
