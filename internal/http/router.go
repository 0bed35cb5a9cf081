package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robertarktes/workshop-bookings/internal/idempotency"
	"github.com/robertarktes/workshop-bookings/internal/observability"
	"github.com/robertarktes/workshop-bookings/internal/rateLimit"
)

type RouterOptions struct {
	Logger      observability.Logger
	RateLimiter *rateLimit.RateLimiter
	Idempotency *idempotency.Idempotency
}

func SetupRouter(h *Handlers, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(opts.Logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)

	idemp := IdempotencyMiddleware(opts.Idempotency, opts.Logger)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", h.Healthz)
		r.Get("/readyz", h.Readyz)
		r.Get("/availability", h.GetAvailability)
		r.Get("/bookings/{token}", h.GetBooking)

		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(opts.RateLimiter))

			r.With(idemp).Post("/bookings", h.CreateBooking)
			r.With(idemp).Post("/locks", h.AcquireLock)
			r.Delete("/locks/{session_id}", h.ReleaseLock)

			r.Route("/admin", func(r chi.Router) {
				r.Patch("/bookings/{id}", h.UpdateBooking)
				r.Patch("/stores/{id}", h.UpdateStore)
				r.Post("/stores/{id}/blocks", h.CreateBlock)
				r.Delete("/blocks/{id}", h.DeleteBlock)
			})
		})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
