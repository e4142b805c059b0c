package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/guardkit/pkg/clientip"
	"github.com/dmitrymomot/guardkit/pkg/guard"
	"github.com/dmitrymomot/guardkit/pkg/httpserver"
	"github.com/dmitrymomot/guardkit/pkg/requestid"
)

// Router returns the HTTP API:
//
//	GET    /healthz              readiness of connected backends
//	GET    /metrics              Prometheus metrics
//	POST   /register             create a user
//	POST   /login                start a web session
//	POST   /logout               end the web session             (web)
//	GET    /me                   current user                    (web)
//	POST   /tokens               issue an access token           (web)
//	GET    /api/me               current user                    (api, basic)
//	GET    /api/tokens           list the user's tokens          (api, basic)
//	DELETE /api/tokens/current   revoke the calling token        (api)
//	DELETE /api/tokens/{id}      revoke a token by id            (api, basic, needs "tokens:delete")
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(clientip.Middleware(a.cfg.TrustedProxyHeaders...))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthHandler(a.log, 2*time.Second, a.infra.Checks()...))
	if a.cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{Registry: a.Registry}))
	}

	r.Group(func(r chi.Router) {
		r.Use(a.Sessions.Middleware)
		r.Post("/register", a.register)
		r.Post("/login", a.login)

		r.Group(func(r chi.Router) {
			r.Use(guard.Middleware(a.Guards, nil, GuardWeb))
			r.Post("/logout", a.logout)
			r.Get("/me", a.me)
			r.Post("/tokens", a.createToken)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(guard.Middleware(a.Guards, nil, GuardAPI, GuardBasic))
		r.Get("/me", a.me)
		r.Get("/tokens", a.listTokens)
		r.Delete("/tokens/current", a.revokeCurrentToken)
		r.With(a.requireAbility("tokens:delete")).Delete("/tokens/{id}", a.deleteToken)
	})

	return r
}
