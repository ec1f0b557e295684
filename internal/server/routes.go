package server

import (
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"

	"github.com/ecoquest/ecoquest/internal/handler/health"
)

func addRoutes(r chi.Router, opts Options) {
	svc, logger, broker := opts.Quest, opts.Logger, opts.Broker

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("EcoQuest API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, opts.HealthChecks).Routes())
	r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/themes", handleThemes(opts.Catalog))

		r.Route("/hunts", func(r chi.Router) {
			r.Post("/", handleCreateHunt(svc, logger))
			r.Get("/active/{userId}", handleActiveHunt(svc, logger))
			r.Get("/user/{userId}", handleUserHunts(svc, logger))

			r.Route("/{huntId}", func(r chi.Router) {
				r.Get("/", handleGetHunt(svc, logger))
				r.Post("/pause", handlePauseHunt(svc, logger))
				r.Post("/resume", handleResumeHunt(svc, logger))
				r.Post("/stops/{stopId}/complete", handleCompleteStop(svc, logger))
				r.Post("/stops/{stopId}/hint", handleHint(svc, logger))
				r.Get("/events", handleEvents(svc, broker, logger))
				r.Get("/ws", handleHuntWS(svc, broker, logger))
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/demo", handleCreateDemoUser(svc, logger))
			r.Get("/{userId}/profile", handleProfile(svc, logger))
			r.Get("/{userId}/achievements", handleAchievements(svc, logger))
			r.Put("/{userId}/location", handleUpdateLocation(svc, logger))
		})
	})

	if opts.SPADir != "" {
		if info, err := os.Stat(opts.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", opts.SPADir)
			r.NotFound(handleSPA(opts.SPADir))
		}
	}
}
