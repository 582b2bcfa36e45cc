package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coldwatch/coldwatch-server/internal/ratelimit"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check and prometheus scrape
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)
	r.Method("GET", "/metrics", promhttp.Handler())

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Use(s.rateLimit(ratelimit.ClassMutation))
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/me", s.HandleMe)
		})
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		// Sites
		r.Route("/sites", func(r chi.Router) {
			r.With(s.rateLimit(ratelimit.ClassRead)).Get("/", s.HandleListSites)
			r.With(s.rateLimit(ratelimit.ClassMutation)).Post("/", s.HandleCreateSite)
			r.Route("/{id}", func(r chi.Router) {
				r.With(s.rateLimit(ratelimit.ClassRead)).Get("/", s.HandleGetSite)
				r.With(s.rateLimit(ratelimit.ClassMutation)).Put("/", s.HandleUpdateSite)
				r.With(s.rateLimit(ratelimit.ClassMutation)).Delete("/", s.HandleDeleteSite)
				r.With(s.rateLimit(ratelimit.ClassRead)).Get("/environments", s.HandleListSiteEnvironments)
				r.With(s.rateLimit(ratelimit.ClassMutation)).Post("/environments", s.HandleCreateEnvironment)
			})
		})

		// Environments
		r.Route("/environments/{id}", func(r chi.Router) {
			r.With(s.rateLimit(ratelimit.ClassRead)).Get("/", s.HandleGetEnvironment)
			r.With(s.rateLimit(ratelimit.ClassMutation)).Put("/", s.HandleUpdateEnvironment)
			r.With(s.rateLimit(ratelimit.ClassMutation)).Delete("/", s.HandleDeleteEnvironment)
			r.With(s.rateLimit(ratelimit.ClassMutation)).Put("/thresholds", s.HandleUpdateThresholds)
			r.With(s.rateLimit(ratelimit.ClassRead)).Get("/sensors", s.HandleListEnvironmentSensors)
			r.With(s.rateLimit(ratelimit.ClassMutation)).Post("/sensors", s.HandleCreateSensor)
		})

		// Sensors
		r.Route("/sensors/{id}", func(r chi.Router) {
			r.With(s.rateLimit(ratelimit.ClassRead)).Get("/", s.HandleGetSensor)
			r.With(s.rateLimit(ratelimit.ClassMutation)).Put("/", s.HandleUpdateSensor)
			r.With(s.rateLimit(ratelimit.ClassMutation)).Delete("/", s.HandleDeleteSensor)
			r.With(s.rateLimit(ratelimit.ClassChart)).Get("/readings", s.HandleListSensorReadings)
		})

		// Dashboard overview
		r.With(s.rateLimit(ratelimit.ClassRead)).Get("/overview", s.HandleOverview)

		// Alerts
		r.Route("/alerts", func(r chi.Router) {
			r.With(s.rateLimit(ratelimit.ClassRead)).Get("/", s.HandleListAlerts)
			r.With(s.rateLimit(ratelimit.ClassMutation)).Post("/{id}/acknowledge", s.HandleAcknowledgeAlert)
			r.With(s.rateLimit(ratelimit.ClassMutation)).Post("/{id}/resolve", s.HandleResolveAlert)
		})

		// Users within the caller's organization
		r.Route("/users", func(r chi.Router) {
			r.With(s.rateLimit(ratelimit.ClassRead)).Get("/", s.HandleListUsers)
			r.With(s.rateLimit(ratelimit.ClassMutation)).Post("/invite", s.HandleInviteUser)
		})

		// Platform admin
		r.Route("/admin", func(r chi.Router) {
			r.Route("/organizations", func(r chi.Router) {
				r.With(s.rateLimit(ratelimit.ClassRead)).Get("/", s.HandleListOrganizations)
				r.With(s.rateLimit(ratelimit.ClassMutation)).Post("/", s.HandleCreateOrganization)
				r.Route("/{id}", func(r chi.Router) {
					r.With(s.rateLimit(ratelimit.ClassRead)).Get("/", s.HandleGetOrganization)
					r.With(s.rateLimit(ratelimit.ClassMutation)).Put("/", s.HandleUpdateOrganization)
					r.With(s.rateLimit(ratelimit.ClassMutation)).Delete("/", s.HandleDeleteOrganization)
				})
			})
			r.With(s.rateLimit(ratelimit.ClassRead)).Get("/sites", s.HandleAdminListSites)
			r.With(s.rateLimit(ratelimit.ClassRead)).Get("/sensors", s.HandleAdminListSensors)
			r.With(s.rateLimit(ratelimit.ClassRead)).Get("/search", s.HandleAdminSearch)
			r.With(s.rateLimit(ratelimit.ClassRead)).Get("/stats", s.HandleAdminStats)
			r.With(s.rateLimit(ratelimit.ClassRead)).Get("/activity", s.HandleAdminActivity)
		})
	})
}
