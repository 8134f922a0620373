package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/barazo-forum/barazo-trust/internal/adapters/security"
	"github.com/barazo-forum/barazo-trust/internal/application"
)

// Handler is the HTTP adapter entrypoint for trust use-cases.
// Keeping only application dependency here preserves clean adapter boundaries.
type Handler struct {
	service  *application.Service
	verifier *security.TokenVerifier
}

func NewHandler(service *application.Service, verifier *security.TokenVerifier) *Handler {
	return &Handler{service: service, verifier: verifier}
}

// NewRouter registers trust HTTP routes and the middleware stack.
// Centralizing routes here keeps auth and error behavior consistent
// across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/trust/v1", func(r chi.Router) {
		r.Use(handler.authMiddleware)

		// Content-path hooks, called by the post/reply services.
		r.Post("/interactions/reply", handler.recordReply)
		r.Post("/interactions/reaction", handler.recordReaction)
		r.Post("/interactions/co-participation", handler.recordCoParticipation)
		r.Post("/rate-limit/check", handler.checkRateLimit)
		r.Post("/content/check", handler.checkContent)

		r.Get("/scores/{did}", handler.getScore)

		// Operator surface.
		r.Post("/graph/compute", handler.computeGraph)
		r.Get("/graph/status", handler.graphStatus)

		r.Get("/seeds", handler.listSeeds)
		r.Post("/seeds", handler.addSeed)
		r.Delete("/seeds/{did}", handler.removeSeed)

		r.Get("/pds-factors", handler.listPdsFactors)
		r.Put("/pds-factors", handler.upsertPdsFactor)

		r.Get("/clusters", handler.listClusters)
		r.Get("/clusters/{cluster_id}", handler.getCluster)
		r.Post("/clusters/{cluster_id}/status", handler.transitionCluster)

		r.Get("/flags", handler.listFlags)
		r.Post("/flags/{flag_id}/status", handler.resolveFlag)

		r.Get("/moderation-queue", handler.listModerationQueue)
		r.Delete("/moderation-queue/{entry_id}", handler.releaseModerationEntry)

		r.Post("/bans/propagation-check", handler.checkBanPropagation)
	})

	return r
}
