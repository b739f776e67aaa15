package http

import (
	"github.com/DRSN-tech/image-catalog/internal/cfg"
	"github.com/DRSN-tech/image-catalog/internal/usecase"
	"github.com/DRSN-tech/image-catalog/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	router.Use(middleware.RequestID, middleware.Recoverer)
	return &Router{router: router, logger: logger}
}

// InitProcessor регистрирует push-эндпоинт событий хранилища.
func (r *Router) InitProcessor(enrichmentUC usecase.EnrichmentUC) {
	r.router.Get("/health", health)

	r.router.Route("/api/v1", func(v1 chi.Router) {
		eventHandler := NewEventHandler(enrichmentUC, r.logger)
		registerEventRoutes(v1, eventHandler)
	})
}

// InitSearch регистрирует API поиска.
func (r *Router) InitSearch(searchUC usecase.SearchUC, cfg *cfg.SearchCfg) {
	r.router.Get("/health", health)

	searchHandler := NewSearchHandler(searchUC, cfg, r.logger)
	r.router.Post("/search", searchHandler.search)
}

func registerEventRoutes(router chi.Router, eventHandler *EventHandler) {
	router.Route("/events", func(ev chi.Router) {
		ev.Post("/", eventHandler.handleStorageEvent)
	})
}
