package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/andresdiegolanda/ai-context-orchestrator/internal/handlers"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/indexer"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/retriever"
	"github.com/andresdiegolanda/ai-context-orchestrator/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Retriever *retriever.Retriever
	Indexer   *indexer.Indexer
	Sources   storage.SourceStore
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	queryHandler := handlers.NewQueryHandler(deps.Retriever)
	sourcesHandler := handlers.NewSourcesHandler(deps.Sources)
	reindexHandler := handlers.NewReindexHandler(deps.Indexer)
	healthHandler := handlers.NewHealthHandler(deps.Indexer.Health())

	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Method(http.MethodPost, "/query", queryHandler)
			r.Method(http.MethodGet, "/sources", sourcesHandler)
			r.Method(http.MethodPost, "/reindex", reindexHandler)
		})
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
