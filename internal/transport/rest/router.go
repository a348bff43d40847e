package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/airealtor/recall/internal/observability"
	"github.com/airealtor/recall/internal/service/memory"
)

// NewRouter wires the CRM-facing API: memory operations under /api/v1 plus
// the liveness, readiness and metrics endpoints. A non-nil mcpHandler is
// mounted at /mcp so HTTP-based assistants reach the same tool set.
func NewRouter(svc *memory.Memory, collector *observability.Collector, corsOrigins []string, mcpHandler http.Handler) http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(RequestLogger)
	router.Use(Metrics(collector))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID", "Mcp-Session-Id"},
		ExposedHeaders: []string{"X-Request-ID", "Mcp-Session-Id"},
		MaxAge:         300,
	}))

	router.Get("/health", healthCheck)
	router.Get("/ready", readinessCheck)
	router.Method(http.MethodGet, "/metrics", collector.Handler())

	if mcpHandler != nil {
		router.Handle("/mcp", mcpHandler)
	}

	h := NewMemoryHandler(svc, collector)
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/memories/links", h.LinkMemories)
		r.Post("/memories/{type}", h.CreateMemory)
		r.Get("/sessions/{sessionID}/summary", h.GetSummary)
		r.Get("/sessions/{sessionID}/memories/{nodeID}", h.GetMemory)
		r.Delete("/sessions/{sessionID}/memories/{nodeID}", h.ForgetMemory)
	})

	return router
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func readinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
