package api

import (
	"context"
	"net/http"
	"time"

	chatapi "github.com/futig/rag-backend/internal/api/chat"
	"github.com/futig/rag-backend/internal/api/docs"
	documentapi "github.com/futig/rag-backend/internal/api/document"
	"github.com/futig/rag-backend/internal/api/middleware"
	settingsapi "github.com/futig/rag-backend/internal/api/settings"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// HealthChecker reports the state of the storage layer
type HealthChecker interface {
	Ping(ctx context.Context) error
	Strategy() string
	Dimension() int
}

type Handlers struct {
	Document *documentapi.Handler
	Chat     *chatapi.Handler
	Settings *settingsapi.Handler
}

// SetupRouter creates and configures the HTTP router
func SetupRouter(handlers Handlers, health HealthChecker, requestTimeout time.Duration, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS)
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Get("/health", healthHandler(health))

	docs.RegisterRoutes(r)

	documentapi.RegisterRoutes(r, handlers.Document)
	chatapi.RegisterRoutes(r, handlers.Chat)
	settingsapi.RegisterRoutes(r, handlers.Settings)

	return r
}

func healthHandler(health HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := &entity.HealthResponse{
			Status:         "healthy",
			VectorSearch:   health.Strategy(),
			EmbeddingDim:   health.Dimension(),
			DatabaseStatus: "up",
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := health.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.DatabaseStatus = "down"
			response.JSON(w, http.StatusServiceUnavailable, resp)
			return
		}

		response.Success(w, resp)
	}
}
