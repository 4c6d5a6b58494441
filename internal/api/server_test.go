package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chatapi "github.com/futig/rag-backend/internal/api/chat"
	documentapi "github.com/futig/rag-backend/internal/api/document"
	settingsapi "github.com/futig/rag-backend/internal/api/settings"
	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/formatter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeHealth struct {
	err error
}

func (f fakeHealth) Ping(context.Context) error { return f.err }
func (f fakeHealth) Strategy() string           { return "exact" }
func (f fakeHealth) Dimension() int             { return 384 }

func newServer(health HealthChecker) http.Handler {
	return SetupRouter(Handlers{
		Document: documentapi.NewHandler(nil, config.FileUploadConfig{}),
		Chat:     chatapi.NewHandler(nil, formatter.NewFactory()),
		Settings: settingsapi.NewHandler(nil),
	}, health, time.Second, zap.NewNop())
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(fakeHealth{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp entity.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "exact", resp.VectorSearch)
	assert.Equal(t, 384, resp.EmbeddingDim)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth_DatabaseDown(t *testing.T) {
	rec := httptest.NewRecorder()
	newServer(fakeHealth{err: errors.New("refused")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"down"`)
}
