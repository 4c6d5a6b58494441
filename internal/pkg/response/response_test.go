package response

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsecaseError_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("get document: %w", entity.ErrDocumentNotFound), http.StatusNotFound},
		{entity.ErrSessionNotFound, http.StatusNotFound},
		{entity.ErrDocumentBusy, http.StatusConflict},
		{fmt.Errorf("%w: title", entity.ErrMissingField), http.StatusBadRequest},
		{entity.ErrInvalidExtension, http.StatusBadRequest},
		{entity.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{entity.ErrEmbeddingConfig, http.StatusConflict},
		{fmt.Errorf("%w: hosted: status 503", entity.ErrChatServiceUnavailable), http.StatusServiceUnavailable},
		{entity.ErrRetrievalUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			UsecaseError(context.Background(), rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestUsecaseError_DoesNotLeakDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	UsecaseError(context.Background(), rec,
		fmt.Errorf("%w: hosted: dial tcp 10.0.0.5:443: connection refused", entity.ErrChatServiceUnavailable))

	var body entity.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Service Unavailable", body.Error)
	assert.NotContains(t, body.Message, "10.0.0.5")
	assert.NotContains(t, body.Message, "hosted")
}
