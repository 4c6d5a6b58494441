package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/futig/rag-backend/internal/entity"
	pkghttp "github.com/futig/rag-backend/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConnector() *pkghttp.Connector {
	return pkghttp.NewConnector(&pkghttp.ConnectorConfig{Logger: zap.NewNop()})
}

var testMessages = []entity.ChatMessage{
	{Role: entity.RoleSystem, Content: "Be brief."},
	{Role: entity.RoleUser, Content: "When was the school founded?"},
}

func TestHostedBackend_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk", r.Header.Get("Authorization"))

		var req entity.HostedChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt", req.Model)
		assert.Equal(t, 128, req.MaxTokens)
		assert.Len(t, req.Messages, 2)

		w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":" In 1975. "}}]}`))
	}))
	defer srv.Close()

	answer, err := NewHostedBackend(testConnector()).Complete(context.Background(), testMessages, entity.ProviderConfig{
		BaseURL:   srv.URL + "/v1/",
		APIKey:    "sk",
		Model:     "gpt",
		MaxTokens: 128,
	})

	require.NoError(t, err)
	assert.Equal(t, "In 1975.", answer)
}

func TestHostedBackend_EmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewHostedBackend(testConnector()).Complete(context.Background(), testMessages, entity.ProviderConfig{BaseURL: srv.URL})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestHostedBackend_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewHostedBackend(testConnector()).Complete(context.Background(), testMessages, entity.ProviderConfig{BaseURL: srv.URL})
	require.Error(t, err)
	assert.True(t, pkghttp.IsRateLimited(err))
}

func TestSelfHostedBackend_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req entity.SelfHostedChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "llama", req.Model)
		assert.Equal(t, 64, req.Options.NumPredict)

		w.Write([]byte(`{"model":"llama","message":{"role":"assistant","content":"1975"},"done":true}`))
	}))
	defer srv.Close()

	answer, err := NewSelfHostedBackend(testConnector()).Complete(context.Background(), testMessages, entity.ProviderConfig{
		BaseURL:   srv.URL,
		Model:     "llama",
		MaxTokens: 64,
	})

	require.NoError(t, err)
	assert.Equal(t, "1975", answer)
}

func TestSelfHostedBackend_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	_, err := NewSelfHostedBackend(testConnector()).Complete(context.Background(), testMessages, entity.ProviderConfig{BaseURL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestMockBackend(t *testing.T) {
	m := NewMockBackend(entity.ProviderHosted)

	grounded := []entity.ChatMessage{
		{Role: entity.RoleSystem, Content: "Answer from context.\n\n[Source 1: About]\nThe school was founded in 1975.\n"},
		{Role: entity.RoleUser, Content: "When?"},
	}
	answer, err := m.Complete(context.Background(), grounded, entity.ProviderConfig{})
	require.NoError(t, err)
	assert.Contains(t, answer, "1975")

	answer, err = m.Complete(context.Background(), testMessages, entity.ProviderConfig{})
	require.NoError(t, err)
	assert.Contains(t, answer, "When was the school founded?")
}
