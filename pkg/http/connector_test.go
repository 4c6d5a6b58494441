package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConnector(opts ...HttpOpts) *Connector {
	return NewConnector(&ConnectorConfig{Logger: zap.NewNop()}, opts...)
}

func TestDoRequest_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"answer":"ok"}`))
	}))
	defer srv.Close()

	var resp struct {
		Answer string `json:"answer"`
	}
	err := newTestConnector(WithRequestLogging()).DoRequest(context.Background(), http.MethodPost, srv.URL, map[string]string{"q": "x"}, &resp, WithBearerToken("secret"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Answer)
}

func TestDoRequest_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`slow down`))
	}))
	defer srv.Close()

	err := newTestConnector().DoRequest(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.True(t, IsTransient(err))
	assert.True(t, IsRateLimited(err))
}

func TestDoRequest_DecodeErrorIsNotTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var resp map[string]any
	err := newTestConnector().DoRequest(context.Background(), http.MethodGet, srv.URL, nil, &resp)
	require.Error(t, err)

	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.False(t, IsTransient(err))
}

func TestDoRequest_TimeoutIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	err := newTestConnector(WithRequestTimeout(20*time.Millisecond)).DoRequest(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(&HTTPError{StatusCode: http.StatusBadRequest}))
	assert.False(t, IsTransient(&HTTPError{StatusCode: http.StatusUnauthorized}))
	assert.True(t, IsTransient(&HTTPError{StatusCode: http.StatusBadGateway}))
	assert.True(t, IsTransient(&NetworkError{Err: errors.New("connection refused")}))
	assert.False(t, IsTransient(errors.New("plain")))
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://host/v1/embeddings", JoinURL("http://host/v1/", "/embeddings"))
	assert.Equal(t, "http://host/api/chat", JoinURL("http://host", "api/chat"))
}

func TestRedactHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Accept", "application/json")

	redacted := redactHeaders(h)
	assert.Equal(t, "[REDACTED]", redacted.Get("Authorization"))
	assert.Equal(t, "Bearer secret", h.Get("Authorization"))
}
