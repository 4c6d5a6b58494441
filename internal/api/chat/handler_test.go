package chat

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/formatter"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsecase struct {
	got   entity.ChatRequest
	resp  *entity.ChatResponse
	turns []*entity.ChatTurn
	err   error
}

func (f *fakeUsecase) Chat(_ context.Context, req entity.ChatRequest) (*entity.ChatResponse, error) {
	f.got = req
	return f.resp, f.err
}

func (f *fakeUsecase) History(context.Context, string) ([]*entity.ChatTurn, error) {
	return f.turns, f.err
}

func newRouter(uc ChatUsecase) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(uc, formatter.NewFactory()))
	return r
}

func TestChat_ResponseShape(t *testing.T) {
	uc := &fakeUsecase{resp: &entity.ChatResponse{
		SessionID:     "s1",
		ReplyText:     "Founded in 1975.",
		Sources:       []entity.Source{{DocumentTitle: "About", Score: 0.91}},
		IsRAGEnhanced: true,
		Provider:      "hosted",
		ChunkIDs:      []int64{4},
	}}

	rec := httptest.NewRecorder()
	newRouter(uc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"session_id":"s1","message":"When?"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "When?", uc.got.Message)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Founded in 1975.", body["reply_text"])
	assert.Equal(t, true, body["is_rag_enhanced"])
	assert.Len(t, body["sources"], 1)
	assert.NotContains(t, body, "Provider")
	assert.NotContains(t, body, "ChunkIDs")
}

func TestChat_ServiceUnavailable(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&fakeUsecase{err: entity.ErrChatServiceUnavailable}).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHistory_Formats(t *testing.T) {
	uc := &fakeUsecase{turns: []*entity.ChatTurn{
		{ID: "1", SessionID: "s1", Sender: entity.SenderUser, Message: "hi", Status: entity.ChatTurnStatusOK, CreatedAt: time.Now()},
	}}
	h := newRouter(uc)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/s1/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var history entity.ChatHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history.Turns, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/s1/history?format=markdown", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "chat-s1.md")
	assert.Contains(t, rec.Body.String(), "hi")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/s1/history?format=html", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory_DownloadNameIsQuoted(t *testing.T) {
	sessionID := `a"b;x=1`
	uc := &fakeUsecase{turns: []*entity.ChatTurn{
		{ID: "1", SessionID: sessionID, Sender: entity.SenderUser, Message: "hi", Status: entity.ChatTurnStatusOK, CreatedAt: time.Now()},
	}}

	rec := httptest.NewRecorder()
	newRouter(uc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/chat/"+sessionID+"/history?format=markdown", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, "chat-"+sessionID+".md", params["filename"])
	assert.NotContains(t, params, "x")
}

func TestAttachment(t *testing.T) {
	_, params, err := mime.ParseMediaType(attachment("chat-ünïcode.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "chat-ünïcode.pdf", params["filename"])
}

func TestHistory_UnknownSession(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&fakeUsecase{err: entity.ErrSessionNotFound}).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/chat/nobody/history", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
