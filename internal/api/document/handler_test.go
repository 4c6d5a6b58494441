package document

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsecase struct {
	created *entity.CreateDocumentRequest
	updated *entity.UpdateDocumentRequest
	doc     *entity.Document
	err     error
}

func (f *fakeUsecase) Create(_ context.Context, req *entity.CreateDocumentRequest) (*entity.Document, error) {
	f.created = req
	return f.doc, f.err
}

func (f *fakeUsecase) Update(_ context.Context, req *entity.UpdateDocumentRequest) (*entity.Document, error) {
	f.updated = req
	return f.doc, f.err
}

func (f *fakeUsecase) Reprocess(context.Context, string) (*entity.Document, error) {
	return f.doc, f.err
}

func (f *fakeUsecase) Delete(context.Context, string) error {
	return f.err
}

func (f *fakeUsecase) Get(context.Context, string) (*entity.Document, error) {
	return f.doc, f.err
}

func (f *fakeUsecase) List(context.Context, entity.ListDocumentsRequest) ([]*entity.Document, error) {
	if f.doc == nil {
		return []*entity.Document{}, f.err
	}
	return []*entity.Document{f.doc}, f.err
}

func (f *fakeUsecase) ListChunks(context.Context, string) ([]*entity.Chunk, error) {
	return []*entity.Chunk{{ID: 1, DocumentID: "d1", Content: "text"}}, f.err
}

func (f *fakeUsecase) ReembedCorpus(context.Context) (*entity.ReembedReport, error) {
	return &entity.ReembedReport{Total: 1, Processed: 1}, f.err
}

func newRouter(uc DocumentUsecase) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(uc, config.FileUploadConfig{MaxFileSize: 1 << 20, MaxUploadSize: 2 << 20}))
	return r
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateDocument_JSON(t *testing.T) {
	uc := &fakeUsecase{doc: &entity.Document{ID: "d1", Title: "About", Status: entity.DocumentStatusProcessed}}
	h := newRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(`{"title":"About","content":"text","is_active":false}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, h, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, uc.created)
	assert.Equal(t, "About", uc.created.Title)
	require.NotNil(t, uc.created.IsActive)
	assert.False(t, *uc.created.IsActive)

	var doc entity.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "d1", doc.ID)
}

func TestCreateDocument_Multipart(t *testing.T) {
	uc := &fakeUsecase{doc: &entity.Document{ID: "d1"}}
	h := newRouter(uc)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("title", "Upload"))
	require.NoError(t, w.WriteField("is_active", "true"))
	part, err := w.CreateFormFile("file", "guide.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := do(t, h, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, uc.created)
	assert.Equal(t, "Upload", uc.created.Title)
	require.NotNil(t, uc.created.File)
	assert.Equal(t, "guide.txt", uc.created.File.Filename)
}

func TestCreateDocument_IngestionFailedIsAccepted(t *testing.T) {
	uc := &fakeUsecase{
		doc: &entity.Document{ID: "d1", Status: entity.DocumentStatusStale},
		err: fmt.Errorf("%w: %w", entity.ErrIngestionFailed, entity.ErrEmbeddingUnavailable),
	}
	h := newRouter(uc)

	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(`{"title":"About","content":"text"}`))
	rec := do(t, h, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp entity.IngestionPendingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entity.DocumentStatusStale, resp.Document.Status)
	assert.Equal(t, "POST /documents/d1/reprocess", resp.Retry)
}

func TestCreateDocument_InvalidJSON(t *testing.T) {
	h := newRouter(&fakeUsecase{})

	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(`{"title":`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(`{"unknown":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateDocument_PassesPathID(t *testing.T) {
	uc := &fakeUsecase{doc: &entity.Document{ID: "d1"}}
	h := newRouter(uc)

	rec := do(t, h, httptest.NewRequest(http.MethodPut, "/documents/d1", strings.NewReader(`{"title":"New"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, uc.updated)
	assert.Equal(t, "d1", uc.updated.ID)
	require.NotNil(t, uc.updated.Title)
	assert.Equal(t, "New", *uc.updated.Title)
	assert.Nil(t, uc.updated.Content)
}

func TestDocumentErrors(t *testing.T) {
	cases := []struct {
		name   string
		method string
		path   string
		err    error
		status int
	}{
		{"busy reprocess", http.MethodPost, "/documents/d1/reprocess", entity.ErrDocumentBusy, http.StatusConflict},
		{"missing document", http.MethodGet, "/documents/d1", entity.ErrDocumentNotFound, http.StatusNotFound},
		{"missing on delete", http.MethodDelete, "/documents/d1", entity.ErrDocumentNotFound, http.StatusNotFound},
		{"reembed busy", http.MethodPost, "/knowledge-base/reembed", entity.ErrDocumentBusy, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newRouter(&fakeUsecase{err: tc.err})
			rec := do(t, h, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestListChunks(t *testing.T) {
	h := newRouter(&fakeUsecase{})

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/documents/d1/chunks", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp entity.ListChunksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "d1", resp.DocumentID)
	assert.Len(t, resp.Chunks, 1)
}
