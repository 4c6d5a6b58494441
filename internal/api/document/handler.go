package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/logger"
	"github.com/futig/rag-backend/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase DocumentUsecase
	cfg     config.FileUploadConfig
}

func NewHandler(usecase DocumentUsecase, cfg config.FileUploadConfig) *Handler {
	return &Handler{
		usecase: usecase,
		cfg:     cfg,
	}
}

// CreateDocument handles POST /documents (JSON body or multipart form with "file")
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "CreateDocument")

	var req *entity.CreateDocumentRequest
	if isMultipart(r) {
		if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
			response.Error(ctx, w, http.StatusBadRequest, "invalid form data or size too large", err)
			return
		}

		var err error
		if req, err = toCreateRequest(r.MultipartForm); err != nil {
			response.Error(ctx, w, http.StatusBadRequest, "invalid parameter", err)
			return
		}
	} else {
		req = &entity.CreateDocumentRequest{}
		if err := h.decodeJSON(w, r, req); err != nil {
			response.Error(ctx, w, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	ctxzap.Info(ctx, "creating document",
		zap.String("title", req.Title),
		zap.Bool("has_file", req.File != nil),
	)

	doc, err := h.usecase.Create(ctx, req)
	if err != nil {
		h.handleIngestionError(ctx, w, doc, err)
		return
	}

	ctxzap.Info(ctx, "document created successfully", zap.String("document_id", doc.ID))
	response.Created(w, doc)
}

// ListDocuments handles GET /documents
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListDocuments")
	query := r.URL.Query()

	skip, _ := strconv.Atoi(query.Get("skip"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	activeOnly, _ := strconv.ParseBool(query.Get("active_only"))

	docs, err := h.usecase.List(ctx, entity.ListDocumentsRequest{
		Skip:       skip,
		Limit:      limit,
		Category:   query.Get("category"),
		ActiveOnly: activeOnly,
	})
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	ctxzap.Debug(ctx, "documents listed", zap.Int("count", len(docs)))
	response.Success(w, &entity.ListDocumentsResponse{Documents: docs, Count: len(docs)})
}

// GetDocument handles GET /documents/{document_id}
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	ctx, id := h.documentContext(r, "GetDocument")

	doc, err := h.usecase.Get(ctx, id)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, doc)
}

// UpdateDocument handles PUT /documents/{document_id}
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	ctx, id := h.documentContext(r, "UpdateDocument")

	var req *entity.UpdateDocumentRequest
	if isMultipart(r) {
		if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
			response.Error(ctx, w, http.StatusBadRequest, "invalid form data or size too large", err)
			return
		}

		var err error
		if req, err = toUpdateRequest(id, r.MultipartForm); err != nil {
			response.Error(ctx, w, http.StatusBadRequest, "invalid parameter", err)
			return
		}
	} else {
		req = &entity.UpdateDocumentRequest{}
		if err := h.decodeJSON(w, r, req); err != nil {
			response.Error(ctx, w, http.StatusBadRequest, "invalid request body", err)
			return
		}
		req.ID = id
	}

	doc, err := h.usecase.Update(ctx, req)
	if err != nil {
		h.handleIngestionError(ctx, w, doc, err)
		return
	}

	ctxzap.Info(ctx, "document updated successfully")
	response.Success(w, doc)
}

// DeleteDocument handles DELETE /documents/{document_id}
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx, id := h.documentContext(r, "DeleteDocument")

	if err := h.usecase.Delete(ctx, id); err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, &entity.DeleteDocumentResponse{Status: "deleted"})
}

// ReprocessDocument handles POST /documents/{document_id}/reprocess
func (h *Handler) ReprocessDocument(w http.ResponseWriter, r *http.Request) {
	ctx, id := h.documentContext(r, "ReprocessDocument")

	doc, err := h.usecase.Reprocess(ctx, id)
	if err != nil {
		h.handleIngestionError(ctx, w, doc, err)
		return
	}

	response.Success(w, doc)
}

// ListChunks handles GET /documents/{document_id}/chunks
func (h *Handler) ListChunks(w http.ResponseWriter, r *http.Request) {
	ctx, id := h.documentContext(r, "ListChunks")

	chunks, err := h.usecase.ListChunks(ctx, id)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, &entity.ListChunksResponse{DocumentID: id, Chunks: chunks})
}

// ReembedCorpus handles POST /knowledge-base/reembed
func (h *Handler) ReembedCorpus(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ReembedCorpus")

	ctxzap.Info(ctx, "re-embedding the whole corpus")

	report, err := h.usecase.ReembedCorpus(ctx)
	if err != nil {
		response.UsecaseError(ctx, w, err)
		return
	}

	response.Success(w, report)
}

func (h *Handler) documentContext(r *http.Request, action string) (context.Context, string) {
	id := chi.URLParam(r, "document_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("document_id", id),
		zap.String("action", action),
	)
	return ctx, id
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidParameter, err)
	}
	return nil
}

// handleIngestionError answers 202 when the document was saved but indexing failed,
// so the client knows a reprocess is enough.
func (h *Handler) handleIngestionError(ctx context.Context, w http.ResponseWriter, doc *entity.Document, err error) {
	if doc == nil || !errors.Is(err, entity.ErrIngestionFailed) {
		response.UsecaseError(ctx, w, err)
		return
	}

	ctxzap.Warn(ctx, "document stored but not indexed", zap.String("document_id", doc.ID), zap.Error(err))

	message := "document saved but could not be indexed yet"
	if errors.Is(err, entity.ErrEmbeddingConfig) {
		message = "document saved but the embedding configuration does not match the knowledge base, re-embed required"
	}

	response.JSON(w, http.StatusAccepted, &entity.IngestionPendingResponse{
		Document: doc,
		Message:  message,
		Retry:    fmt.Sprintf("POST /documents/%s/reprocess", doc.ID),
	})
}
