// Package document manages the knowledge base documents and their chunk lifecycle.
package document

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/inflight"
	"github.com/futig/rag-backend/internal/pkg/validator"
	"github.com/futig/rag-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	corpusLockKey = "corpus"
)

// DocumentUsecase keeps every document's chunks in step with its content.
type DocumentUsecase struct {
	documentRepo repository.DocumentRepository
	chunkRepo    repository.ChunkRepository
	settings     SettingsLoader
	embedder     Embedder
	extractor    TextExtractor
	chunker      Chunker
	validator    *validator.Validator
	inflight     *inflight.Guard
	storageDir   string
	maxFileSize  int64
}

func NewUsecase(
	documentRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	settings SettingsLoader,
	embedder Embedder,
	extractor TextExtractor,
	chunker Chunker,
	validator *validator.Validator,
	guard *inflight.Guard,
	fileCfg config.FileUploadConfig,
) *DocumentUsecase {
	return &DocumentUsecase{
		documentRepo: documentRepo,
		chunkRepo:    chunkRepo,
		settings:     settings,
		embedder:     embedder,
		extractor:    extractor,
		chunker:      chunker,
		validator:    validator,
		inflight:     guard,
		storageDir:   fileCfg.StorageDir,
		maxFileSize:  fileCfg.MaxFileSize,
	}
}

// Create stores a document and ingests it before returning. On ingestion failure
// the stored document (status STALE) is returned together with ErrIngestionFailed.
func (uc *DocumentUsecase) Create(ctx context.Context, req *entity.CreateDocumentRequest) (*entity.Document, error) {
	if err := uc.validator.ValidateCreateDocument(req); err != nil {
		return nil, err
	}

	doc := entity.Document{
		ID:       uuid.New().String(),
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		Category: strings.TrimSpace(req.Category),
		IsActive: true,
		Status:   entity.DocumentStatusDraft,
	}
	if req.IsActive != nil {
		doc.IsActive = *req.IsActive
	}

	release, ok := uc.inflight.TryAcquire(doc.ID)
	if !ok {
		return nil, entity.ErrDocumentBusy
	}
	defer release()

	if req.File != nil {
		file, err := uc.saveAndExtract(ctx, doc.ID, req.File)
		if err != nil {
			return nil, err
		}
		doc.Content = file.Text
		doc.SourcePath = stringPtr(file.Path)
		doc.SourceName = stringPtr(file.Name)
	}

	created, err := uc.documentRepo.Create(ctx, doc)
	if err != nil {
		uc.removeFile(ctx, doc.SourcePath)
		return nil, fmt.Errorf("create document: %w", err)
	}

	ctxzap.Info(ctx, "document created",
		zap.String("document_id", created.ID),
		zap.String("title", created.Title),
	)

	return uc.ingest(ctx, created)
}

// Update applies the changed fields. A content change re-chunks and re-embeds the
// document before returning.
func (uc *DocumentUsecase) Update(ctx context.Context, req *entity.UpdateDocumentRequest) (*entity.Document, error) {
	if err := uc.validator.ValidateUpdateDocument(req); err != nil {
		return nil, err
	}

	release, ok := uc.inflight.TryAcquire(req.ID)
	if !ok {
		return nil, entity.ErrDocumentBusy
	}
	defer release()

	existing, err := uc.documentRepo.Get(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	updated := *existing
	if req.Title != nil {
		updated.Title = strings.TrimSpace(*req.Title)
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	if req.Content != nil {
		updated.Content = *req.Content
	}

	var replacedFile *string
	if req.File != nil {
		file, err := uc.saveAndExtract(ctx, existing.ID, req.File)
		if err != nil {
			return nil, err
		}
		updated.Content = file.Text
		updated.SourcePath = stringPtr(file.Path)
		updated.SourceName = stringPtr(file.Name)
		if existing.SourcePath != nil && *existing.SourcePath != file.Path {
			replacedFile = existing.SourcePath
		}
	}

	saved, err := uc.documentRepo.Update(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	uc.removeFile(ctx, replacedFile)

	contentChanged := saved.Content != existing.Content
	ctxzap.Info(ctx, "document updated",
		zap.String("document_id", saved.ID),
		zap.Bool("content_changed", contentChanged),
	)

	if !contentChanged {
		return saved, nil
	}

	return uc.ingest(ctx, saved)
}

// Reprocess re-chunks and re-embeds a document even if its content is unchanged.
func (uc *DocumentUsecase) Reprocess(ctx context.Context, id string) (*entity.Document, error) {
	release, ok := uc.inflight.TryAcquire(id)
	if !ok {
		return nil, entity.ErrDocumentBusy
	}
	defer release()

	doc, err := uc.documentRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	return uc.ingest(ctx, doc)
}

// Delete removes the document, its chunks and the stored original file.
func (uc *DocumentUsecase) Delete(ctx context.Context, id string) error {
	release, ok := uc.inflight.TryAcquire(id)
	if !ok {
		return entity.ErrDocumentBusy
	}
	defer release()

	doc, err := uc.documentRepo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	if err := uc.documentRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	uc.removeFile(ctx, doc.SourcePath)

	ctxzap.Info(ctx, "document deleted", zap.String("document_id", id))
	return nil
}

func (uc *DocumentUsecase) Get(ctx context.Context, id string) (*entity.Document, error) {
	doc, err := uc.documentRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (uc *DocumentUsecase) List(ctx context.Context, req entity.ListDocumentsRequest) ([]*entity.Document, error) {
	if req.Skip < 0 {
		req.Skip = 0
	}
	if req.Limit <= 0 {
		req.Limit = defaultListLimit
	}
	if req.Limit > maxListLimit {
		req.Limit = maxListLimit
	}

	docs, err := uc.documentRepo.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (uc *DocumentUsecase) ListChunks(ctx context.Context, id string) ([]*entity.Chunk, error) {
	if _, err := uc.documentRepo.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	chunks, err := uc.chunkRepo.ListByDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return chunks, nil
}

// ReembedCorpus drops every stored vector and re-ingests all documents with the
// current embedding settings. Required after a provider, model or dimension change.
func (uc *DocumentUsecase) ReembedCorpus(ctx context.Context) (*entity.ReembedReport, error) {
	release, ok := uc.inflight.TryAcquire(corpusLockKey)
	if !ok {
		return nil, entity.ErrDocumentBusy
	}
	defer release()

	if err := uc.documentRepo.MarkAllStale(ctx); err != nil {
		return nil, fmt.Errorf("mark documents stale: %w", err)
	}
	if err := uc.chunkRepo.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("delete chunks: %w", err)
	}

	ids, err := uc.documentRepo.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	report := &entity.ReembedReport{Total: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if err := uc.reembedOne(ctx, id); err != nil {
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, id)
			continue
		}
		report.Processed++
	}

	ctxzap.Info(ctx, "corpus re-embedded",
		zap.Int("total", report.Total),
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
	)

	return report, nil
}

func (uc *DocumentUsecase) reembedOne(ctx context.Context, id string) error {
	release, ok := uc.inflight.TryAcquire(id)
	if !ok {
		ctxzap.Warn(ctx, "document busy, skipped during re-embed", zap.String("document_id", id))
		return entity.ErrDocumentBusy
	}
	defer release()

	doc, err := uc.documentRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	_, err = uc.ingest(ctx, doc)
	return err
}

// ingest replaces the document's chunks. The caller must hold the document's in-flight marker.
// The document stays STALE unless every step succeeds.
func (uc *DocumentUsecase) ingest(ctx context.Context, doc *entity.Document) (*entity.Document, error) {
	if err := uc.documentRepo.SetStatus(ctx, doc.ID, entity.DocumentStatusStale); err != nil {
		return nil, fmt.Errorf("mark document stale: %w", err)
	}

	if err := uc.embedAndStore(ctx, doc); err != nil {
		ctxzap.Error(ctx, "document ingestion failed",
			zap.String("document_id", doc.ID),
			zap.Error(err),
		)

		current, getErr := uc.documentRepo.Get(ctx, doc.ID)
		if getErr != nil {
			current = doc
			current.Status = entity.DocumentStatusStale
		}
		return current, fmt.Errorf("%w: %w", entity.ErrIngestionFailed, err)
	}

	if err := uc.documentRepo.SetStatus(ctx, doc.ID, entity.DocumentStatusProcessed); err != nil {
		return nil, fmt.Errorf("mark document processed: %w", err)
	}

	processed, err := uc.documentRepo.Get(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	ctxzap.Info(ctx, "document processed",
		zap.String("document_id", processed.ID),
		zap.Int("chunks", processed.ChunkCount),
	)

	return processed, nil
}

func (uc *DocumentUsecase) embedAndStore(ctx context.Context, doc *entity.Document) error {
	settings, err := uc.settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	chunks := uc.chunker.Chunk(doc.Content)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := uc.embedder.EmbedAll(ctx, settings, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return errors.New("embedding count does not match chunk count")
	}

	rows := make([]entity.ChunkVector, len(chunks))
	for i, c := range chunks {
		rows[i] = entity.ChunkVector{
			Index:      c.Index,
			Text:       c.Text,
			TokenCount: c.TokenCount,
			Vector:     vectors[i],
			Provider:   settings.EmbeddingProvider,
			Model:      settings.Embedding.Model,
		}
	}

	return uc.chunkRepo.ReplaceChunks(ctx, doc.ID, rows)
}
