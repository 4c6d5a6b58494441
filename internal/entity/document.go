package entity

import (
	"mime/multipart"
	"time"
)

// DocumentStatus is the ingestion lifecycle state of a document.
// Visibility (IsActive) is tracked separately and is not a lifecycle state.
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "DRAFT"     // Stored, never chunked
	DocumentStatusProcessed DocumentStatus = "PROCESSED" // Chunks and vectors exist for current content
	DocumentStatusStale     DocumentStatus = "STALE"     // Content changed or ingestion failed, needs reprocessing
)

// IsValid checks if the status is valid
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusProcessed, DocumentStatusStale:
		return true
	}
	return false
}

type Document struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	SourcePath  *string        `json:"-"`
	SourceName  *string        `json:"source_name,omitempty"`
	Category    string         `json:"category"`
	IsActive    bool           `json:"is_active"`
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsProcessed reports whether the document's current content is searchable
func (d *Document) IsProcessed() bool {
	return d.Status == DocumentStatusProcessed
}

// TextChunk is a chunker output segment before it is embedded
type TextChunk struct {
	Index      int    `json:"index"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// Chunk is a stored, embedded segment of a document
type Chunk struct {
	ID                int64     `json:"id"`
	DocumentID        string    `json:"document_id"`
	Index             int       `json:"chunk_index"`
	Content           string    `json:"content"`
	TokenCount        int       `json:"token_count"`
	Embedding         []float32 `json:"-"`
	EmbeddingProvider string    `json:"embedding_provider"`
	EmbeddingModel    string    `json:"embedding_model"`
	CreatedAt         time.Time `json:"created_at"`
}

// CreateDocumentRequest is the ingestion input, either inline content or an uploaded file
type CreateDocumentRequest struct {
	Title    string                `json:"title"`
	Content  string                `json:"content"`
	Category string                `json:"category"`
	IsActive *bool                 `json:"is_active"`
	File     *multipart.FileHeader `json:"-"`
}

// UpdateDocumentRequest contains optional fields; nil means unchanged
type UpdateDocumentRequest struct {
	ID       string                `json:"-"`
	Title    *string               `json:"title"`
	Content  *string               `json:"content"`
	Category *string               `json:"category"`
	IsActive *bool                 `json:"is_active"`
	File     *multipart.FileHeader `json:"-"`
}

type ListDocumentsRequest struct {
	Skip       int
	Limit      int
	Category   string
	ActiveOnly bool
}

// ReembedReport summarises a full-corpus re-embed run
type ReembedReport struct {
	Total     int      `json:"total"`
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}
