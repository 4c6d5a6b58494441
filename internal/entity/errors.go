package entity

import "errors"

// Domain errors
var (
	// Document errors
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentBusy     = errors.New("document is being processed")
	ErrInvalidDocument  = errors.New("invalid document data")
	ErrIngestionFailed  = errors.New("document ingestion failed")

	// File errors
	ErrInvalidFile      = errors.New("invalid file")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidExtension = errors.New("invalid file extension")
	ErrExtraction       = errors.New("text extraction failed")

	// Embedding / vector errors
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrInvalidEmbedding     = errors.New("invalid embedding")
	ErrEmbeddingConfig      = errors.New("embedding configuration mismatch")
	ErrVectorStore          = errors.New("vector store failure")
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// Chat errors
	ErrChatServiceUnavailable = errors.New("AI service unavailable")
	ErrSessionNotFound        = errors.New("chat session not found")

	// Settings errors
	ErrUnknownSetting = errors.New("unknown setting")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
)
