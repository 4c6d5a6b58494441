package document

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/extractor"
	"github.com/futig/rag-backend/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// storedFile is an uploaded original saved next to its extracted text.
type storedFile struct {
	Path string
	Name string
	Text string
}

// saveAndExtract stores the upload under <storage>/<documentID>/ and extracts its text.
// Extraction failures become placeholder text, not errors.
func (uc *DocumentUsecase) saveAndExtract(ctx context.Context, documentID string, fh *multipart.FileHeader) (*storedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", entity.ErrInvalidFile, fh.Filename, err)
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, uc.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", entity.ErrInvalidFile, fh.Filename, err)
	}
	if int64(len(content)) > uc.maxFileSize {
		return nil, fmt.Errorf("%w: file '%s' exceeds %d bytes", entity.ErrFileTooLarge, fh.Filename, uc.maxFileSize)
	}

	name := validator.SanitizeFilename(fh.Filename)
	dir := filepath.Join(uc.storageDir, documentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	text := uc.extractor.Extract(ctx, name, content)
	if extractor.IsExtractionError(text) {
		ctxzap.Warn(ctx, "document stored with extraction error placeholder",
			zap.String("document_id", documentID),
			zap.String("filename", name),
		)
	}

	ctxzap.Debug(ctx, "document file stored",
		zap.String("document_id", documentID),
		zap.String("path", path),
		zap.Int("size", len(content)),
	)

	return &storedFile{Path: path, Name: name, Text: text}, nil
}

// removeFile deletes a stored original; a missing file is not an error.
func (uc *DocumentUsecase) removeFile(ctx context.Context, path *string) {
	if path == nil || *path == "" {
		return
	}
	if err := os.Remove(*path); err != nil && !os.IsNotExist(err) {
		ctxzap.Warn(ctx, "failed to remove document file", zap.String("path", *path), zap.Error(err))
		return
	}
	// The per-document directory is removed only once it is empty.
	_ = os.Remove(filepath.Dir(*path))
}

func stringPtr(s string) *string {
	return &s
}
