package validator

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/futig/rag-backend/internal/config"
	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/extractor"
)

const maxTitleLength = 255

// Validator validates document input and file uploads
type Validator struct {
	cfg config.FileUploadConfig
}

func NewFileValidator(cfg config.FileUploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

func (v *Validator) ValidateCreateDocument(req *entity.CreateDocumentRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("%w: title", entity.ErrMissingField)
	}
	if len(req.Title) > maxTitleLength {
		return fmt.Errorf("%w: title is longer than %d characters", entity.ErrInvalidDocument, maxTitleLength)
	}

	if req.File != nil {
		if strings.TrimSpace(req.Content) != "" {
			return fmt.Errorf("%w: content and file must not be both set", entity.ErrInvalidDocument)
		}
		return v.ValidateDocumentFile(req.File)
	}

	if strings.TrimSpace(req.Content) == "" {
		return fmt.Errorf("%w: content or file", entity.ErrMissingField)
	}

	return nil
}

func (v *Validator) ValidateUpdateDocument(req *entity.UpdateDocumentRequest) error {
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return fmt.Errorf("%w: title", entity.ErrMissingField)
		}
		if len(*req.Title) > maxTitleLength {
			return fmt.Errorf("%w: title is longer than %d characters", entity.ErrInvalidDocument, maxTitleLength)
		}
	}

	if req.File != nil {
		if req.Content != nil {
			return fmt.Errorf("%w: content and file must not be both set", entity.ErrInvalidDocument)
		}
		return v.ValidateDocumentFile(req.File)
	}

	if req.Content != nil && strings.TrimSpace(*req.Content) == "" {
		return fmt.Errorf("%w: content", entity.ErrMissingField)
	}

	return nil
}

// ValidateDocumentFile checks the extension and size of an uploaded document
func (v *Validator) ValidateDocumentFile(fh *multipart.FileHeader) error {
	if fh == nil {
		return fmt.Errorf("%w: file", entity.ErrMissingField)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !extractor.SupportedExtensions[ext] {
		return fmt.Errorf("%w: %q (allowed: txt, pdf, doc, docx)", entity.ErrInvalidExtension, ext)
	}

	if fh.Size <= 0 {
		return fmt.Errorf("%w: file '%s' is empty", entity.ErrInvalidFile, fh.Filename)
	}

	if fh.Size > v.cfg.MaxFileSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, fh.Filename, fh.Size, v.cfg.MaxFileSize)
	}

	return nil
}

// SanitizeFilename sanitizes a filename for safe storage
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	replacer := strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
		"..", "",
	)
	filename = replacer.Replace(filename)
	if filename == "" || filename == "." || filename == "/" {
		return "document"
	}
	return filename
}
