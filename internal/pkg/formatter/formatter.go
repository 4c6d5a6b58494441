// Package formatter renders chat transcripts for download.
package formatter

import (
	"fmt"
	"time"

	"github.com/futig/rag-backend/internal/entity"
)

const baseTitle = "Chat transcript"

// Transcript is a chat session in chronological order.
type Transcript struct {
	SessionID string             `json:"session_id"`
	Turns     []*entity.ChatTurn `json:"turns"`
}

type Formatter interface {
	Format(t *Transcript) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatJSON:
		return NewJSONFormatter(), nil
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", entity.ErrInvalidFormat, format)
	}
}

func speaker(turn *entity.ChatTurn) string {
	if turn.Sender == entity.SenderAssistant {
		return "Assistant"
	}
	return "User"
}

// turnHeader is the one-line caption printed above each message.
func turnHeader(turn *entity.ChatTurn) string {
	header := fmt.Sprintf("%s, %s", speaker(turn), turn.CreatedAt.UTC().Format(time.RFC3339))
	switch {
	case turn.Status == entity.ChatTurnStatusFailed:
		header += " (not answered)"
	case turn.IsRAGEnhanced:
		header += fmt.Sprintf(" (grounded on %d excerpts)", len(turn.ChunkIDs))
	}
	return header
}
