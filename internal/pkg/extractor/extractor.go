// Package extractor turns uploaded files into plain text.
//
// Extraction never fails the caller: when a file cannot be read the
// returned text starts with ErrorPrefix so that the document is still
// stored and the problem is visible to whoever reads it.
package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/ledongthuc/pdf"
	"github.com/unidoc/unioffice/document"
	"go.uber.org/zap"
)

const ErrorPrefix = "[EXTRACTION_ERROR] "

const (
	extTXT  = ".txt"
	extPDF  = ".pdf"
	extDOC  = ".doc"
	extDOCX = ".docx"

	// minimum length of a printable run kept by the legacy .doc heuristic
	docMinRun = 4
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SupportedExtensions lists the file types Extract understands.
var SupportedExtensions = map[string]bool{
	extTXT:  true,
	extPDF:  true,
	extDOC:  true,
	extDOCX: true,
}

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// IsExtractionError reports whether text is an extraction failure marker.
func IsExtractionError(text string) bool {
	return strings.HasPrefix(text, ErrorPrefix)
}

// Extract returns the plain text of content, choosing the decoder by file extension.
func (e *Extractor) Extract(ctx context.Context, filename string, content []byte) string {
	logger := ctxzap.Extract(ctx).With(zap.String("filename", filename), zap.Int("size", len(content)))

	ext := strings.ToLower(filepath.Ext(filename))

	var (
		text string
		err  error
	)
	switch ext {
	case extTXT:
		text = extractTXT(content)
	case extPDF:
		text, err = extractPDF(content)
	case extDOCX:
		text, err = extractDOCX(content)
	case extDOC:
		text, err = extractDOC(content)
	default:
		err = fmt.Errorf("unsupported file type %q", ext)
	}

	if err != nil {
		logger.Warn("text extraction failed", zap.Error(err))
		return ErrorPrefix + err.Error()
	}

	text = normalize(text)
	logger.Debug("text extracted", zap.Int("chars", utf8.RuneCountInString(text)))
	return text
}

func extractTXT(content []byte) string {
	content = bytes.TrimPrefix(content, utf8BOM)
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�")
	}
	return string(content)
}

func extractPDF(content []byte) (text string, err error) {
	// the pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	if strings.TrimSpace(string(raw)) == "" {
		return "", fmt.Errorf("pdf has no text layer")
	}
	return string(raw), nil
}

func extractDOCX(content []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	writeParagraphs := func(paragraphs []document.Paragraph) {
		for _, p := range paragraphs {
			for _, r := range p.Runs() {
				b.WriteString(r.Text())
			}
			b.WriteString("\n")
		}
	}

	writeParagraphs(doc.Paragraphs())

	for _, table := range doc.Tables() {
		b.WriteString("\n")
		for _, row := range table.Rows() {
			for _, cell := range row.Cells() {
				writeParagraphs(cell.Paragraphs())
			}
		}
	}

	return b.String(), nil
}

// extractDOC recovers readable text from a legacy Word binary by keeping
// long runs of printable characters. Formatting and field codes are lost.
func extractDOC(content []byte) (string, error) {
	var (
		runs    []string
		current []rune
	)
	flush := func() {
		if len(current) >= docMinRun && hasLetter(current) {
			runs = append(runs, string(current))
		}
		current = current[:0]
	}

	for _, c := range content {
		switch {
		case c >= 0x20 && c < 0x7F:
			current = append(current, rune(c))
		case c == '\r' || c == '\n' || c == '\t':
			current = append(current, ' ')
		default:
			flush()
		}
	}
	flush()

	if len(runs) == 0 {
		return "", fmt.Errorf("no readable text in doc file")
	}
	return strings.Join(runs, "\n"), nil
}

func hasLetter(runes []rune) bool {
	for _, r := range runes {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// normalize trims trailing spaces on each line and collapses runs of blank lines.
func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\x00", "")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
