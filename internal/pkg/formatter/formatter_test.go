package formatter

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTranscript() *Transcript {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &Transcript{
		SessionID: "session-1",
		Turns: []*entity.ChatTurn{
			{ID: "1", SessionID: "session-1", Sender: entity.SenderUser, Message: "When was the company founded?", Status: entity.ChatTurnStatusOK, CreatedAt: at},
			{ID: "2", SessionID: "session-1", Sender: entity.SenderAssistant, Message: "It was founded in 1975.", Status: entity.ChatTurnStatusOK, IsRAGEnhanced: true, ChunkIDs: []int64{7, 9}, Provider: "hosted", CreatedAt: at.Add(time.Second)},
			{ID: "3", SessionID: "session-1", Sender: entity.SenderUser, Message: "And the CEO?", Status: entity.ChatTurnStatusFailed, CreatedAt: at.Add(time.Minute)},
		},
	}
}

func TestFactory_Create(t *testing.T) {
	f := NewFactory()

	cases := []struct {
		format entity.ResultFormat
		ext    string
	}{
		{entity.FormatJSON, ".json"},
		{entity.FormatMarkdown, ".md"},
		{entity.FormatDOCX, ".docx"},
		{entity.FormatPDF, ".pdf"},
	}
	for _, tc := range cases {
		t.Run(string(tc.format), func(t *testing.T) {
			fm, err := f.Create(tc.format)
			require.NoError(t, err)
			assert.Equal(t, tc.ext, fm.FileExtension())
			assert.NotEmpty(t, fm.ContentType())
		})
	}

	_, err := f.Create("html")
	assert.ErrorIs(t, err, entity.ErrInvalidFormat)
}

func TestMarkdownFormatter_Format(t *testing.T) {
	out, err := NewMarkdownFormatter().Format(sampleTranscript())
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "# Chat transcript")
	assert.Contains(t, text, "Session: `session-1`")
	assert.Contains(t, text, "**User, 2026-03-01T10:00:00Z**\n\nWhen was the company founded?")
	assert.Contains(t, text, "**Assistant, 2026-03-01T10:00:01Z (grounded on 2 excerpts)**")
	assert.Contains(t, text, "(not answered)")
	assert.Less(t, bytes.Index(out, []byte("founded?")), bytes.Index(out, []byte("1975")))
}

func TestJSONFormatter_Format(t *testing.T) {
	out, err := NewJSONFormatter().Format(sampleTranscript())
	require.NoError(t, err)

	var decoded Transcript
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "session-1", decoded.SessionID)
	require.Len(t, decoded.Turns, 3)
	assert.Equal(t, []int64{7, 9}, decoded.Turns[1].ChunkIDs)
	assert.Equal(t, entity.ChatTurnStatusFailed, decoded.Turns[2].Status)
}

func TestPDFFormatter_Format(t *testing.T) {
	out, err := NewPDFFormatter().Format(sampleTranscript())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
