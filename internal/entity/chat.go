package entity

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type ChatTurnStatus string

const (
	ChatTurnStatusOK     ChatTurnStatus = "OK"
	ChatTurnStatusFailed ChatTurnStatus = "FAILED"
)

// ChatState is the per-request orchestration state
type ChatState string

const (
	ChatStateReceived   ChatState = "RECEIVED"
	ChatStateRetrieving ChatState = "RETRIEVING"
	ChatStateGrounded   ChatState = "GROUNDED"
	ChatStateCompleting ChatState = "COMPLETING"
	ChatStateResponded  ChatState = "RESPONDED"
	ChatStateFailed     ChatState = "FAILED"
)

// ChatTurn is an append-only log record of one message in a session
type ChatTurn struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"session_id"`
	Sender        Sender         `json:"sender"`
	Message       string         `json:"message"`
	Status        ChatTurnStatus `json:"status"`
	IsRAGEnhanced bool           `json:"is_rag_enhanced"`
	ChunkIDs      []int64        `json:"chunk_ids,omitempty"`
	Provider      string         `json:"provider,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type Source struct {
	DocumentTitle string  `json:"document_title"`
	Score         float64 `json:"score"`
}

type ChatResponse struct {
	SessionID     string    `json:"session_id"`
	ReplyText     string    `json:"reply_text"`
	Sources       []Source  `json:"sources"`
	IsRAGEnhanced bool      `json:"is_rag_enhanced"`
	Provider      string    `json:"-"`
	ChunkIDs      []int64   `json:"-"`
	State         ChatState `json:"-"`
}

type ResultFormat string

const (
	FormatJSON     ResultFormat = "json"
	FormatMarkdown ResultFormat = "markdown"
	FormatDOCX     ResultFormat = "docx"
	FormatPDF      ResultFormat = "pdf"
)

func (f ResultFormat) IsValid() bool {
	switch f {
	case FormatJSON, FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
