package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/futig/rag-backend/internal/entity"
)

// MaxMessageLength is the Telegram limit for a single text message
const MaxMessageLength = 4096

const (
	MsgWelcome = `👋 Hi! Ask me anything about the knowledge base.

I search the uploaded documents and answer with references to them.
Type /help to see the commands.`

	MsgHelp = `🤖 Commands:

/start - Show the greeting
/help - Show this help
/reset - Start a new conversation

Any other text is sent as a question. Answers that used the knowledge base list their sources.`

	MsgReset = `🔄 New conversation started. Previous messages will not be used as context.`

	MsgOnlyText = `✍️ I can only answer text messages.`

	MsgUnknownCommand = `❓ Unknown command. Type /help`

	MsgRateLimited      = `⚠️ Too many requests. Please wait a little.`
	MsgRateLimitedAgain = `⚠️ Request limit exceeded. Wait about 30 seconds before the next attempt.`
	MsgRateLimitedHard  = `🛑 You are sending requests too often. Please wait a minute.`

	msgSources = "📚 Sources:"
)

const (
	ErrGeneric            = `❌ Something went wrong. Please try again.`
	ErrServiceUnavailable = `❌ AI service is temporarily unavailable. Try again in a couple of minutes.`
	ErrTimeout            = `❌ The request took too long. Please try again.`
	ErrInvalidInput       = `❌ The message could not be processed. Try rephrasing it.`
)

// RenderReply formats an answer and appends its sources when the answer is grounded
func RenderReply(resp *entity.ChatResponse) string {
	if resp == nil {
		return ErrGeneric
	}
	if !resp.IsRAGEnhanced || len(resp.Sources) == 0 {
		return resp.ReplyText
	}

	var sb strings.Builder
	sb.WriteString(resp.ReplyText)
	sb.WriteString("\n\n")
	sb.WriteString(msgSources)
	for _, src := range resp.Sources {
		sb.WriteString(fmt.Sprintf("\n• %s (%.2f)", src.DocumentTitle, src.Score))
	}
	return sb.String()
}

// RenderRateLimitWarning picks a warning that escalates with repeated violations
func RenderRateLimitWarning(warningCount int) string {
	switch {
	case warningCount <= 1:
		return MsgRateLimited
	case warningCount == 2:
		return MsgRateLimitedAgain
	default:
		return MsgRateLimitedHard
	}
}

// SplitMessage cuts text into parts that fit into one Telegram message, preferring line breaks
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}

	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		if part := strings.Trim(string(runes[:cut]), "\n"); part != "" {
			parts = append(parts, part)
		}
		runes = runes[cut:]
	}
	if rest := strings.Trim(string(runes), "\n"); rest != "" {
		parts = append(parts, rest)
	}
	return parts
}

// ClassifyError maps a chat pipeline error to a user-friendly message
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ErrGeneric
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrTimeout
	case errors.Is(err, entity.ErrChatServiceUnavailable),
		errors.Is(err, entity.ErrRetrievalUnavailable),
		errors.Is(err, entity.ErrEmbeddingUnavailable):
		return ErrServiceUnavailable
	case errors.Is(err, entity.ErrMissingField), errors.Is(err, entity.ErrInvalidParameter):
		return ErrInvalidInput
	default:
		return ErrGeneric
	}
}
