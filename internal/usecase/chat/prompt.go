package chat

import (
	"fmt"
	"strings"

	"github.com/futig/rag-backend/internal/entity"
	"github.com/futig/rag-backend/internal/pkg/chunker"
)

const defaultSystemPrompt = "You are a helpful assistant for this organisation. Answer clearly and concisely."

const groundingInstructions = `Answer the question using only the information in the context below.
If the context does not contain the answer, say that you do not have that information instead of guessing.
Do not mention the context or the sources unless you are asked about them.`

// groundingContext is the part of the retrieval result that fits into the prompt.
type groundingContext struct {
	Text   string
	Chunks []entity.RetrievedChunk
}

// buildGroundingContext keeps chunks in score order until the token budget is spent.
// A top chunk larger than the whole budget is truncated instead of dropped.
func buildGroundingContext(chunks []entity.RetrievedChunk, budget int) groundingContext {
	var (
		used  int
		parts []string
		kept  []entity.RetrievedChunk
	)

	for i, c := range chunks {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}

		tokens := chunker.CountTokens(text)
		if used+tokens > budget {
			if len(kept) > 0 || budget <= 0 {
				break
			}
			text = truncateWords(text, budget)
			tokens = budget
		}

		parts = append(parts, fmt.Sprintf("[Source %d: %s]\n%s", i+1, c.DocumentTitle, text))
		kept = append(kept, c)
		used += tokens
	}

	return groundingContext{Text: strings.Join(parts, "\n\n"), Chunks: kept}
}

func truncateWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return text
	}
	return strings.Join(words[:n], " ")
}

// buildMessages assembles system prompt, history and the user message in that order.
func buildMessages(systemPrompt string, grounding *groundingContext, history []*entity.ChatTurn, userMessage string) []entity.ChatMessage {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}

	system := systemPrompt
	if grounding != nil {
		system += "\n\n" + groundingInstructions
		if grounding.Text != "" {
			system += "\n\nContext:\n" + grounding.Text
		} else {
			system += "\n\nContext:\n(no relevant documents found)"
		}
	}

	messages := make([]entity.ChatMessage, 0, len(history)+2)
	messages = append(messages, entity.ChatMessage{Role: entity.RoleSystem, Content: system})

	for _, turn := range history {
		role := entity.RoleUser
		if turn.Sender == entity.SenderAssistant {
			role = entity.RoleAssistant
		}
		messages = append(messages, entity.ChatMessage{Role: role, Content: turn.Message})
	}

	messages = append(messages, entity.ChatMessage{Role: entity.RoleUser, Content: userMessage})
	return messages
}

// sourcesFor lists each document once, with the score of its best chunk.
func sourcesFor(chunks []entity.RetrievedChunk) []entity.Source {
	sources := make([]entity.Source, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c.DocumentTitle]; ok {
			continue
		}
		seen[c.DocumentTitle] = struct{}{}
		sources = append(sources, entity.Source{DocumentTitle: c.DocumentTitle, Score: c.Score})
	}
	return sources
}
