package handlers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// The typing action expires after five seconds on the client.
const typingInterval = 4 * time.Second

// TypingNotifier keeps the "typing" indicator visible while an answer is generated
type TypingNotifier struct {
	bot    Sender
	chatID int64
	done   chan struct{}
	logger *zap.Logger
}

// StartTyping sends the typing action right away and then repeats it until the returned stop is called
func StartTyping(ctx context.Context, bot Sender, chatID int64, logger *zap.Logger) (stop func()) {
	t := &TypingNotifier{
		bot:    bot,
		chatID: chatID,
		done:   make(chan struct{}),
		logger: logger,
	}
	t.send()

	go t.loop(ctx)

	return func() { close(t.done) }
}

func (t *TypingNotifier) loop(ctx context.Context) {
	ticker := time.NewTicker(typingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.send()
		case <-t.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (t *TypingNotifier) send() {
	action := tgbotapi.NewChatAction(t.chatID, tgbotapi.ChatTyping)
	if _, err := t.bot.Request(action); err != nil {
		t.logger.Warn("failed to send typing action",
			zap.Error(err),
			zap.Int64("chat_id", t.chatID),
		)
	}
}
