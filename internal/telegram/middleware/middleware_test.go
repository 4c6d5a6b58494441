package middleware

import (
	"sync"
	"testing"
	"time"

	"github.com/futig/rag-backend/internal/telegram/render"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (s *recordingSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.Text)
	}
	return out
}

func textUpdate(userID, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID},
			Chat: &tgbotapi.Chat{ID: chatID},
			Text: text,
		},
	}
}

func TestRateLimiter(t *testing.T) {
	t.Run("burst then refill", func(t *testing.T) {
		sender := &recordingSender{}
		rl := NewRateLimiterMiddleware(60, 2, zap.NewNop(), sender)
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		rl.now = func() time.Time { return now }

		calls := 0
		next := func(tgbotapi.Update) { calls++ }

		for range 3 {
			rl.Handle(textUpdate(1, 10, "hi"), next)
		}
		assert.Equal(t, 2, calls)
		assert.Equal(t, []string{render.MsgRateLimited}, sender.texts())

		now = now.Add(time.Second)
		rl.Handle(textUpdate(1, 10, "hi"), next)
		assert.Equal(t, 3, calls)
	})

	t.Run("users have separate buckets", func(t *testing.T) {
		rl := NewRateLimiterMiddleware(60, 1, zap.NewNop(), nil)
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		rl.now = func() time.Time { return now }

		calls := 0
		next := func(tgbotapi.Update) { calls++ }

		rl.Handle(textUpdate(1, 10, "a"), next)
		rl.Handle(textUpdate(1, 10, "b"), next)
		rl.Handle(textUpdate(2, 20, "c"), next)

		assert.Equal(t, 2, calls)
	})

	t.Run("warnings are throttled and escalate", func(t *testing.T) {
		sender := &recordingSender{}
		rl := NewRateLimiterMiddleware(1, 1, zap.NewNop(), sender)
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		rl.now = func() time.Time { return now }

		next := func(tgbotapi.Update) {}
		rl.Handle(textUpdate(1, 10, "a"), next)
		rl.Handle(textUpdate(1, 10, "b"), next)
		rl.Handle(textUpdate(1, 10, "c"), next)

		now = now.Add(31 * time.Second)
		rl.Handle(textUpdate(1, 10, "d"), next)

		assert.Equal(t, []string{render.MsgRateLimited, render.MsgRateLimitedAgain}, sender.texts())
	})

	t.Run("updates without a user pass through", func(t *testing.T) {
		rl := NewRateLimiterMiddleware(1, 1, zap.NewNop(), nil)
		calls := 0
		for range 3 {
			rl.Handle(tgbotapi.Update{UpdateID: 7}, func(tgbotapi.Update) { calls++ })
		}
		assert.Equal(t, 3, calls)
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	sender := &recordingSender{}
	mw := NewRecoveryMiddleware(zap.NewNop(), sender)

	require.NotPanics(t, func() {
		mw.Handle(textUpdate(1, 10, "hi"), func(tgbotapi.Update) {
			panic("handler exploded")
		})
	})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(10), sender.sent[0].ChatID)
	assert.Equal(t, render.ErrGeneric, sender.sent[0].Text)
}

type orderMiddleware struct {
	name  string
	trace *[]string
}

func (m orderMiddleware) Handle(u tgbotapi.Update, next func(tgbotapi.Update)) {
	*m.trace = append(*m.trace, m.name)
	next(u)
}

func TestChain(t *testing.T) {
	var trace []string
	h := Chain(func(tgbotapi.Update) { trace = append(trace, "handler") },
		orderMiddleware{name: "first", trace: &trace},
		orderMiddleware{name: "second", trace: &trace},
		NewLoggingMiddleware(zap.NewNop()),
	)

	h(textUpdate(1, 10, "hi"))

	assert.Equal(t, []string{"first", "second", "handler"}, trace)
}
