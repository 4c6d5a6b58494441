package middleware

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of the Bot API the middleware talks back through
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Middleware wraps update handling
type Middleware interface {
	Handle(update tgbotapi.Update, next func(tgbotapi.Update))
}

// Chain composes middleware so that the first one runs outermost
func Chain(handler func(tgbotapi.Update), mws ...Middleware) func(tgbotapi.Update) {
	for i := len(mws) - 1; i >= 0; i-- {
		mw, next := mws[i], handler
		handler = func(u tgbotapi.Update) {
			mw.Handle(u, next)
		}
	}
	return handler
}

// updateSource extracts the user and chat an update came from
func updateSource(update tgbotapi.Update) (userID, chatID int64, ok bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, update.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.From.ID, update.CallbackQuery.Message.Chat.ID, true
	default:
		return 0, 0, false
	}
}
