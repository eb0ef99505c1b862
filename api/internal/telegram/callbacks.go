package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"photo-crop/api/internal/store"
)

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID

	if orderID, ok := parseSkipCrop(cb.Data); ok {
		r.onSkipCrop(ctx, cid, cb.Message.MessageID, orderID)
	}
}

// onSkipCrop оставляет авто-кадры и убирает клавиатуру.
func (r *Router) onSkipCrop(ctx context.Context, chatID int64, msgID int, orderID int64) {
	o, err := r.Orders.Get(ctx, orderID)
	if err == nil && o.ChatID != chatID {
		err = store.ErrNotFound
	}
	if err == nil {
		err = r.Orders.SetStatus(ctx, orderID, store.StatusAuto)
	}
	if errors.Is(err, store.ErrNotFound) {
		r.send(chatID, "❌ Заказ не найден.")
		return
	}
	if err != nil {
		r.SendError(chatID, err)
		return
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	_, _ = r.Bot.Send(edit)
	r.logger().Info("crop skipped", "order_id", orderID)
	r.send(chatID, fmt.Sprintf("⏭ Заказ %s: используем авто-кадрирование.", o.OrderNumber))
}
