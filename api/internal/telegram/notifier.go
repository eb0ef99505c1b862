package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"photo-crop/api/internal/store"
)

// Notifier пишет пользователю в чат заказа.
type Notifier struct {
	Bot botAPI
}

func (n *Notifier) CropsSaved(_ context.Context, o store.Order, saved int) error {
	text := fmt.Sprintf("✅ Кадрирование сохранено!\nЗаказ %s, обработано фото: %d шт.", o.OrderNumber, saved)
	_, err := n.Bot.Send(tgbotapi.NewMessage(o.ChatID, text))
	return err
}
