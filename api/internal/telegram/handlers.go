package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"photo-crop/api/internal/crop"
	"photo-crop/api/internal/metrics"
	"photo-crop/api/internal/session"
	"photo-crop/api/internal/store"
)

// DefaultFormat — формат заказа, если пользователь его не указал.
const DefaultFormat = "polaroid_standard"

func userID(msg *tgbotapi.Message) int64 {
	if msg.From != nil {
		return msg.From.ID
	}
	return msg.Chat.ID
}

func (r *Router) onNewOrder(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	format := strings.ToLower(strings.TrimSpace(msg.CommandArguments()))
	if format == "" {
		format = DefaultFormat
	}
	if _, ok := crop.FormatRatio(format); !ok {
		r.send(cid, "Неизвестный формат.\n"+formatsText())
		return
	}
	o, err := r.Orders.Create(ctx, cid, userID(msg), format)
	if err != nil {
		r.logger().Error("create order failed", "chat_id", cid, "err", err)
		r.SendError(cid, err)
		return
	}
	r.logger().Info("order created", "order_id", o.ID, "number", o.OrderNumber, "format", format)
	r.send(cid, fmt.Sprintf("🆕 Заказ %s: %s.\nПришлите фото, можно альбомом.", o.OrderNumber, crop.FormatLabel(format)))
}

// activeOrder — последний черновик чата; если его нет, заводим новый с форматом по умолчанию.
func (r *Router) activeOrder(ctx context.Context, msg *tgbotapi.Message) (store.Order, bool, error) {
	o, err := r.Orders.LatestForChat(ctx, msg.Chat.ID)
	if err == nil {
		return o, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Order{}, false, err
	}
	o, err = r.Orders.Create(ctx, msg.Chat.ID, userID(msg), DefaultFormat)
	return o, true, err
}

func (r *Router) onCropCommand(ctx context.Context, chatID int64) {
	o, err := r.Orders.LatestForChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		r.send(chatID, "❌ Заказ не найден. Начните с /neworder")
		return
	}
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	photos, err := r.Orders.Photos(ctx, o.ID)
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	if len(photos) == 0 {
		r.send(chatID, "❌ Фото не найдены.")
		return
	}
	r.offerCrop(chatID, o.ID, fmt.Sprintf(
		"✂️ Кадрирование фото\n\nУ вас %d фото.\nНажмите кнопку ниже, чтобы открыть редактор кадрирования.\n\n"+
			"💡 Вы можете настроить область печати для каждого фото или пропустить этот шаг.", len(photos)))
}

func (r *Router) offerCrop(chatID, orderID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = cropKeyboard(WebAppLink(r.WebAppURL, orderID, r.APIURL), orderID)
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().Warn("send crop keyboard failed", "chat_id", chatID, "err", err)
	}
}

// onWebAppData сохраняет кадры, присланные мини-приложением через sendData.
func (r *Router) onWebAppData(ctx context.Context, msg *tgbotapi.Message, data string) {
	cid := msg.Chat.ID
	r.logger().Info("web app data received", "chat_id", cid, "bytes", len(data))

	var p session.Payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		r.logger().Warn("bad web app data", "chat_id", cid, "err", err)
		r.send(cid, "❌ Ошибка обработки данных. Попробуйте ещё раз.")
		return
	}
	if len(p.Photos) == 0 {
		r.send(cid, "⚠️ Не получены данные кадрирования")
		return
	}

	o, err := r.payloadOrder(ctx, cid, p)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.send(cid, "❌ Заказ не найден. Начните сначала: /start")
			return
		}
		r.SendError(cid, err)
		return
	}

	saved, err := r.Orders.SaveCrops(ctx, o.ID, store.UpdatesFromPayload(p))
	if err != nil {
		r.logger().Error("save crops failed", "order_id", o.ID, "err", err)
		r.SendError(cid, err)
		return
	}
	metrics.CropsSavedTotal.WithLabelValues("webapp").Add(float64(saved))
	r.logger().Info("crops saved", "order_id", o.ID, "saved", saved)
	r.send(cid, fmt.Sprintf("✅ Кадрирование сохранено!\nОбработано фото: %d шт.", saved))
}

// payloadOrder берёт заказ из order_id результата, иначе последний черновик чата.
// Чужой заказ считается ненайденным.
func (r *Router) payloadOrder(ctx context.Context, chatID int64, p session.Payload) (store.Order, error) {
	if id, ok := p.OrderID.Int64(); ok {
		o, err := r.Orders.Get(ctx, id)
		if err != nil {
			return store.Order{}, err
		}
		if o.ChatID != chatID {
			return store.Order{}, store.ErrNotFound
		}
		return o, nil
	}
	return r.Orders.LatestForChat(ctx, chatID)
}
