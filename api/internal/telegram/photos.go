package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"photo-crop/api/internal/crop"
	"photo-crop/api/internal/metrics"
	"photo-crop/api/internal/store"
	"photo-crop/api/internal/suggest"
)

func (r *Router) acceptPhoto(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	order, created, err := r.activeOrder(ctx, msg)
	if err != nil {
		r.logger().Error("active order lookup failed", "chat_id", cid, "err", err)
		r.SendError(cid, err)
		return
	}
	if created {
		r.send(cid, fmt.Sprintf("🆕 Заказ %s: %s.", order.OrderNumber, crop.FormatLabel(order.Format)))
	}

	// берём самое большое превью
	ph := msg.Photo[len(msg.Photo)-1]
	row := store.PhotoRow{
		OrderID:        order.ID,
		Format:         order.Format,
		TelegramFileID: ph.FileID,
		Width:          ph.Width,
		Height:         ph.Height,
	}

	img, err := r.Files.FileBytes(ctx, ph.FileID)
	if err != nil {
		// фото сохраняем и без авто-кадра: мини-приложение отцентрирует само
		r.logger().Warn("download photo failed", "file_id", ph.FileID, "err", err)
	} else {
		row.AutoCrop = r.suggest(ctx, img, order.Format)
	}

	id, err := r.Orders.AddPhoto(ctx, row)
	if err != nil {
		r.logger().Error("add photo failed", "order_id", order.ID, "err", err)
		r.SendError(cid, err)
		return
	}
	r.logger().Info("photo added", "order_id", order.ID, "photo_id", id, "auto_crop", row.AutoCrop != nil)
	r.notePhoto(cid, order.ID)
}

// suggest считает авто-кадр; ошибка движка означает «без авто-кадра».
func (r *Router) suggest(ctx context.Context, img []byte, format string) *crop.WireAutoCrop {
	if r.Suggester == nil {
		return nil
	}
	ratio, _ := crop.FormatRatio(format)
	started := time.Now()
	res, err := r.Suggester.Suggest(ctx, img, ratio)
	metrics.SuggestionDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		r.logger().Warn("suggest failed", "err", err)
		return nil
	}
	metrics.SuggestionsTotal.WithLabelValues(string(res.Suggestion.Method)).Inc()
	return AutoCropOf(res)
}

// AutoCropOf переводит результат движка в форму колонки auto_crop.
func AutoCropOf(res suggest.Result) *crop.WireAutoCrop {
	s := res.Suggestion
	conf := s.Confidence
	faces := res.FacesFound
	r := s.Rect.Round()
	return &crop.WireAutoCrop{
		X: r.X, Y: r.Y, Width: r.Width, Height: r.Height,
		Confidence: &conf,
		FacesFound: &faces,
		Method:     s.Method,
	}
}

// notePhoto копит фото альбома и после паузы предлагает кадрирование одним сообщением.
func (r *Router) notePhoto(chatID, orderID int64) {
	d := r.Debounce
	if d <= 0 {
		d = debounce
	}
	bi, _ := r.batches.LoadOrStore(chatID, &photoBatch{ChatID: chatID})
	b := bi.(*photoBatch)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.OrderID = orderID
	b.count++
	b.lastAt = time.Now()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(d, func() { r.flushBatch(chatID) })
}

func (r *Router) flushBatch(chatID int64) {
	bi, ok := r.batches.LoadAndDelete(chatID)
	if !ok {
		return
	}
	b := bi.(*photoBatch)
	b.mu.Lock()
	n, orderID := b.count, b.OrderID
	b.mu.Unlock()
	if n == 0 {
		return
	}
	r.offerCrop(chatID, orderID, fmt.Sprintf(
		"📷 Отлично! Загружено %d фото.\n\n✂️ Хотите настроить кадрирование?\n"+
			"Это позволит выбрать, какая часть фото попадёт в печать.\n\n"+
			"💡 Если пропустить — будет использовано авто-кадрирование.", n))
}
