package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"photo-crop/api/internal/crop"
	"photo-crop/api/internal/metrics"
	"photo-crop/api/internal/store"
	"photo-crop/api/internal/suggest"
)

// botAPI — то, что роутер использует из *tgbotapi.BotAPI.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type orderStore interface {
	Create(ctx context.Context, chatID, userID int64, format string) (store.Order, error)
	Get(ctx context.Context, id int64) (store.Order, error)
	LatestForChat(ctx context.Context, chatID int64) (store.Order, error)
	SetStatus(ctx context.Context, id int64, status string) error
	AddPhoto(ctx context.Context, p store.PhotoRow) (int64, error)
	Photos(ctx context.Context, orderID int64) ([]store.PhotoRow, error)
	SaveCrops(ctx context.Context, orderID int64, crops []store.CropUpdate) (int, error)
}

type fileSource interface {
	FileBytes(ctx context.Context, fileID string) ([]byte, error)
}

type Router struct {
	Bot       botAPI
	Orders    orderStore
	Files     fileSource
	Suggester suggest.Suggester
	Log       *slog.Logger

	// WebAppURL — адрес мини-приложения, APIURL — база API, которую оно получит в api_url.
	WebAppURL string
	APIURL    string

	// Debounce — пауза после последнего фото альбома перед предложением кадрирования.
	Debounce time.Duration

	batches sync.Map // chatID -> *photoBatch
}

func (r *Router) logger() *slog.Logger {
	if r.Log == nil {
		return slog.Default()
	}
	return r.Log
}

func (r *Router) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, startText)
	case "health":
		r.send(cid, "✅ OK")
	case "formats":
		r.send(cid, formatsText())
	case "neworder":
		r.onNewOrder(ctx, msg)
	case "crop":
		r.onCropCommand(ctx, cid)
	default:
		r.send(cid, "Неизвестная команда")
	}
}

func (r *Router) HandleUpdate(ctx context.Context, upd Update) {
	switch {
	case upd.CallbackQuery != nil:
		metrics.TelegramUpdatesTotal.WithLabelValues("callback").Inc()
		r.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message == nil:
		return
	case upd.WebAppData != nil:
		metrics.TelegramUpdatesTotal.WithLabelValues("web_app_data").Inc()
		r.onWebAppData(ctx, upd.Message, upd.WebAppData.Data)
	case upd.Message.IsCommand():
		metrics.TelegramUpdatesTotal.WithLabelValues("command").Inc()
		r.HandleCommand(ctx, upd.Message)
	case len(upd.Message.Photo) > 0:
		metrics.TelegramUpdatesTotal.WithLabelValues("photo").Inc()
		r.acceptPhoto(ctx, upd.Message)
	default:
		metrics.TelegramUpdatesTotal.WithLabelValues("other").Inc()
	}
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().Warn("telegram send failed", "chat_id", chatID, "err", err)
	}
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("❌ Произошла ошибка: %s", truncate(err.Error(), 100)))
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

const startText = "Пришлите фото для печати, я предложу кадр под выбранный формат.\n" +
	"Команды:\n" +
	"/neworder [формат] — новый заказ\n" +
	"/formats — доступные форматы\n" +
	"/crop — открыть редактор кадрирования"

func formatsText() string {
	var b strings.Builder
	b.WriteString("Форматы печати:\n")
	for _, f := range crop.Formats() {
		ratio, _ := crop.FormatRatio(f)
		fmt.Fprintf(&b, "• %s — %s (%.3g)\n", f, crop.FormatLabel(f), ratio)
	}
	return b.String()
}
