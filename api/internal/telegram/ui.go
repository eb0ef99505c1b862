package telegram

import (
	"net/url"
	"strconv"
	"strings"
)

// tgbotapi v5.5.1 не знает про кнопки web_app, поэтому разметку собираем сами;
// ReplyMarkup сериализуется как есть.
type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text         string      `json:"text"`
	CallbackData string      `json:"callback_data,omitempty"`
	WebApp       *webAppInfo `json:"web_app,omitempty"`
}

type webAppInfo struct {
	URL string `json:"url"`
}

const skipCropPrefix = "skip_crop:"

// Кнопки «открыть редактор» и «пропустить (авто-кадр)».
func cropKeyboard(webAppLink string, orderID int64) inlineKeyboard {
	var rows [][]inlineButton
	if webAppLink != "" {
		rows = append(rows, []inlineButton{{Text: "✂️ Настроить кадрирование", WebApp: &webAppInfo{URL: webAppLink}}})
	}
	rows = append(rows, []inlineButton{{
		Text:         "⏭ Пропустить (авто-кадр)",
		CallbackData: skipCropPrefix + strconv.FormatInt(orderID, 10),
	}})
	return inlineKeyboard{InlineKeyboard: rows}
}

// WebAppLink — ссылка на мини-приложение с order_id и api_url в query.
// Пустой webapp — кнопки редактора не будет.
func WebAppLink(webapp string, orderID int64, apiURL string) string {
	webapp = strings.TrimSpace(webapp)
	if webapp == "" {
		return ""
	}
	u, err := url.Parse(webapp)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("order_id", strconv.FormatInt(orderID, 10))
	if apiURL = strings.TrimSpace(apiURL); apiURL != "" {
		q.Set("api_url", apiURL)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func parseSkipCrop(data string) (int64, bool) {
	rest, ok := strings.CutPrefix(data, skipCropPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	return id, err == nil
}
