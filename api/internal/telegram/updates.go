package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Update — обновление Telegram вместе с web_app_data, которого нет в tgbotapi v5.5.1.
type Update struct {
	tgbotapi.Update
	WebAppData *WebAppData
}

type WebAppData struct {
	Data       string `json:"data"`
	ButtonText string `json:"button_text"`
}

type webAppEnvelope struct {
	Message *struct {
		WebAppData *WebAppData `json:"web_app_data"`
	} `json:"message"`
}

func DecodeUpdate(b []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(b, &u.Update); err != nil {
		return Update{}, fmt.Errorf("decode update: %w", err)
	}
	var env webAppEnvelope
	if err := json.Unmarshal(b, &env); err == nil && env.Message != nil {
		u.WebAppData = env.Message.WebAppData
	}
	return u, nil
}

func DecodeUpdates(raw json.RawMessage) ([]Update, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	out := make([]Update, 0, len(items))
	for _, it := range items {
		u, err := DecodeUpdate(it)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

type requester interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// FetchUpdates — getUpdates с сохранением сырых полей сообщения.
func FetchUpdates(bot requester, offset, timeoutSec int) ([]Update, error) {
	p := tgbotapi.Params{}
	p.AddNonZero("offset", offset)
	p.AddNonZero("timeout", timeoutSec)
	resp, err := bot.MakeRequest("getUpdates", p)
	if err != nil {
		return nil, err
	}
	return DecodeUpdates(resp.Result)
}

// WebhookHandler принимает обновления вебхука и передаёт их в handle.
func WebhookHandler(handle func(context.Context, Update)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		upd, err := DecodeUpdate(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		handle(context.WithoutCancel(req.Context()), upd)
		w.WriteHeader(http.StatusOK)
	}
}
