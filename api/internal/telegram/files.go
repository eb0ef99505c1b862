package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxFileBytes = 20 << 20 // лимит Bot API на скачивание

type fileURLer interface {
	GetFileDirectURL(fileID string) (string, error)
}

// Files скачивает файлы Telegram по file_id.
type Files struct {
	Bot  fileURLer
	HTTP *http.Client
}

func NewFiles(bot fileURLer) *Files {
	return &Files{Bot: bot, HTTP: httpClient()}
}

func (f *Files) FileBytes(ctx context.Context, fileID string) ([]byte, error) {
	url, err := f.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileID, err)
	}
	return download(ctx, f.HTTP, url)
}

func download(ctx context.Context, hc *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if hc == nil {
		hc = httpClient()
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFileBytes))
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
