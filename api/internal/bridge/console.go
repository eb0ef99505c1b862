package bridge

import (
	"fmt"
	"io"
	"sync"
)

// Console — мост хоста для запуска вне Telegram: тема фиксированная,
// результат печатается в writer одной JSON-строкой.
type Console struct {
	Launch string
	User   int64
	Colors map[string]string
	Out    io.Writer

	mu     sync.Mutex
	sent   []string
	closed bool
}

func NewConsole(out io.Writer, launch string, userID int64) *Console {
	return &Console{
		Launch: launch,
		User:   userID,
		Out:    out,
		Colors: map[string]string{
			"bg_color":     "#ffffff",
			"text_color":   "#000000",
			"button_color": "#2481cc",
		},
	}
}

func (c *Console) Theme() map[string]string { return c.Colors }
func (c *Console) LaunchData() string       { return c.Launch }
func (c *Console) UserID() int64            { return c.User }

func (c *Console) SendData(data string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("bridge closed")
	}
	c.sent = append(c.sent, data)
	if c.Out != nil {
		if _, err := fmt.Fprintln(c.Out, data); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Sent возвращает всё, что ушло через SendData.
func (c *Console) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *Console) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
