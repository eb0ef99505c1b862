package telegram

import (
	"sync"
	"time"
)

const debounce = 1200 * time.Millisecond

type photoBatch struct {
	ChatID  int64
	OrderID int64

	mu     sync.Mutex
	count  int
	timer  *time.Timer
	lastAt time.Time
}
