package main

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestRetryDelayFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"nil", nil, 0},
		{"retry after", errors.New("Too Many Requests: retry after 7"), 7 * time.Second},
		{"429 without hint", errors.New("too many requests"), 3 * time.Second},
		{"timeout", timeoutErr{}, 2 * time.Second},
		{"other", errors.New("bad gateway"), time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryDelayFromError(tt.err))
		})
	}
}

func TestBackoffClamped(t *testing.T) {
	assert.Equal(t, 15*time.Second, backoff(errors.New("too many requests: retry after 60")))
	assert.Equal(t, time.Second, backoff(errors.New("eof")))
}

func TestShortHashStable(t *testing.T) {
	h := shortHash("123:abc")
	assert.Len(t, h, 16)
	assert.Equal(t, h, shortHash("123:abc"))
	assert.NotEqual(t, h, shortHash("123:abd"))
}
