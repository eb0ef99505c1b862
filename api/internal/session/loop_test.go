package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photo-crop/api/internal/session"
)

func TestLoopRunsPostedTasks(t *testing.T) {
	loop := session.NewLoop()
	ran := 0
	loop.Post(func() { ran++ })
	loop.Post(func() { ran++ })
	assert.Equal(t, 2, loop.Drain())
	assert.Equal(t, 2, ran)
}

func TestPostAfterCloseDoesNotBlock(t *testing.T) {
	loop := session.NewLoop()
	loop.Close()
	loop.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// больше, чем вмещает буфер очереди
		for range 200 {
			loop.Post(func() {})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "Post blocked on a closed loop")
	}
}

func TestCloseReleasesBlockedPost(t *testing.T) {
	loop := session.NewLoop()
	for range 64 {
		loop.Post(func() {})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Post(func() {})
	}()

	loop.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	select {
	case <-done:
	case <-ctx.Done():
		require.FailNow(t, "Post stayed blocked after Close")
	}
}
