package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatHub_LocalDelivery(t *testing.T) {
	require.Nil(t, RedisClient)
	h := NewChatHub()

	a, releaseA := h.Subscribe(1)
	b, releaseB := h.Subscribe(1)
	other, releaseOther := h.Subscribe(2)
	defer releaseOther()
	assert.Equal(t, 2, h.Subscribers(1))

	h.Publish(context.Background(), 1, []byte(`{"id":1}`))
	for _, ch := range []<-chan []byte{a, b} {
		select {
		case got := <-ch:
			assert.JSONEq(t, `{"id":1}`, string(got))
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
	select {
	case <-other:
		t.Fatal("message leaked to another team")
	default:
	}

	releaseA()
	releaseA()
	assert.Equal(t, 1, h.Subscribers(1))
	releaseB()
	assert.Zero(t, h.Subscribers(1))
}

func TestChatHub_SlowListenerDoesNotBlock(t *testing.T) {
	h := NewChatHub()
	_, release := h.Subscribe(5)
	defer release()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Publish(context.Background(), 5, []byte("x"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full listener")
	}
}

func TestChatHub_RunWithoutRedis(t *testing.T) {
	NewChatHub().Run(context.Background())
}
