package bot

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyWaiterConsumeIsOneShot(t *testing.T) {
	w := NewReplyWaiter()

	var called int
	w.Bind(42, 7, func(ctx context.Context, message *tgbotapi.Message) {
		called++
	})

	fn := w.Consume(42, 7)
	require.NotNil(t, fn)
	fn(context.Background(), &tgbotapi.Message{})
	assert.Equal(t, 1, called)

	// The binding is gone after the first consume.
	assert.Nil(t, w.Consume(42, 7))
}

func TestReplyWaiterUnknownKey(t *testing.T) {
	w := NewReplyWaiter()
	w.Bind(42, 7, func(ctx context.Context, message *tgbotapi.Message) {})

	assert.Nil(t, w.Consume(42, 8))
	assert.Nil(t, w.Consume(43, 7))
}

func TestReplyWaiterExpiry(t *testing.T) {
	w := NewReplyWaiter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	w.Bind(42, 7, func(ctx context.Context, message *tgbotapi.Message) {})

	now = now.Add(replyBindingTTL + time.Minute)
	assert.Nil(t, w.Consume(42, 7))
}

func TestReplyWaiterSweepsExpiredOnBind(t *testing.T) {
	w := NewReplyWaiter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	w.Bind(42, 1, func(ctx context.Context, message *tgbotapi.Message) {})
	w.Bind(42, 2, func(ctx context.Context, message *tgbotapi.Message) {})
	assert.Equal(t, 2, w.Len())

	now = now.Add(replyBindingTTL + time.Minute)
	w.Bind(42, 3, func(ctx context.Context, message *tgbotapi.Message) {})

	// The two stale bindings were dropped when the new one went in.
	assert.Equal(t, 1, w.Len())
	assert.NotNil(t, w.Consume(42, 3))
}
