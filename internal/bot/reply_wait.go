package bot

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// replyBindingTTL is how long a prompt waits for its reply. A user who
// abandons a flow mid-prompt would otherwise leak the binding forever.
const replyBindingTTL = 24 * time.Hour

// ReplyHandler processes the user's reply to a specific prompt message.
type ReplyHandler func(ctx context.Context, message *tgbotapi.Message)

type replyKey struct {
	chatID    int64
	messageID int
}

type replyBinding struct {
	fn        ReplyHandler
	createdAt time.Time
}

// ReplyWaiter maps prompt messages to the handler that should consume the
// user's reply to them. Bindings are one-shot: Consume removes the binding
// it returns, so a second reply to the same prompt falls through to the
// normal message routing.
type ReplyWaiter struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	bindings map[replyKey]replyBinding
}

func NewReplyWaiter() *ReplyWaiter {
	return &ReplyWaiter{
		ttl:      replyBindingTTL,
		now:      time.Now,
		bindings: make(map[replyKey]replyBinding),
	}
}

// Bind registers fn to handle the reply to the given prompt message.
// Expired bindings are swept here rather than by a background goroutine;
// the map only grows when prompts are sent, so this keeps it bounded.
func (w *ReplyWaiter) Bind(chatID int64, messageID int, fn ReplyHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-w.ttl)
	for k, b := range w.bindings {
		if b.createdAt.Before(cutoff) {
			delete(w.bindings, k)
		}
	}

	w.bindings[replyKey{chatID, messageID}] = replyBinding{fn: fn, createdAt: w.now()}
}

// Consume returns the handler bound to the given prompt message and removes
// the binding. Returns nil when no live binding exists.
func (w *ReplyWaiter) Consume(chatID int64, messageID int) ReplyHandler {
	w.mu.Lock()
	defer w.mu.Unlock()

	k := replyKey{chatID, messageID}
	b, ok := w.bindings[k]
	if !ok {
		return nil
	}
	delete(w.bindings, k)

	if b.createdAt.Before(w.now().Add(-w.ttl)) {
		return nil
	}
	return b.fn
}

// Len reports the number of live bindings.
func (w *ReplyWaiter) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.bindings)
}
