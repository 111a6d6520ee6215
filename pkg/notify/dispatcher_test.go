package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingSender records delivered messages and fails the first failures calls
type recordingSender struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []Message
	block    chan struct{}
}

func (s *recordingSender) SendMessage(ctx context.Context, chatID, text string) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("telegram unavailable")
	}
	s.sent = append(s.sent, Message{ChatID: chatID, Text: text})
	return nil
}

func (s *recordingSender) snapshot() (int, []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, append([]Message(nil), s.sent...)
}

func TestDispatcher_DeliversToAdminByDefault(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, Options{AdminChatID: "admin", QueueSize: 4, MaxAttempts: 1}, zap.NewNop())

	assert.True(t, d.Enqueue(Message{Text: "hello admin"}))
	assert.True(t, d.Enqueue(Message{ChatID: "42", Text: "hello volunteer"}))
	require.NoError(t, d.Close(context.Background()))

	_, sent := sender.snapshot()
	assert.Equal(t, []Message{
		{ChatID: "admin", Text: "hello admin"},
		{ChatID: "42", Text: "hello volunteer"},
	}, sent)
}

func TestDispatcher_RetriesThenSucceeds(t *testing.T) {
	sender := &recordingSender{failures: 2}
	d := NewDispatcher(sender, Options{AdminChatID: "admin", QueueSize: 1, MaxAttempts: 3, RetryDelay: time.Millisecond}, zap.NewNop())

	d.Enqueue(Message{Text: "retry me"})
	require.NoError(t, d.Close(context.Background()))

	calls, sent := sender.snapshot()
	assert.Equal(t, 3, calls)
	assert.Len(t, sent, 1)
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	sender := &recordingSender{failures: 10}
	d := NewDispatcher(sender, Options{AdminChatID: "admin", QueueSize: 1, MaxAttempts: 2, RetryDelay: time.Millisecond}, zap.NewNop())

	d.Enqueue(Message{Text: "never arrives"})
	require.NoError(t, d.Close(context.Background()))

	calls, sent := sender.snapshot()
	assert.Equal(t, 2, calls)
	assert.Empty(t, sent)
}

func TestDispatcher_EnqueueNeverBlocksWhenFull(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(sender, Options{AdminChatID: "admin", QueueSize: 1, MaxAttempts: 1}, zap.NewNop())

	// first message is picked up by the worker and blocks in the sender,
	// so the queue itself can hold exactly one more
	accepted := 0
	for i := 0; i < 5; i++ {
		if d.Enqueue(Message{Text: "spam"}) {
			accepted++
		}
	}
	assert.GreaterOrEqual(t, accepted, 1)
	assert.LessOrEqual(t, accepted, 2)

	close(sender.block)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_CloseCancelsOnDeadline(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(sender, Options{AdminChatID: "admin", QueueSize: 2, MaxAttempts: 1}, zap.NewNop())

	d.Enqueue(Message{Text: "stuck"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := d.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.False(t, d.Enqueue(Message{Text: "after close"}))
}
