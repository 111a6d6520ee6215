package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message is one outbound chat message. An empty ChatID targets the admin chat.
type Message struct {
	ChatID string
	Text   string
}

// Sender delivers a message to a chat
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// Options configures a Dispatcher
type Options struct {
	AdminChatID string
	QueueSize   int
	MaxAttempts int
	RetryDelay  time.Duration
}

// Dispatcher delivers messages on a single background worker fed by a bounded queue.
// Delivery is best effort: failures are logged after the final attempt and dropped.
type Dispatcher struct {
	sender Sender
	opts   Options
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Message

	cancel context.CancelFunc
	done   chan struct{}
}

// NewDispatcher creates a Dispatcher and starts its worker
func NewDispatcher(sender Sender, opts Options, logger *zap.Logger) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sender: sender,
		opts:   opts,
		logger: logger,
		queue:  make(chan Message, opts.QueueSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go d.run(ctx)
	return d
}

// Enqueue queues msg without blocking. It returns false if the message was dropped
// because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(msg Message) bool {
	if msg.ChatID == "" {
		msg.ChatID = d.opts.AdminChatID
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.Warn("Dropping notification, dispatcher closed", zap.String("chat_id", msg.ChatID))
		return false
	}

	select {
	case d.queue <- msg:
		return true
	default:
		d.logger.Warn("Dropping notification, queue full",
			zap.String("chat_id", msg.ChatID),
			zap.Int("queue_size", d.opts.QueueSize))
		return false
	}
}

// Close stops accepting messages and waits for queued ones to be delivered.
// If ctx expires first, in-flight delivery is cancelled and the rest are dropped.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-d.done
		return fmt.Errorf("notification queue not drained: %w", ctx.Err())
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	for msg := range d.queue {
		if ctx.Err() != nil {
			d.logger.Warn("Discarding notification after shutdown", zap.String("chat_id", msg.ChatID))
			continue
		}
		d.deliver(ctx, msg)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	if msg.ChatID == "" {
		d.logger.Warn("Dropping notification with no recipient")
		return
	}

	var err error
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		err = d.sender.SendMessage(ctx, msg.ChatID, msg.Text)
		if err == nil {
			d.logger.Debug("Notification delivered",
				zap.String("chat_id", msg.ChatID),
				zap.Int("attempt", attempt))
			return
		}

		d.logger.Debug("Notification attempt failed",
			zap.String("chat_id", msg.ChatID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt == d.opts.MaxAttempts {
			break
		}
		select {
		case <-time.After(d.opts.RetryDelay):
		case <-ctx.Done():
			d.logger.Warn("Notification retry abandoned on shutdown",
				zap.String("chat_id", msg.ChatID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return
		}
	}

	d.logger.Warn("Notification delivery failed",
		zap.String("chat_id", msg.ChatID),
		zap.Int("attempts", d.opts.MaxAttempts),
		zap.Error(err))
}
