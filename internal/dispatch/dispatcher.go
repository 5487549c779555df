// Package dispatch delivers alert and report notifications to configured
// chat destinations with bounded retries and pluggable locale formatting.
package dispatch

import (
	"context"
	"log"
	"time"

	"github.com/burjnawas/sitecoord/internal/metrics"
	"github.com/burjnawas/sitecoord/internal/models"
)

// Sender is the outbound side of the messaging transport.
type Sender interface {
	// SendMessage delivers text to a chat.
	SendMessage(ctx context.Context, chatID, text string) error
	// SendDocument delivers a file to a chat with an optional caption.
	SendDocument(ctx context.Context, chatID, filePath, caption string) error
}

// Message is one queued delivery. FilePath, when set, makes this a
// document delivery with Text as the caption.
type Message struct {
	Text     string
	FilePath string
}

// item is a queued delivery with its resolved destination.
type item struct {
	target   string
	message  Message
	severity models.Severity
}

// Options configures a Dispatcher.
type Options struct {
	// QueueSize bounds the delivery queue. Producers never block; when
	// the queue is full the message is dropped with a logged failure.
	QueueSize int
	// MaxAttempts bounds delivery retries (default 3).
	MaxAttempts int
	// RetryInitial is the first retry delay (default 1s).
	RetryInitial time.Duration
	// RetryMax caps the retry delay (default 30s).
	RetryMax time.Duration
}

// DefaultOptions returns default dispatcher options.
func DefaultOptions() Options {
	return Options{
		QueueSize:    64,
		MaxAttempts:  3,
		RetryInitial: time.Second,
		RetryMax:     30 * time.Second,
	}
}

// Dispatcher is the delivery queue. Delivery is best-effort: a message
// that still fails after MaxAttempts is dropped and logged, never
// propagated back to the producing component.
type Dispatcher struct {
	sender  Sender
	opts    Options
	queue   chan item
	backoff *Backoff
	done    chan struct{}
}

// NewDispatcher creates a dispatcher over the given sender.
func NewDispatcher(sender Sender, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryInitial <= 0 {
		opts.RetryInitial = time.Second
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = 30 * time.Second
	}
	backoff := NewBackoff()
	backoff.Initial = opts.RetryInitial
	backoff.Max = opts.RetryMax
	return &Dispatcher{
		sender:  sender,
		opts:    opts,
		queue:   make(chan item, opts.QueueSize),
		backoff: backoff,
		done:    make(chan struct{}),
	}
}

// Dispatch enqueues a message for delivery. It never blocks the caller;
// when the queue is full the message is dropped with a logged failure.
func (d *Dispatcher) Dispatch(target string, message Message, severity models.Severity) {
	select {
	case d.queue <- item{target: target, message: message, severity: severity}:
	default:
		metrics.DispatchDroppedTotal.Inc()
		log.Printf("dispatch: queue full, dropped %s message for %s", severity, target)
	}
}

// Run consumes the queue until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-d.queue:
			d.deliver(ctx, it)
		}
	}
}

// Done is closed when Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// deliver attempts a single queued delivery with bounded backoff. The
// backoff is shared across deliveries and reset per message; the queue
// has a single consumer so the sequence never interleaves.
func (d *Dispatcher) deliver(ctx context.Context, it item) {
	d.backoff.Reset()

	var lastErr error
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		metrics.DispatchAttemptsTotal.Inc()

		if it.message.FilePath != "" {
			lastErr = d.sender.SendDocument(ctx, it.target, it.message.FilePath, it.message.Text)
		} else {
			lastErr = d.sender.SendMessage(ctx, it.target, it.message.Text)
		}
		if lastErr == nil {
			return
		}

		if attempt < d.opts.MaxAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.backoff.Next()):
			}
		}
	}

	metrics.DispatchDroppedTotal.Inc()
	log.Printf("dispatch: dropped %s message for %s after %d attempts: %v",
		it.severity, it.target, d.opts.MaxAttempts, lastErr)
}
