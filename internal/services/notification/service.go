// Package notification delivers lifecycle emails outside the request path.
// SendEmail never blocks on the network and never returns an error; failed
// deliveries are logged and dropped.
package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Email is one message to one recipient.
type Email struct {
	To      string
	Name    string
	Subject string
	Message string
}

// Sender performs the actual delivery.
type Sender interface {
	Deliver(ctx context.Context, email Email) error
}

type DispatcherConfig struct {
	Workers   int
	QueueSize int
	// Timeout bounds a single delivery.
	Timeout time.Duration
}

// Dispatcher queues emails and drains them with a fixed worker group.
type Dispatcher struct {
	sender Sender
	cfg    DispatcherConfig
	queue  chan Email
	group  *errgroup.Group

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sender Sender, cfg DispatcherConfig) *Dispatcher {
	if sender == nil {
		panic("sender is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	d := &Dispatcher{
		sender: sender,
		cfg:    cfg,
		queue:  make(chan Email, cfg.QueueSize),
		group:  new(errgroup.Group),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.group.Go(d.work)
	}
	return d
}

// SendEmail enqueues email. A full or closed queue drops the message.
func (d *Dispatcher) SendEmail(_ context.Context, email Email) {
	if email.To == "" {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		slog.Warn("notification dropped after shutdown", "module", "notification", "to", email.To, "subject", email.Subject)
		return
	}

	select {
	case d.queue <- email:
	default:
		slog.Warn("notification queue full, dropping email",
			"module", "notification",
			"to", email.To,
			"subject", email.Subject,
		)
	}
}

func (d *Dispatcher) work() error {
	for email := range d.queue {
		d.deliver(email)
	}
	return nil
}

func (d *Dispatcher) deliver(email Email) {
	// Deliveries are detached from the request that triggered them.
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	if err := d.sender.Deliver(ctx, email); err != nil {
		slog.Error("failed to send email",
			"module", "notification",
			"operation", "deliver",
			"to", email.To,
			"subject", email.Subject,
			"outcome", "failure",
			"error", err,
		)
		return
	}
	slog.Debug("email sent", "module", "notification", "to", email.To, "subject", email.Subject)
}

// Close stops accepting emails and waits for queued ones to be delivered.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	return d.group.Wait()
}
