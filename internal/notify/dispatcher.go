package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/erazemk/cautela/internal/obs"
)

// maxWarnings bounds the list of recent delivery failures.
const maxWarnings = 50

// Warning records one message that could not be delivered.
type Warning struct {
	At      time.Time `json:"at"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Error   string    `json:"error"`
}

type job struct {
	msg     Message
	barrier chan struct{}
}

// Dispatcher queues messages and delivers them from a single worker at a
// bounded rate.
type Dispatcher struct {
	sender  Sender
	limiter *rate.Limiter
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	done   chan struct{}

	warnMu   sync.Mutex
	warnings []Warning
}

// DispatcherOptions tunes a Dispatcher. Zero values pick defaults.
type DispatcherOptions struct {
	QueueSize int
	PerSecond float64
	Burst     int
	Timeout   time.Duration
}

// NewDispatcher starts a dispatcher delivering through sender.
func NewDispatcher(sender Sender, opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.PerSecond <= 0 {
		opts.PerSecond = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	d := &Dispatcher{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(opts.PerSecond), opts.Burst),
		timeout: opts.Timeout,
		jobs:    make(chan job, opts.QueueSize),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue queues msgs without blocking and returns how many were accepted.
// Messages without a recipient, or that do not fit the queue, are dropped
// with a warning.
func (d *Dispatcher) Enqueue(msgs ...Message) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		for _, m := range msgs {
			d.warn(m, errors.New("dispatcher closed"))
		}
		return 0
	}

	queued := 0
	for _, m := range msgs {
		if m.To == "" {
			d.warn(m, errors.New("no recipient address"))
			continue
		}
		select {
		case d.jobs <- job{msg: m}:
			queued++
		default:
			d.warn(m, errors.New("notification queue full"))
		}
	}
	return queued
}

// Flush waits until every message queued before the call was handled.
func (d *Dispatcher) Flush(ctx context.Context) error {
	barrier := make(chan struct{})

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return nil
	}
	select {
	case d.jobs <- job{barrier: barrier}:
		d.mu.RUnlock()
	case <-ctx.Done():
		d.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	<-d.done
}

// Warnings returns recent delivery failures, oldest first.
func (d *Dispatcher) Warnings() []Warning {
	d.warnMu.Lock()
	defer d.warnMu.Unlock()
	return append([]Warning(nil), d.warnings...)
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for j := range d.jobs {
		if j.barrier != nil {
			close(j.barrier)
			continue
		}
		d.deliver(j.msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		d.warn(msg, err)
		return
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		d.warn(msg, err)
		return
	}
	obs.Notifications.WithLabelValues("ok").Inc()
	slog.Info("notification sent", "to", msg.To, "subject", msg.Subject)
}

func (d *Dispatcher) warn(msg Message, err error) {
	obs.Notifications.WithLabelValues("error").Inc()
	slog.Warn("notification not delivered", "to", msg.To, "subject", msg.Subject, "error", err)

	d.warnMu.Lock()
	defer d.warnMu.Unlock()
	d.warnings = append(d.warnings, Warning{At: time.Now(), To: msg.To, Subject: msg.Subject, Error: err.Error()})
	if len(d.warnings) > maxWarnings {
		d.warnings = d.warnings[len(d.warnings)-maxWarnings:]
	}
}
