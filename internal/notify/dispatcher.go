// Package notify delivers notification intents produced by the workflow.
//
// The Dispatcher decouples delivery from the request: Send only enqueues, and
// a small pool of workers performs one delivery attempt per intent. A failed
// attempt is logged and counted, never retried.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"sortec/entity"
	"sortec/lib/sl"
)

var (
	ErrQueueFull = errors.New("notification queue full")
	ErrStopped   = errors.New("dispatcher stopped")
)

type Notifier interface {
	Send(ctx context.Context, intent entity.NotificationIntent) error
}

// Observer is told about every finished delivery attempt and queue changes.
type Observer interface {
	NotificationDone(kind entity.NotificationKind, err error)
	SetQueueLength(n int)
}

type Config struct {
	Workers        int
	QueueSize      int
	EnqueueTimeout time.Duration
	// SendTimeout bounds a single delivery attempt
	SendTimeout time.Duration
}

type Dispatcher struct {
	next     Notifier
	conf     Config
	queue    chan entity.NotificationIntent
	observer Observer
	log      *slog.Logger
	mu       sync.RWMutex
	stopped  bool
	started  bool
	wg       sync.WaitGroup
}

func NewDispatcher(next Notifier, conf Config, log *slog.Logger) *Dispatcher {
	if conf.Workers < 1 {
		conf.Workers = 1
	}
	if conf.QueueSize < 1 {
		conf.QueueSize = 100
	}
	if conf.EnqueueTimeout <= 0 {
		conf.EnqueueTimeout = 500 * time.Millisecond
	}
	if conf.SendTimeout <= 0 {
		conf.SendTimeout = 30 * time.Second
	}
	return &Dispatcher{
		next:  next,
		conf:  conf,
		queue: make(chan entity.NotificationIntent, conf.QueueSize),
		log:   log.With(sl.Module("notify.dispatcher")),
	}
}

func (d *Dispatcher) SetObserver(o Observer) {
	d.observer = o
}

// Start launches the workers; calling it twice has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true
	for i := 0; i < d.conf.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.log.With(
		slog.Int("workers", d.conf.Workers),
		slog.Int("queue_size", d.conf.QueueSize),
	).Debug("dispatcher started")
}

// Send enqueues the intent. It waits at most EnqueueTimeout for a free slot and
// reports a DeliveryError if none becomes available.
func (d *Dispatcher) Send(ctx context.Context, intent entity.NotificationIntent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return d.drop(intent, ErrStopped)
	}

	timer := time.NewTimer(d.conf.EnqueueTimeout)
	defer timer.Stop()

	select {
	case d.queue <- intent:
		d.reportQueue()
		return nil
	case <-timer.C:
		return d.drop(intent, ErrQueueFull)
	case <-ctx.Done():
		return d.drop(intent, ctx.Err())
	}
}

// drop counts an intent that never reached a worker as a failed delivery.
func (d *Dispatcher) drop(intent entity.NotificationIntent, reason error) error {
	err := &entity.DeliveryError{Kind: intent.Kind, Recipient: intent.Recipient, Err: reason}
	if d.observer != nil {
		d.observer.NotificationDone(intent.Kind, err)
	}
	return err
}

// Stop refuses new intents and waits until the queued ones are delivered.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		// nobody is reading, drain inline
		for intent := range d.queue {
			d.deliver(intent)
		}
		return
	}
	d.wg.Wait()
	d.log.Debug("dispatcher stopped")
}

func (d *Dispatcher) Len() int {
	return len(d.queue)
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for intent := range d.queue {
		d.reportQueue()
		d.deliver(intent)
	}
}

func (d *Dispatcher) deliver(intent entity.NotificationIntent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.conf.SendTimeout)
	defer cancel()

	log := d.log.With(
		slog.String("kind", string(intent.Kind)),
		slog.String("registration_id", intent.Payload.RegistrationId),
	)

	t1 := time.Now()
	err := d.next.Send(ctx, intent)
	if d.observer != nil {
		d.observer.NotificationDone(intent.Kind, err)
	}
	if err != nil {
		log.Warn("delivery failed", sl.Err(err))
		return
	}
	log.With(
		slog.Float64("duration", time.Since(t1).Seconds()),
	).Debug("notification delivered")
}

func (d *Dispatcher) reportQueue() {
	if d.observer != nil {
		d.observer.SetQueueLength(len(d.queue))
	}
}
