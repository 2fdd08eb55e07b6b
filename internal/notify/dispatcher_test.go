package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"sortec/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []entity.NotificationIntent
	err     error
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeNotifier) Send(_ context.Context, intent entity.NotificationIntent) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, intent)
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeObserver struct {
	mu     sync.Mutex
	done   map[entity.NotificationKind]int
	failed int
}

func (o *fakeObserver) NotificationDone(kind entity.NotificationKind, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.done == nil {
		o.done = make(map[entity.NotificationKind]int)
	}
	o.done[kind]++
	if err != nil {
		o.failed++
	}
}

func (o *fakeObserver) SetQueueLength(int) {}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intent(kind entity.NotificationKind, id string) entity.NotificationIntent {
	return entity.NotificationIntent{
		Kind:      kind,
		Recipient: "someone@example.com",
		Payload:   entity.NotificationPayload{RegistrationId: id},
	}
}

func TestDispatcher_DeliversEveryIntentOnce(t *testing.T) {
	next := &fakeNotifier{}
	observer := &fakeObserver{}
	d := NewDispatcher(next, Config{Workers: 3, QueueSize: 10}, discardLogger())
	d.SetObserver(observer)
	d.Start()

	for i := 0; i < 10; i++ {
		require.NoError(t, d.Send(context.Background(), intent(entity.KindApproved, "r")))
	}
	d.Stop()

	assert.Equal(t, 10, next.count())
	assert.Equal(t, 10, observer.done[entity.KindApproved])
	assert.Zero(t, observer.failed)
}

func TestDispatcher_FailureIsCountedNotRetried(t *testing.T) {
	next := &fakeNotifier{err: errors.New("smtp down")}
	observer := &fakeObserver{}
	d := NewDispatcher(next, Config{}, discardLogger())
	d.SetObserver(observer)
	d.Start()

	require.NoError(t, d.Send(context.Background(), intent(entity.KindDenied, "r")))
	d.Stop()

	assert.Equal(t, 1, next.count())
	assert.Equal(t, 1, observer.failed)
}

func TestDispatcher_QueueFull(t *testing.T) {
	next := &fakeNotifier{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	observer := &fakeObserver{}
	d := NewDispatcher(next, Config{Workers: 1, QueueSize: 1, EnqueueTimeout: 20 * time.Millisecond}, discardLogger())
	d.SetObserver(observer)
	d.Start()

	// first intent occupies the worker, second fills the queue
	require.NoError(t, d.Send(context.Background(), intent(entity.KindApproved, "1")))
	<-next.entered
	require.NoError(t, d.Send(context.Background(), intent(entity.KindApproved, "2")))

	err := d.Send(context.Background(), intent(entity.KindApproved, "3"))
	var derr *entity.DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, entity.KindApproved, derr.Kind)

	close(next.block)
	d.Stop()
	assert.Equal(t, 2, next.count())
	assert.Equal(t, 3, observer.done[entity.KindApproved])
	assert.Equal(t, 1, observer.failed)
}

func TestDispatcher_SendAfterStop(t *testing.T) {
	observer := &fakeObserver{}
	d := NewDispatcher(&fakeNotifier{}, Config{}, discardLogger())
	d.SetObserver(observer)
	d.Start()
	d.Stop()
	d.Stop()

	err := d.Send(context.Background(), intent(entity.KindAdminReview, "r"))
	assert.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, 1, observer.done[entity.KindAdminReview])
	assert.Equal(t, 1, observer.failed)
}

func TestDispatcher_StopWithoutStartDrains(t *testing.T) {
	next := &fakeNotifier{}
	d := NewDispatcher(next, Config{QueueSize: 5}, discardLogger())

	require.NoError(t, d.Send(context.Background(), intent(entity.KindAdminReview, "r")))
	assert.Equal(t, 1, d.Len())
	d.Stop()

	assert.Equal(t, 1, next.count())
}

func TestFanout(t *testing.T) {
	ok := &fakeNotifier{}
	failing := &fakeNotifier{err: errors.New("no route")}

	err := Fanout{ok, nil, failing}.Send(context.Background(), intent(entity.KindApproved, "r"))
	var derr *entity.DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, err.Error(), "no route")
	assert.Equal(t, 1, ok.count())
	assert.Equal(t, 1, failing.count())

	assert.NoError(t, Fanout{ok}.Send(context.Background(), intent(entity.KindApproved, "r")))
}
