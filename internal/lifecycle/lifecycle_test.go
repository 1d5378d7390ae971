package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcherDeliversToAllSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var got []string
	var mu sync.Mutex
	record := func(name string) SignalHandler {
		return func(_ context.Context, signal Signal) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, name+":"+signal.TicketID)
			return nil
		}
	}

	dispatcher.Subscribe(SignalTicketUpdated, record("a"))
	dispatcher.Subscribe(SignalTicketUpdated, record("b"))

	require.NoError(t, dispatcher.Publish(context.Background(), Signal{
		Type:     SignalTicketUpdated,
		TicketID: "t1",
	}))

	assert.ElementsMatch(t, []string{"a:t1", "b:t1"}, got)
}

func TestSubscriptionCancelStopsDelivery(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	calls := 0
	sub := dispatcher.Subscribe(SignalTicketUpdated, func(context.Context, Signal) error {
		calls++
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Signal{Type: SignalTicketUpdated}))
	sub.Cancel()
	sub.Cancel() // idempotent
	require.NoError(t, dispatcher.Publish(context.Background(), Signal{Type: SignalTicketUpdated}))

	assert.Equal(t, 1, calls)
}

func TestNotifierBroadcastReachesSubscribers(t *testing.T) {
	notifier := NewNotifier(NewInMemoryDispatcher(), nil, "test", zap.NewNop())

	var received Signal
	sub := notifier.Subscribe(func(_ context.Context, signal Signal) error {
		received = signal
		return nil
	})
	defer sub.Cancel()

	notifier.Broadcast(context.Background(), "t9")

	assert.Equal(t, SignalTicketUpdated, received.Type)
	assert.Equal(t, "t9", received.TicketID)
	assert.NotEmpty(t, received.ID)
	assert.NotEmpty(t, received.Origin)
}

func TestPollerStopsOnCancel(t *testing.T) {
	var ticks atomic.Int64
	poller := NewPoller(5*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}

	settled := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, settled, ticks.Load())
}
