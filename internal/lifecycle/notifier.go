package lifecycle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notifier is the broadcast half of the refresh contract: mutating components
// call Broadcast after a confirmed change, mounted components Subscribe for
// their lifetime. When a Redis client is configured the signal is relayed
// across processes as well; without one the notifier is process-local.
type Notifier struct {
	dispatcher Dispatcher
	rdb        *redis.Client
	channel    string
	origin     string
	logger     *zap.Logger
}

// NewNotifier creates a notifier. rdb may be nil.
func NewNotifier(dispatcher Dispatcher, rdb *redis.Client, channel string, logger *zap.Logger) *Notifier {
	return &Notifier{
		dispatcher: dispatcher,
		rdb:        rdb,
		channel:    channel,
		origin:     uuid.NewString(),
		logger:     logger,
	}
}

// Broadcast publishes a ticket-updated signal to local subscribers and, when
// available, to the Redis channel. Relay failures are logged, never returned:
// the poll interval bounds staleness even if the push channel is down.
func (n *Notifier) Broadcast(ctx context.Context, ticketID string) {
	signal := Signal{
		ID:        uuid.NewString(),
		Type:      SignalTicketUpdated,
		TicketID:  ticketID,
		Origin:    n.origin,
		Timestamp: time.Now(),
	}
	_ = n.dispatcher.Publish(ctx, signal)

	if n.rdb == nil {
		return
	}
	payload, err := json.Marshal(signal)
	if err != nil {
		return
	}
	if err := n.rdb.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.logger.Warn("lifecycle relay publish failed", zap.Error(err))
	}
}

// Subscribe registers a handler for ticket-updated signals.
func (n *Notifier) Subscribe(handler SignalHandler) *Subscription {
	return n.dispatcher.Subscribe(SignalTicketUpdated, handler)
}

// Run consumes the Redis channel and replays remote signals onto the local
// dispatcher. Self-originated signals are skipped so a broadcast is delivered
// locally exactly once. Run blocks until ctx is cancelled; it is a no-op when
// no Redis client is configured.
func (n *Notifier) Run(ctx context.Context) {
	if n.rdb == nil {
		return
	}
	sub := n.rdb.Subscribe(ctx, n.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var signal Signal
			if err := json.Unmarshal([]byte(msg.Payload), &signal); err != nil {
				n.logger.Warn("lifecycle relay malformed payload", zap.Error(err))
				continue
			}
			if signal.Origin == n.origin {
				continue
			}
			_ = n.dispatcher.Publish(ctx, signal)
		}
	}
}
