package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/sapliy/payment-service/pkg/monitoring"
)

const publishTimeout = 10 * time.Second

// Broker delivers a serialized event to one bus.
type Broker interface {
	PublishEvent(ctx context.Context, routingKey string, body []byte) error
}

// Dispatcher decouples request handling from bus connectivity: Dispatch is a
// non-blocking enqueue, and a single consumer goroutine performs the actual
// publishes. Publish failures are logged and counted, never propagated.
// With no brokers configured the dispatcher degrades to a logged no-op.
type Dispatcher struct {
	queue   chan Event
	brokers []Broker
	logger  *slog.Logger

	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewDispatcher(logger *slog.Logger, buffer int, brokers ...Broker) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Dispatcher{
		queue:   make(chan Event, buffer),
		brokers: brokers,
		logger:  logger,
		quit:    make(chan struct{}),
	}
}

// Start launches the consumer goroutine. It returns immediately.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-d.quit:
				return
			case evt := <-d.queue:
				d.publish(evt)
			}
		}
	}()
}

// Dispatch enqueues an event without blocking. If the queue is full the event
// is dropped and counted; best-effort delivery never stalls a caller.
func (d *Dispatcher) Dispatch(evt Event) {
	select {
	case d.queue <- evt:
	default:
		d.logger.Warn("event queue full, dropping event", "routing_key", evt.RoutingKey())
		monitoring.EventsPublished.WithLabelValues("dropped").Inc()
	}
}

// Close stops the consumer goroutine. Events still queued are abandoned.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.quit) })
	d.wg.Wait()
}

func (d *Dispatcher) publish(evt Event) {
	key := evt.RoutingKey()

	if len(d.brokers) == 0 {
		d.logger.Info("event publishing disabled, would publish", "routing_key", key)
		return
	}

	body, err := json.Marshal(evt)
	if err != nil {
		d.logger.Error("failed to marshal event", "routing_key", key, "error", err)
		monitoring.EventsPublished.WithLabelValues("failed").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	for _, b := range d.brokers {
		if err := b.PublishEvent(ctx, key, body); err != nil {
			d.logger.Warn("failed to publish event", "routing_key", key, "error", err)
			monitoring.EventsPublished.WithLabelValues("failed").Inc()
			continue
		}
		monitoring.EventsPublished.WithLabelValues("published").Inc()
	}
}
