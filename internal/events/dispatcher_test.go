package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type captureBroker struct {
	published chan publishedEvent
	err       error
}

type publishedEvent struct {
	routingKey string
	body       []byte
}

func newCaptureBroker() *captureBroker {
	return &captureBroker{published: make(chan publishedEvent, 16)}
}

func (b *captureBroker) PublishEvent(ctx context.Context, routingKey string, body []byte) error {
	if b.err != nil {
		return b.err
	}
	b.published <- publishedEvent{routingKey: routingKey, body: body}
	return nil
}

func waitFor(t *testing.T, ch chan publishedEvent) publishedEvent {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publish")
		return publishedEvent{}
	}
}

func TestDispatcherPublishes(t *testing.T) {
	broker := newCaptureBroker()
	d := NewDispatcher(testLogger(), 8, broker)
	d.Start()
	defer d.Close()

	d.Dispatch(NewPaymentProcessed("tx-1", "res-1", "user-1", 99.50, "EUR"))

	got := waitFor(t, broker.published)
	if got.routingKey != "payment.processed" {
		t.Errorf("routing key = %q", got.routingKey)
	}
	var evt PaymentProcessed
	if err := json.Unmarshal(got.body, &evt); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if evt.TransactionID != "tx-1" || evt.Amount != 99.50 || evt.EventType != "payment.processed" {
		t.Errorf("event = %+v", evt)
	}
}

func TestDispatcherFansOutToAllBrokers(t *testing.T) {
	a := newCaptureBroker()
	b := newCaptureBroker()
	d := NewDispatcher(testLogger(), 8, a, b)
	d.Start()
	defer d.Close()

	d.Dispatch(NewPaymentRefunded("rf-1", "tx-1", 25, "overcharge"))

	evtA := waitFor(t, a.published)
	evtB := waitFor(t, b.published)
	if evtA.routingKey != "payment.refunded" || evtB.routingKey != "payment.refunded" {
		t.Errorf("routing keys = %q, %q", evtA.routingKey, evtB.routingKey)
	}
}

func TestDispatcherSwallowsBrokerFailure(t *testing.T) {
	failing := newCaptureBroker()
	failing.err = errors.New("connection reset")
	healthy := newCaptureBroker()
	d := NewDispatcher(testLogger(), 8, failing, healthy)
	d.Start()
	defer d.Close()

	d.Dispatch(NewPaymentProcessed("tx-1", "res-1", "user-1", 10, "EUR"))

	// The failure on the first broker must not stop delivery to the second.
	got := waitFor(t, healthy.published)
	if got.routingKey != "payment.processed" {
		t.Errorf("routing key = %q", got.routingKey)
	}
}

func TestDispatcherNoBrokersIsNoOp(t *testing.T) {
	d := NewDispatcher(testLogger(), 8)
	d.Start()

	d.Dispatch(NewPaymentProcessed("tx-1", "res-1", "user-1", 10, "EUR"))
	d.Close()
}

func TestDispatchNeverBlocks(t *testing.T) {
	// Consumer not started, queue of one: the second dispatch must drop
	// instead of blocking.
	d := NewDispatcher(testLogger(), 1)
	defer d.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Dispatch(NewPaymentProcessed("tx-1", "res-1", "user-1", 10, "EUR"))
		d.Dispatch(NewPaymentProcessed("tx-2", "res-2", "user-2", 10, "EUR"))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}
}
