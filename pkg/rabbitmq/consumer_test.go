package rabbitmq

import (
	"sync"
	"testing"

	"github.com/rabbitmq/amqp091-go"
)

type fakeAcknowledger struct {
	mu       sync.Mutex
	acked    []uint64
	requeued []uint64
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if requeue {
		a.requeued = append(a.requeued, tag)
	}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error { return nil }

func TestDispatch(t *testing.T) {
	ack := &fakeAcknowledger{}
	msgs := make(chan amqp091.Delivery, 3)
	msgs <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, RoutingKey: "user.registered", Body: []byte("ok")}
	msgs <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 2, RoutingKey: "user.registered", Body: []byte("fail")}
	msgs <- amqp091.Delivery{Acknowledger: ack, DeliveryTag: 3, RoutingKey: "user.deleted", Body: []byte("ok")}
	close(msgs)

	dispatch(msgs, map[string]Handler{
		"user.registered": func(body []byte) bool { return string(body) == "ok" },
	})

	if len(ack.acked) != 2 || ack.acked[0] != 1 || ack.acked[1] != 3 {
		t.Fatalf("expected deliveries 1 and 3 acknowledged, got %v", ack.acked)
	}
	if len(ack.requeued) != 1 || ack.requeued[0] != 2 {
		t.Fatalf("expected delivery 2 re-queued, got %v", ack.requeued)
	}
}
