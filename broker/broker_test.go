package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"coffee-telegram/services"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu        sync.Mutex
	exchanges []string
	queues    []string
	published []amqp.Publishing
	msgs      chan amqp.Delivery
	closed    bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges = append(f.exchanges, name)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues = append(f.queues, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	return f.msgs, nil
}

func (f *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error { return nil }

func (f *fakeChannel) NotifyClose(c chan *amqp.Error) chan *amqp.Error { return c }

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeConn struct{ ch *fakeChannel }

func (c fakeConn) Channel() (Channel, error) { return c.ch, nil }
func (c fakeConn) Close() error              { return nil }

type ackRecorder struct {
	mu     sync.Mutex
	acks   []uint64
	nacks  []uint64
	signal chan struct{}
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	a.acks = append(a.acks, tag)
	a.mu.Unlock()
	a.signal <- struct{}{}
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	a.nacks = append(a.nacks, tag)
	a.mu.Unlock()
	a.signal <- struct{}{}
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func TestPublisher_NotifyReward(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(fakeConn{ch: ch})

	n := services.RewardNotice{OrderID: 42, CustomerTgID: 100, Earned: 1, CoffeesFree: 2}
	require.NoError(t, p.NotifyReward(context.Background(), n))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	var got services.RewardNotice
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, n, got)
	assert.Contains(t, ch.exchanges, RewardsExchange)
	assert.Contains(t, ch.queues, RewardsQueue)
	assert.True(t, ch.closed)
}

func TestConsumer_AcksDeliveredAndDeadLettersFailures(t *testing.T) {
	ch := &fakeChannel{msgs: make(chan amqp.Delivery, 3)}
	var delivered []int64
	var mu sync.Mutex
	handler := services.RewardNotifierFunc(func(ctx context.Context, n services.RewardNotice) error {
		if n.OrderID == 2 {
			return errors.New("telegram: chat not found")
		}
		mu.Lock()
		delivered = append(delivered, n.OrderID)
		mu.Unlock()
		return nil
	})
	acks := &ackRecorder{signal: make(chan struct{}, 3)}

	for i, body := range []string{`{"order_id":1,"customer_tg_id":100,"earned":1}`, `{"order_id":2}`, `not json`} {
		ch.msgs <- amqp.Delivery{Acknowledger: acks, DeliveryTag: uint64(i + 1), Body: []byte(body)}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- NewConsumer(fakeConn{ch: ch}, handler, 1).Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-acks.signal:
		case <-time.After(time.Second):
			t.Fatal("message not settled")
		}
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, []uint64{1}, acks.acks)
	assert.ElementsMatch(t, []uint64{2, 3}, acks.nacks)
	assert.Equal(t, []int64{1}, delivered)
}
