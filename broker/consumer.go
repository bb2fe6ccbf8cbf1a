package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"coffee-telegram/services"

	amqp "github.com/rabbitmq/amqp091-go"
)

const reconnectDelay = 5 * time.Second

// Consumer delivers queued reward notices through a services.RewardNotifier, usually the bot.
type Consumer struct {
	conn     Connection
	handler  services.RewardNotifier
	prefetch int
}

func NewConsumer(conn Connection, handler services.RewardNotifier, prefetch int) *Consumer {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Consumer{conn: conn, handler: handler, prefetch: prefetch}
}

// Run consumes until ctx is done, reconnecting after channel failures.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("rewards consumer disconnected: %v. Reconnecting in %s...", err, reconnectDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	closeChan := ch.NotifyClose(make(chan *amqp.Error, 1))
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	if err := declareRewards(ch); err != nil {
		return err
	}
	msgs, err := ch.Consume(RewardsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}
			c.handle(ctx, msg)
		}
	}
}

// handle acks delivered notices; undecodable or undeliverable ones go to the dead-letter queue.
func (c *Consumer) handle(ctx context.Context, msg amqp.Delivery) {
	var n services.RewardNotice
	if err := json.Unmarshal(msg.Body, &n); err != nil {
		log.Printf("rewards consumer: bad message %q: %v", msg.MessageId, err)
		_ = msg.Nack(false, false)
		return
	}
	if err := c.handler.NotifyReward(ctx, n); err != nil {
		log.Printf("rewards consumer: order_id=%d customer=%d: %v", n.OrderID, n.CustomerTgID, err)
		_ = msg.Nack(false, false)
		return
	}
	_ = msg.Ack(false)
}
