package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"coffee-telegram/services"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher queues reward notices on RabbitMQ. It implements services.RewardNotifier.
type Publisher struct {
	conn Connection
}

var _ services.RewardNotifier = (*Publisher)(nil)

func NewPublisher(conn Connection) *Publisher {
	return &Publisher{conn: conn}
}

func (p *Publisher) NotifyReward(ctx context.Context, n services.RewardNotice) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := declareRewards(ch); err != nil {
		return err
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}
	err = ch.PublishWithContext(ctx, RewardsExchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    fmt.Sprintf("reward-%d", n.OrderID),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish notice: %w", err)
	}
	return nil
}
