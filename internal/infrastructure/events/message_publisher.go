package events

import (
	"context"
	"encoding/json"

	"github.com/pulsewall/pulsewall/internal/domain"
	"github.com/pulsewall/pulsewall/internal/infrastructure/contracts"
	"github.com/pulsewall/pulsewall/internal/infrastructure/messaging"
)

type MessagePublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewMessagePublisher(rabbitmq *messaging.RabbitMQ) *MessagePublisher {
	return &MessagePublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *MessagePublisher) MessagePosted(ctx context.Context, message *domain.Message) error {
	data, err := json.Marshal(messaging.MessageEventData{Message: *message})
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, contracts.EventMessagePosted, contracts.AmqpMessage{
		EventID: message.EventID,
		Data:    data,
	})
}
