package events

import (
	"context"
	"encoding/json"

	"github.com/pulsewall/pulsewall/internal/domain"
	"github.com/pulsewall/pulsewall/internal/infrastructure/contracts"
	"github.com/pulsewall/pulsewall/internal/infrastructure/messaging"
)

// PollPublisher pushes poll lifecycle events onto the wall exchange; the
// audit consumer (and any other interested process) picks them up from there.
type PollPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewPollPublisher(rabbitmq *messaging.RabbitMQ) *PollPublisher {
	return &PollPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *PollPublisher) PollCreated(ctx context.Context, poll *domain.Poll) error {
	return p.publish(ctx, contracts.EventPollCreated, messaging.PollEventData{Poll: *poll})
}

func (p *PollPublisher) PollEnded(ctx context.Context, poll *domain.Poll) error {
	return p.publish(ctx, contracts.EventPollEnded, messaging.PollEventData{Poll: *poll})
}

func (p *PollPublisher) VoteCast(ctx context.Context, poll *domain.Poll, optionIndex int) error {
	return p.publish(ctx, contracts.EventVoteCast, messaging.PollEventData{Poll: *poll, OptionIndex: &optionIndex})
}

func (p *PollPublisher) publish(ctx context.Context, routingKey string, payload messaging.PollEventData) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		EventID: payload.Poll.EventID,
		Data:    data,
	})
}
