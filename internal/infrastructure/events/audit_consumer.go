package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/pulsewall/pulsewall/internal/domain"
	"github.com/pulsewall/pulsewall/internal/infrastructure/contracts"
	"github.com/pulsewall/pulsewall/internal/infrastructure/logging"
	"github.com/pulsewall/pulsewall/internal/infrastructure/messaging"
)

// auditConsumer turns lifecycle events into durable audit log documents.
type auditConsumer struct {
	rabbitmq *messaging.RabbitMQ
	audit    domain.AuditRepository
	logger   logging.Logger
}

func NewAuditConsumer(rabbitmq *messaging.RabbitMQ, audit domain.AuditRepository, logger logging.Logger) *auditConsumer {
	return &auditConsumer{
		rabbitmq: rabbitmq,
		audit:    audit,
		logger:   logger,
	}
}

func (c *auditConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.AuditQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		var envelope contracts.AmqpMessage
		if err := json.Unmarshal(msg.Body, &envelope); err != nil {
			return fmt.Errorf("failed to unmarshal envelope: %w", err)
		}

		entry, err := c.toAuditLog(msg.RoutingKey, envelope)
		if err != nil {
			return err
		}

		if err := c.audit.Log(ctx, entry); err != nil {
			return fmt.Errorf("failed to persist audit log: %w", err)
		}

		c.logger.Debug(logging.RabbitMQ, logging.ExternalService, "audit log recorded", map[logging.ExtraKey]any{
			logging.EventID: envelope.EventID,
			"type":          string(entry.Type),
		})

		return nil
	})
}

func (c *auditConsumer) toAuditLog(routingKey string, envelope contracts.AmqpMessage) (*domain.AuditLog, error) {
	switch routingKey {
	case contracts.EventPollCreated:
		var payload messaging.PollEventData
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, err
		}
		return domain.NewPollCreatedLog(payload.Poll.EventID, payload.Poll.ID, payload.Poll.Duration), nil

	case contracts.EventPollEnded:
		var payload messaging.PollEventData
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, err
		}
		return domain.NewPollEndedLog(payload.Poll.EventID, payload.Poll.ID, payload.Poll.TotalVotes()), nil

	case contracts.EventVoteCast:
		var payload messaging.PollEventData
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, err
		}
		optionIndex := -1
		if payload.OptionIndex != nil {
			optionIndex = *payload.OptionIndex
		}
		return domain.NewVoteCastLog(payload.Poll.EventID, payload.Poll.ID, optionIndex), nil

	case contracts.EventMessagePosted:
		var payload messaging.MessageEventData
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, err
		}
		return domain.NewMessagePostedLog(payload.Message.EventID, payload.Message.ID), nil
	}

	return nil, fmt.Errorf("unknown routing key: %s", routingKey)
}
