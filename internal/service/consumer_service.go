package service

import (
	"context"
	"encoding/json"

	"ai-voicebot-be/internal/dto"
	"ai-voicebot-be/internal/pkg/logger"
	"ai-voicebot-be/internal/websocket"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService pushes knowledge base update notices to the live sessions
// of the affected tenant.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	registry  *websocket.Registry
	logger    logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	registry *websocket.Registry,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		registry:  registry,
		logger:    log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var event dto.IngestCompletedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		cs.logger.Error("ConsumerService", "Failed to unmarshal event", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	cs.logger.Info("ConsumerService", "Knowledge base updated", map[string]interface{}{
		"tenant_id": event.TenantId,
	})

	cs.registry.NotifyTenant(event.TenantId, dto.NewStatusMessage("Knowledge base updated with new documents."))
	msg.Ack()
}
