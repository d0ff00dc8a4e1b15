package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ai-voicebot-be/internal/dto"
	"ai-voicebot-be/internal/pkg/logger"
	"ai-voicebot-be/pkg/knowledge"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
)

type IIngestService interface {
	Ingest(ctx context.Context, req *dto.IngestRequest) (*dto.IngestResponse, error)
}

type ingestService struct {
	store     knowledge.Store
	pubSub    *gochannel.GoChannel
	topicName string
	logger    logger.ILogger
}

func NewIngestService(
	store knowledge.Store,
	pubSub *gochannel.GoChannel,
	topicName string,
	log logger.ILogger,
) IIngestService {
	return &ingestService{
		store:     store,
		pubSub:    pubSub,
		topicName: topicName,
		logger:    log,
	}
}

// Ingest loads the documents under the source directory into the tenant's
// knowledge base and announces completion on the event bus. Runs to completion
// before returning; the caller gets a definite success or failure.
func (s *ingestService) Ingest(ctx context.Context, req *dto.IngestRequest) (*dto.IngestResponse, error) {
	info, err := os.Stat(req.SourcePath)
	if err != nil || !info.IsDir() {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("source directory not found: %s", req.SourcePath))
	}

	if err := s.store.Ingest(ctx, req.TenantId, req.SourcePath); err != nil {
		s.logger.Error("IngestService", "Ingestion failed", map[string]interface{}{
			"tenant_id": req.TenantId,
			"error":     err.Error(),
		})
		return nil, err
	}

	s.logger.Info("IngestService", "Ingestion complete", map[string]interface{}{
		"tenant_id":  req.TenantId,
		"source_dir": req.SourcePath,
	})

	s.publishCompleted(req.TenantId)

	return &dto.IngestResponse{TenantId: req.TenantId}, nil
}

// publishCompleted is best effort. The knowledge base is already updated; a
// missed notification only delays live sessions hearing about it.
func (s *ingestService) publishCompleted(tenantID string) {
	payload, err := json.Marshal(dto.IngestCompletedEvent{TenantId: tenantID})
	if err != nil {
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.pubSub.Publish(s.topicName, msg); err != nil {
		s.logger.Warn("IngestService", "Failed to publish ingest event", map[string]interface{}{
			"tenant_id": tenantID,
			"error":     err.Error(),
		})
	}
}
