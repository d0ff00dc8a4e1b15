package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ai-voicebot-be/internal/dto"
	"ai-voicebot-be/internal/pkg/logger"
	"ai-voicebot-be/pkg/knowledge"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	ingestErr error
	tenants   []string
	dirs      []string
}

func (s *fakeStore) Ingest(_ context.Context, tenantID, sourceDir string) error {
	if s.ingestErr != nil {
		return s.ingestErr
	}
	s.tenants = append(s.tenants, tenantID)
	s.dirs = append(s.dirs, sourceDir)
	return nil
}

func (s *fakeStore) Retriever(_ string, _ int) (knowledge.Retriever, error) {
	return nil, knowledge.ErrTenantNotIngested
}

func newTestPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
}

func TestIngestPublishesCompletionEvent(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.txt"), []byte("content"), 0644))

	pubSub := newTestPubSub()
	defer pubSub.Close()

	events, err := pubSub.Subscribe(context.Background(), "test.topic")
	require.NoError(t, err)

	store := &fakeStore{}
	svc := NewIngestService(store, pubSub, "test.topic", logger.NewNopLogger())

	res, err := svc.Ingest(context.Background(), &dto.IngestRequest{
		TenantId:   "tenant-a",
		SourcePath: docs,
	})
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", res.TenantId)
	assert.Equal(t, []string{"tenant-a"}, store.tenants)
	assert.Equal(t, []string{docs}, store.dirs)

	select {
	case msg := <-events:
		var event dto.IngestCompletedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "tenant-a", event.TenantId)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("expected an ingest completed event")
	}
}

func TestIngestMissingDirectory(t *testing.T) {
	pubSub := newTestPubSub()
	defer pubSub.Close()

	svc := NewIngestService(&fakeStore{}, pubSub, "test.topic", logger.NewNopLogger())

	_, err := svc.Ingest(context.Background(), &dto.IngestRequest{
		TenantId:   "tenant-a",
		SourcePath: "/nonexistent/path",
	})
	require.Error(t, err)

	var fiberErr *fiber.Error
	require.True(t, errors.As(err, &fiberErr))
	assert.Equal(t, fiber.StatusBadRequest, fiberErr.Code)
}

func TestIngestEmptyDirectory(t *testing.T) {
	pubSub := newTestPubSub()
	defer pubSub.Close()

	store := &fakeStore{ingestErr: knowledge.ErrNoDocuments}
	svc := NewIngestService(store, pubSub, "test.topic", logger.NewNopLogger())

	_, err := svc.Ingest(context.Background(), &dto.IngestRequest{
		TenantId:   "tenant-a",
		SourcePath: t.TempDir(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, knowledge.ErrNoDocuments))
}

func TestIngestStoreFailureDoesNotPublish(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.txt"), []byte("content"), 0644))

	pubSub := newTestPubSub()
	defer pubSub.Close()

	events, err := pubSub.Subscribe(context.Background(), "test.topic")
	require.NoError(t, err)

	store := &fakeStore{ingestErr: errors.New("embedding backend down")}
	svc := NewIngestService(store, pubSub, "test.topic", logger.NewNopLogger())

	_, err = svc.Ingest(context.Background(), &dto.IngestRequest{
		TenantId:   "tenant-a",
		SourcePath: docs,
	})
	require.Error(t, err)

	select {
	case <-events:
		t.Fatal("no event should be published on failure")
	case <-time.After(200 * time.Millisecond):
	}
}
