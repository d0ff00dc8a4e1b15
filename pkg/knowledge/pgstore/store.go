package pgstore

import (
	"context"
	"fmt"
	"time"

	"ai-voicebot-be/internal/pkg/logger"
	"ai-voicebot-be/pkg/embedding"
	"ai-voicebot-be/pkg/knowledge"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// Store backs the knowledge store with Postgres + pgvector. Suited for
// deployments where the index must outlive the process and be shared by
// several backend instances.
type Store struct {
	db       *gorm.DB
	provider embedding.EmbeddingProvider
	logger   logger.ILogger
}

var _ knowledge.Store = &Store{}

func NewStore(db *gorm.DB, provider embedding.EmbeddingProvider, log logger.ILogger) (*Store, error) {
	if err := db.AutoMigrate(&PassageModel{}); err != nil {
		return nil, fmt.Errorf("migrate tenant_passages: %w", err)
	}
	return &Store{
		db:       db,
		provider: provider,
		logger:   log,
	}, nil
}

func (s *Store) Ingest(ctx context.Context, tenantID, sourceDir string) error {
	documents, err := knowledge.LoadDocuments(sourceDir, s.logger)
	if err != nil {
		return err
	}
	if len(documents) == 0 {
		return knowledge.ErrNoDocuments
	}

	chunks := knowledge.ChunkDocuments(documents)

	models := make([]*PassageModel, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := s.provider.Generate(ctx, chunk.Content, embedding.TaskRetrievalDocument)
		if err != nil {
			return fmt.Errorf("embed chunk from %s: %w", chunk.Source, err)
		}
		models = append(models, &PassageModel{
			Id:        uuid.New(),
			TenantId:  tenantID,
			Content:   chunk.Content,
			Source:    chunk.Source,
			Embedding: pgvector.NewVector(vector),
			CreatedAt: time.Now(),
		})
	}

	// Append semantics: repeated ingestion accumulates passages.
	if err := s.db.WithContext(ctx).CreateInBatches(models, 100).Error; err != nil {
		return fmt.Errorf("commit passages: %w", err)
	}

	s.logger.Info("Knowledge", "Ingestion committed", map[string]interface{}{
		"tenant_id": tenantID,
		"documents": len(documents),
		"chunks":    len(chunks),
	})
	return nil
}

func (s *Store) Retriever(tenantID string, k int) (knowledge.Retriever, error) {
	if k <= 0 {
		k = knowledge.DefaultTopK
	}

	var count int64
	if err := s.db.Model(&PassageModel{}).Where("tenant_id = ?", tenantID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, knowledge.ErrTenantNotIngested)
	}

	return &pgRetriever{store: s, tenantID: tenantID, k: k}, nil
}

type pgRetriever struct {
	store    *Store
	tenantID string
	k        int
}

type passageRow struct {
	PassageModel
	Distance float32
}

func (r *pgRetriever) Retrieve(ctx context.Context, query string) ([]knowledge.Passage, error) {
	vector, err := r.store.provider.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// pgvector cosine distance: embedding <=> query vector. The tenant_id
	// filter is what keeps partitions isolated.
	var rows []passageRow
	err = r.store.db.WithContext(ctx).
		Model(&PassageModel{}).
		Select("*, (embedding <=> ?) AS distance", pgvector.NewVector(vector)).
		Where("tenant_id = ?", r.tenantID).
		Order(gorm.Expr("embedding <=> ?", pgvector.NewVector(vector))).
		Limit(r.k).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	passages := make([]knowledge.Passage, 0, len(rows))
	for _, row := range rows {
		passages = append(passages, knowledge.Passage{
			Content: row.Content,
			Source:  row.Source,
			Score:   1 - row.Distance,
		})
	}
	return passages, nil
}
