package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ai-voicebot-be/internal/pkg/logger"
	"ai-voicebot-be/pkg/embedding"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore backs the knowledge store with chromem-go: an embedded,
// disk-persisted vector database with one collection per tenant.
type ChromemStore struct {
	mu      sync.RWMutex
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc
	logger  logger.ILogger
}

var _ Store = &ChromemStore{}

// NewChromemStore creates (or opens) the persistent store at dataDir/vectorstore/.
func NewChromemStore(dataDir string, embedFn chromem.EmbeddingFunc, log logger.ILogger) (*ChromemStore, error) {
	dir := filepath.Join(dataDir, "vectorstore")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create vectorstore dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vectorstore: %w", err)
	}
	return &ChromemStore{
		db:      db,
		embedFn: embedFn,
		logger:  log,
	}, nil
}

// ProviderEmbeddingFunc adapts an embedding provider to chromem's function type.
func ProviderEmbeddingFunc(provider embedding.EmbeddingProvider) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return provider.Generate(ctx, text, embedding.TaskRetrievalDocument)
	}
}

// collectionName returns the per-tenant collection name.
func collectionName(tenantID string) string {
	return fmt.Sprintf("tenant_%s", tenantID)
}

func (s *ChromemStore) Ingest(ctx context.Context, tenantID, sourceDir string) error {
	documents, err := LoadDocuments(sourceDir, s.logger)
	if err != nil {
		return err
	}
	if len(documents) == 0 {
		return ErrNoDocuments
	}

	chunks := ChunkDocuments(documents)

	s.mu.Lock()
	defer s.mu.Unlock()

	name := collectionName(tenantID)
	col := s.db.GetCollection(name, s.embedFn)
	if col == nil {
		col, err = s.db.CreateCollection(name, nil, s.embedFn)
		if err != nil {
			return fmt.Errorf("create collection for tenant %s: %w", tenantID, err)
		}
	}

	// Fresh IDs per chunk: repeated ingestion accumulates passages rather than
	// replacing the partition.
	for _, chunk := range chunks {
		doc := chromem.Document{
			ID:      uuid.New().String(),
			Content: chunk.Content,
			Metadata: map[string]string{
				"source": chunk.Source,
			},
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("commit chunk from %s: %w", chunk.Source, err)
		}
	}

	s.logger.Info("Knowledge", "Ingestion committed", map[string]interface{}{
		"tenant_id": tenantID,
		"documents": len(documents),
		"chunks":    len(chunks),
	})
	return nil
}

func (s *ChromemStore) Retriever(tenantID string, k int) (Retriever, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	s.mu.RLock()
	col := s.db.GetCollection(collectionName(tenantID), s.embedFn)
	s.mu.RUnlock()

	if col == nil {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, ErrTenantNotIngested)
	}

	return &chromemRetriever{store: s, col: col, k: k}, nil
}

type chromemRetriever struct {
	store *ChromemStore
	col   *chromem.Collection
	k     int
}

func (r *chromemRetriever) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := r.col.Count()
	if count == 0 {
		return nil, nil
	}
	k := r.k
	if k > count {
		k = count
	}

	var results []chromem.Result
	var err error

	// chromem-go sometimes rejects nResults despite the Count check above.
	// Step down k until the query succeeds.
	for attemptK := k; attemptK > 0; attemptK-- {
		results, err = r.col.Query(ctx, query, attemptK, nil, nil)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	passages := make([]Passage, 0, len(results))
	for _, result := range results {
		passages = append(passages, Passage{
			Content: result.Content,
			Source:  result.Metadata["source"],
			Score:   result.Similarity,
		})
	}
	return passages, nil
}
