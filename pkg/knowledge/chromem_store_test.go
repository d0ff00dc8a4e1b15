package knowledge

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"ai-voicebot-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbeddingFunc produces deterministic vectors from text content so tests
// need no model. Texts sharing words land closer together.
func stubEmbeddingFunc(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r % 31)
	}
	// Normalize so chromem's cosine math behaves.
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	inv := 1 / float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(t.TempDir(), stubEmbeddingFunc, logger.NewNopLogger())
	require.NoError(t, err)
	return store
}

func TestRetrieverBeforeIngest(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Retriever("nobody", 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTenantNotIngested))
}

func TestIngestAndRetrieve(t *testing.T) {
	store := newTestStore(t)

	docs := t.TempDir()
	writeDoc(t, docs, "listings.txt", "Sunrise Tower has a three bedroom flat on the tenth floor.")

	require.NoError(t, store.Ingest(context.Background(), "tenant-a", docs))

	retriever, err := store.Retriever("tenant-a", 4)
	require.NoError(t, err)

	passages, err := retriever.Retrieve(context.Background(), "three bedroom flat")
	require.NoError(t, err)
	require.NotEmpty(t, passages)
	assert.Contains(t, passages[0].Content, "Sunrise Tower")
	assert.Equal(t, "listings.txt", passages[0].Source)
}

func TestTenantIsolation(t *testing.T) {
	store := newTestStore(t)

	docsA := t.TempDir()
	writeDoc(t, docsA, "a.txt", "Tenant A sells beach villas in Goa.")
	docsB := t.TempDir()
	writeDoc(t, docsB, "b.txt", "Tenant B rents mountain cabins in Manali.")

	require.NoError(t, store.Ingest(context.Background(), "tenant-a", docsA))
	require.NoError(t, store.Ingest(context.Background(), "tenant-b", docsB))

	retrieverA, err := store.Retriever("tenant-a", 4)
	require.NoError(t, err)

	passages, err := retrieverA.Retrieve(context.Background(), "mountain cabins")
	require.NoError(t, err)
	for _, passage := range passages {
		assert.NotContains(t, passage.Content, "Tenant B")
	}
}

func TestIngestEmptyDirectory(t *testing.T) {
	store := newTestStore(t)

	err := store.Ingest(context.Background(), "tenant-a", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoDocuments))
}

func TestIngestSkipsUnsupportedFiles(t *testing.T) {
	store := newTestStore(t)

	docs := t.TempDir()
	writeDoc(t, docs, "notes.txt", "A supported document about property taxes.")
	writeDoc(t, docs, "photo.png", "binary junk")

	require.NoError(t, store.Ingest(context.Background(), "tenant-a", docs))

	retriever, err := store.Retriever("tenant-a", 4)
	require.NoError(t, err)

	passages, err := retriever.Retrieve(context.Background(), "property taxes")
	require.NoError(t, err)
	require.NotEmpty(t, passages)
	for _, passage := range passages {
		assert.NotEqual(t, "photo.png", passage.Source)
	}
}

func TestReingestAppends(t *testing.T) {
	store := newTestStore(t)

	docs := t.TempDir()
	writeDoc(t, docs, "first.txt", "Original listing for a studio apartment.")
	require.NoError(t, store.Ingest(context.Background(), "tenant-a", docs))

	more := t.TempDir()
	writeDoc(t, more, "second.txt", "New listing for a penthouse suite.")
	require.NoError(t, store.Ingest(context.Background(), "tenant-a", more))

	retriever, err := store.Retriever("tenant-a", 10)
	require.NoError(t, err)

	passages, err := retriever.Retrieve(context.Background(), "listing")
	require.NoError(t, err)

	sources := make(map[string]bool)
	for _, passage := range passages {
		sources[passage.Source] = true
	}
	assert.True(t, sources["first.txt"], "original documents must survive re-ingestion")
	assert.True(t, sources["second.txt"])
}

func TestLoadDocumentsCSV(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "prices.csv", "unit,price\nA-101,5000000\nB-202,7000000")

	docs, err := LoadDocuments(dir, logger.NewNopLogger())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, "A-101, 5000000")
	assert.Contains(t, docs[0].Content, "unit, price")
}
