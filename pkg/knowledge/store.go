package knowledge

import (
	"context"
	"errors"
)

// Chunking parameters. The overlap preserves cross-boundary context so a fact
// split across two windows is still retrievable from at least one of them.
const (
	ChunkSize    = 1000
	ChunkOverlap = 200

	// DefaultTopK bounds how many passages a retriever returns per query.
	DefaultTopK = 4
)

var (
	// ErrTenantNotIngested signals that no partition exists for the tenant.
	// Terminal for a session handshake.
	ErrTenantNotIngested = errors.New("tenant has no ingested documents")

	// ErrNoDocuments signals that a source directory yielded zero usable documents.
	ErrNoDocuments = errors.New("no usable documents found in source directory")
)

// Passage is a retrieved chunk of source text, relevance-ranked.
type Passage struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float32 `json:"score"`
}

// Retriever is a tenant-bound retrieval handle.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Passage, error)
}

// Store is a tenant-isolated document index. Partitions are keyed by tenant id;
// a retriever for tenant A can never surface tenant B's passages.
type Store interface {
	// Ingest reads every supported file under sourceDir, chunks it, and commits
	// the chunks into the tenant's partition. Re-ingestion appends to the
	// existing partition rather than replacing it.
	Ingest(ctx context.Context, tenantID, sourceDir string) error

	// Retriever returns a retrieval handle bound to the tenant's partition, or
	// ErrTenantNotIngested if the partition does not exist.
	Retriever(tenantID string, k int) (Retriever, error)
}
