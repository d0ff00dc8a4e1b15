package embedding

import "context"

// Task types hint the provider about the embedding's downstream use. Gemini
// distinguishes them; Ollama ignores them.
const (
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) ([]float32, error)
}
