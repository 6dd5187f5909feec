package interfaces

import "context"

// EmbeddingProvider generates a vector embedding for a piece of text. It is
// an injected capability: the core has no compile-time knowledge of the
// concrete provider. A nil vector or an error causes the chunk to be dropped,
// never retried and never escalated.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
