package interfaces

import (
	"context"

	"github.com/ternarybob/corpus/internal/models"
)

// ChunkStore persists one embedded chunk at a time. The core calls Store once
// per successfully embedded chunk, immediately, with no batching and no
// cross-chunk transaction. Re-running a document is not deduplicated here;
// stores wanting idempotent upserts key on models.ChunkRecord.Key().
type ChunkStore interface {
	Store(ctx context.Context, chunk *models.ChunkRecord) (bool, error)
}
