// -----------------------------------------------------------------------
// Embedding Orchestrator - Batched, rate-limited embedding and storage
// -----------------------------------------------------------------------

package embeddings

import (
	"context"
	"sync/atomic"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ternarybob/corpus/internal/common"
	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
)

// Orchestrator embeds chunks in sub-batches and hands each successfully
// embedded chunk to storage immediately and individually. A failed or nil
// embedding drops that chunk; nothing is retried and nothing escalates.
// Completion order within a sub-batch is unordered by design; the positional
// order of stored chunks is fixed by creation order, not completion time.
type Orchestrator struct {
	provider interfaces.EmbeddingProvider
	store    interfaces.ChunkStore
	limiter  *rate.Limiter
	cfg      *common.PipelineConfig
	logger   arbor.ILogger
}

// NewOrchestrator creates the embedding orchestrator. The rate limiter
// enforces the configured delay between sub-batches to respect the
// provider's external rate limit.
func NewOrchestrator(provider interfaces.EmbeddingProvider, store interfaces.ChunkStore, cfg *common.PipelineConfig, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		store:    store,
		limiter:  rate.NewLimiter(rate.Every(cfg.EmbedBatchDelay), 1),
		cfg:      cfg,
		logger:   logger,
	}
}

// EmbedAndStore consumes the chunk stream in creation order. Within one
// sub-batch the embed+store calls run concurrently; across sub-batches the
// limiter inserts the configured delay. Returns the number of chunks stored.
func (o *Orchestrator) EmbedAndStore(ctx context.Context, chunks []models.ChunkRecord, progress models.ProgressFunc) (int, error) {
	var stored atomic.Int64
	total := len(chunks)
	batchSize := o.cfg.EmbedBatchSize

	for offset := 0; offset < total; offset += batchSize {
		if err := o.limiter.Wait(ctx); err != nil {
			return int(stored.Load()), err
		}

		end := offset + batchSize
		if end > total {
			end = total
		}
		batch := chunks[offset:end]

		progress.Report(models.PhaseEmbedding, offset, total)

		g, gctx := errgroup.WithContext(ctx)
		for i := range batch {
			chunk := &batch[i]
			g.Go(func() error {
				if o.embedAndStoreOne(gctx, chunk) {
					stored.Add(1)
				}
				// Per-chunk failures never abort the batch.
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return int(stored.Load()), err
		}

		progress.Report(models.PhaseStoring, end, total)
	}

	return int(stored.Load()), nil
}

// embedAndStoreOne embeds a single chunk and commits it. Each commit is
// independent: a crash mid-document keeps every chunk already stored.
func (o *Orchestrator) embedAndStoreOne(ctx context.Context, chunk *models.ChunkRecord) bool {
	vector, err := o.provider.Embed(ctx, chunk.Content)
	if err != nil || len(vector) == 0 {
		o.logger.Debug().
			Err(err).
			Str("chunk", chunk.Key()).
			Msg("Embedding unavailable, chunk dropped")
		return false
	}

	chunk.Embedding = vector

	ok, err := o.store.Store(ctx, chunk)
	if err != nil || !ok {
		o.logger.Warn().
			Err(err).
			Str("chunk", chunk.Key()).
			Msg("Chunk store rejected chunk")
		return false
	}
	return true
}
