package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/corpus/internal/interfaces"
	"github.com/ternarybob/corpus/internal/models"
)

// ChunkStorage persists embedded chunks in BadgerDB. Each chunk is committed
// individually; upserts key on document, page and chunk index so re-running a
// document overwrites its previous chunks instead of duplicating them.
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.ChunkStore = (*ChunkStorage)(nil)

// NewChunkStorage creates a chunk storage service
func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) *ChunkStorage {
	return &ChunkStorage{
		db:     db,
		logger: logger,
	}
}

// Store upserts one embedded chunk. A context already past its deadline is
// rejected without touching the database.
func (s *ChunkStorage) Store(ctx context.Context, chunk *models.ChunkRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if chunk == nil {
		return false, fmt.Errorf("chunk cannot be nil")
	}

	if err := s.db.Store().Upsert(chunk.Key(), chunk); err != nil {
		return false, fmt.Errorf("failed to store chunk %s: %w", chunk.Key(), err)
	}
	return true, nil
}

// GetChunks returns all stored chunks for a document, ordered by page then
// chunk index.
func (s *ChunkStorage) GetChunks(documentID string) ([]*models.ChunkRecord, error) {
	var chunks []*models.ChunkRecord
	err := s.db.Store().Find(&chunks,
		badgerhold.Where("DocumentID").Eq(documentID).Index("DocumentID").
			SortBy("Page", "ChunkIndex"))
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks for %s: %w", documentID, err)
	}
	return chunks, nil
}

// CountChunks returns the number of stored chunks for a document.
func (s *ChunkStorage) CountChunks(documentID string) (int, error) {
	count, err := s.db.Store().Count(&models.ChunkRecord{},
		badgerhold.Where("DocumentID").Eq(documentID).Index("DocumentID"))
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks for %s: %w", documentID, err)
	}
	return int(count), nil
}

// DeleteChunks removes every stored chunk for a document.
func (s *ChunkStorage) DeleteChunks(documentID string) error {
	err := s.db.Store().DeleteMatching(&models.ChunkRecord{},
		badgerhold.Where("DocumentID").Eq(documentID).Index("DocumentID"))
	if err != nil {
		return fmt.Errorf("failed to delete chunks for %s: %w", documentID, err)
	}
	return nil
}
