package db

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/uptrace/bun"

	"exam-rag/internal/models"
	"exam-rag/internal/rag"
)

// Store serves retrieval from the Postgres passages table.
type Store struct {
	db       *bun.DB
	embedder embeddings.Embedder
}

func NewStore(db *bun.DB, embedder embeddings.Embedder) *Store {
	return &Store{db: db, embedder: embedder}
}

// Exists reports whether the index has been built, i.e. the table exists.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	return TableExists(ctx, s.db)
}

func (s *Store) Open(_ context.Context) (rag.Searcher, error) {
	return s, nil
}

// SimilaritySearch embeds query and returns the k nearest matching passages.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int, filter map[string]string) ([]models.PassageChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	rows, err := SearchPassages(ctx, s.db, vec, filter, k)
	if err != nil {
		return nil, err
	}
	passages := make([]models.PassageChunk, 0, len(rows))
	for _, r := range rows {
		passages = append(passages, r.Chunk())
	}
	return passages, nil
}

// Rebuild embeds every chunk first, then drops and recreates the table and
// stores them. An embedding failure leaves the existing table untouched.
func (s *Store) Rebuild(ctx context.Context, chunks []models.PassageChunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed passages: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d passages", len(vectors), len(chunks))
	}

	rows := make([]Passage, len(chunks))
	for i, c := range chunks {
		rows[i] = NewPassage(c, vectors[i])
	}

	if err := DropPassages(ctx, s.db); err != nil {
		return fmt.Errorf("failed to drop passages: %w", err)
	}
	if err := InitDB(ctx, s.db); err != nil {
		return err
	}
	return StorePassages(ctx, s.db, rows)
}
