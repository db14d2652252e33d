package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"exam-rag/internal/config"
	"exam-rag/internal/helper"
	"exam-rag/internal/models"
	"exam-rag/internal/rag"
)

// Store is the on-disk passage index read by the retriever.
type Store struct {
	cfg   config.RAGConfig
	embed chromem.EmbeddingFunc
}

func NewStore(cfg config.RAGConfig, embed chromem.EmbeddingFunc) *Store {
	return &Store{cfg: cfg, embed: embed}
}

// Exists checks the directory without opening it; opening would create it.
func (s *Store) Exists(_ context.Context) (bool, error) {
	return helper.PathExists(s.cfg.DBPath)
}

// Open loads the persisted collection. A directory without the collection
// searches as empty.
func (s *Store) Open(_ context.Context) (rag.Searcher, error) {
	m, err := NewVectorDBManager(s.cfg.DBPath, s.cfg.CollectionName, false, s.cfg.Compress, s.cfg.EncryptionKey, s.embed)
	if err != nil {
		return nil, err
	}
	if err := m.OpenCollection(); err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			log.Warn().Str("collection", s.cfg.CollectionName).Str("path", s.cfg.DBPath).Msg("collection missing, searches return nothing")
			return emptySearcher{}, nil
		}
		return nil, err
	}
	return m, nil
}

type emptySearcher struct{}

func (emptySearcher) SimilaritySearch(context.Context, string, int, map[string]string) ([]models.PassageChunk, error) {
	return nil, nil
}

// Rebuild writes chunks into a fresh collection in a sibling directory and
// swaps it in place of the store directory once every chunk is embedded. On
// failure the existing store is left untouched. Chunks must carry the
// embedding model they will be embedded with.
func (s *Store) Rebuild(ctx context.Context, chunks []models.PassageChunk) error {
	staging := filepath.Clean(s.cfg.DBPath) + ".building"
	if err := helper.RemoveFolder(staging); err != nil {
		return err
	}

	if err := s.populate(ctx, staging, chunks); err != nil {
		if rmErr := helper.RemoveFolder(staging); rmErr != nil {
			log.Warn().Err(rmErr).Str("path", staging).Msg("failed to remove staging directory")
		}
		return err
	}

	if err := helper.RemoveFolder(s.cfg.DBPath); err != nil {
		return err
	}
	log.Info().Str("path", s.cfg.DBPath).Msg("已清除舊的資料庫")
	if err := os.Rename(staging, s.cfg.DBPath); err != nil {
		return fmt.Errorf("failed to move new store into place: %w", err)
	}
	return nil
}

func (s *Store) populate(ctx context.Context, dir string, chunks []models.PassageChunk) error {
	m, err := NewVectorDBManager(dir, s.cfg.CollectionName, false, s.cfg.Compress, s.cfg.EncryptionKey, s.embed)
	if err != nil {
		return err
	}
	var meta map[string]string
	if len(chunks) > 0 && chunks[0].EmbeddingModel != "" {
		meta = map[string]string{models.MetaEmbeddingModel: chunks[0].EmbeddingModel}
	}
	if _, err := m.GetOrCreateCollection(meta); err != nil {
		return err
	}
	return m.CreateDocs(ctx, chunks, nil)
}

// Export writes the persisted collection to path (ExportPath when empty) and
// returns the file written. A store that was never built is
// rag.ErrStoreUnavailable; checking first keeps the directory from being created.
func (s *Store) Export(ctx context.Context, path string) (string, error) {
	ok, err := s.Exists(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", rag.ErrStoreUnavailable
	}
	m, err := s.Manager()
	if err != nil {
		return "", err
	}
	if err := m.OpenCollection(); err != nil {
		return "", err
	}
	if path == "" {
		path = m.ExportPath()
	}
	if err := m.Export(path); err != nil {
		return "", err
	}
	return path, nil
}

// Manager opens the persisted database for maintenance (export, import).
func (s *Store) Manager() (*VectorDBManager, error) {
	return NewVectorDBManager(s.cfg.DBPath, s.cfg.CollectionName, false, s.cfg.Compress, s.cfg.EncryptionKey, s.embed)
}
