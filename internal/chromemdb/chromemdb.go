package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"exam-rag/internal/models"
)

var ErrCollectionNotFound = errors.New("collection not found")

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	embed          chromem.EmbeddingFunc
	dbPath         string
	collectionName string
	compress       bool
	encryptionKey  string
}

// NewVectorDBManager opens (or creates) the database at dbPath. inMemory skips persistence.
func NewVectorDBManager(dbPath, collectionName string, inMemory, compress bool, encryptionKey string, embed chromem.EmbeddingFunc) (*VectorDBManager, error) {
	var db *chromem.DB
	if inMemory {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:             db,
		embed:          embed,
		dbPath:         dbPath,
		collectionName: collectionName,
		compress:       compress,
		encryptionKey:  encryptionKey,
	}, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(metadata map[string]string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(m.collectionName, metadata, m.embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// OpenCollection attaches to an existing collection, ErrCollectionNotFound otherwise.
func (m *VectorDBManager) OpenCollection() error {
	c := m.db.GetCollection(m.collectionName, m.embed)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, m.collectionName)
	}
	m.collection = c
	return nil
}

// add multiple passages, embedding them with the collection's embedding func
func (m *VectorDBManager) CreateDocs(ctx context.Context, chunks []models.PassageChunk, meta map[string]string) error {
	if m.collection == nil {
		return ErrCollectionNotFound
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		md := c.Metadata()
		for k, v := range meta {
			md[k] = v
		}
		docs = append(docs, chromem.Document{ID: c.ID, Content: c.Text, Metadata: md})
	}
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Count is the number of documents in the open collection.
func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// SimilaritySearch returns up to k passages nearest to query that match every
// filter entry exactly. k is clamped to the collection size.
func (m *VectorDBManager) SimilaritySearch(ctx context.Context, query string, k int, filter map[string]string) ([]models.PassageChunk, error) {
	if m.collection == nil {
		return nil, ErrCollectionNotFound
	}
	if query == "" {
		return nil, fmt.Errorf("query must be provided")
	}
	k = min(k, m.collection.Count())
	if k <= 0 {
		return nil, nil
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryText: query,
		NResults:  k,
		Where:     filter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	passages := make([]models.PassageChunk, 0, len(results))
	for _, r := range results {
		p := models.PassageFromMetadata(r.ID, r.Content, r.Metadata)
		p.Score = r.Similarity
		passages = append(passages, p)
	}
	return passages, nil
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	if err := m.db.DeleteCollection(m.collectionName); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	m.collection = nil
	return nil
}

// ExportPath is where Export writes when no explicit path is given.
func (m *VectorDBManager) ExportPath() string {
	name := m.collectionName + ".gob"
	if m.compress {
		name += ".gz"
	}
	if m.encryptionKey != "" {
		name += ".enc"
	}
	return filepath.Join(filepath.Dir(filepath.Clean(m.dbPath)), name)
}

// export the collection to a file, encrypted when a key is configured
func (m *VectorDBManager) Export(path string) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	if path == "" {
		path = m.ExportPath()
	}

	log.Debug().
		Str("collection", m.collectionName).
		Str("file", path).
		Bool("compress", m.compress).
		Bool("encrypted", m.encryptionKey != "").
		Msg("Exporting collection")

	if err := m.db.ExportToFile(path, m.compress, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// import the collection from a file written by Export
func (m *VectorDBManager) Import(path string) error {
	if path == "" {
		path = m.ExportPath()
	}
	if err := m.db.ImportFromFile(path, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	return m.OpenCollection()
}
