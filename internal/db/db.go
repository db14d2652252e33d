package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"exam-rag/internal/config"
	"exam-rag/internal/models"
)

const passagesTable = "passages"

// Passage is one indexed chunk with its embedding.
type Passage struct {
	bun.BaseModel `bun:"table:passages,alias:p"`

	ID             string          `bun:"id,pk"`
	Content        string          `bun:"content,notnull"`
	Title          string          `bun:"title,notnull"`
	Era            string          `bun:"era"`
	Source         string          `bun:"source"`
	ChunkID        int             `bun:"chunk_id"`
	EmbeddingModel string          `bun:"embedding_model"`
	Embedding      pgvector.Vector `bun:"embedding,notnull,type:vector"`
	CreatedAt      time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`

	Distance float64 `bun:"distance,scanonly"`
}

// NewPassage pairs a chunk with its embedding.
func NewPassage(c models.PassageChunk, embedding []float32) Passage {
	return Passage{
		ID:             c.ID,
		Content:        c.Text,
		Title:          c.Title,
		Era:            c.Era,
		Source:         c.Source,
		ChunkID:        c.ChunkID,
		EmbeddingModel: c.EmbeddingModel,
		Embedding:      pgvector.NewVector(embedding),
	}
}

// Chunk converts a row back to the passage model; similarity is 1 - distance.
func (p Passage) Chunk() models.PassageChunk {
	return models.PassageChunk{
		ID:             p.ID,
		Text:           p.Content,
		Title:          p.Title,
		Era:            p.Era,
		Source:         p.Source,
		ChunkID:        p.ChunkID,
		Score:          float32(1 - p.Distance),
		EmbeddingModel: p.EmbeddingModel,
	}
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a pool with the configured driver: "pgdriver" (default) or "pq".
func ConnectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}
	switch cfg.Driver {
	case "pq", "postgres":
		sqldb, err := sql.Open("postgres", cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return sqldb, nil
	case "pgdriver", "":
		return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.URL))), nil
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}
}

// Open connects and wraps the pool in bun.
func Open(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewDB(sqldb, cfg.Debug), nil
}

// InitDB enables pgvector and creates the passages table.
func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*Passage)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create passages table: %w", err)
	}
	_, err := db.NewCreateIndex().
		Model((*Passage)(nil)).
		Index("passages_title_idx").
		IfNotExists().
		Column("title").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create title index: %w", err)
	}
	return nil
}

// TableExists reports whether the passages table has been created.
func TableExists(ctx context.Context, db *bun.DB) (bool, error) {
	return db.NewSelect().
		TableExpr("information_schema.tables").
		Where("table_schema = current_schema()").
		Where("table_name = ?", passagesTable).
		Exists(ctx)
}

func StorePassages(ctx context.Context, db *bun.DB, passages []Passage) error {
	if len(passages) == 0 {
		return nil
	}
	if _, err := db.NewInsert().Model(&passages).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert passages: %w", err)
	}
	return nil
}

// SearchPassages returns up to limit rows nearest to queryEmbedding whose
// columns equal every filter value.
func SearchPassages(ctx context.Context, db *bun.DB, queryEmbedding []float32, filter map[string]string, limit int) ([]Passage, error) {
	vec := pgvector.NewVector(queryEmbedding)

	var rows []Passage
	q := db.NewSelect().
		Model(&rows).
		ColumnExpr("p.*").
		ColumnExpr("p.embedding <-> ? AS distance", vec)
	for col, val := range filter {
		q = q.Where("? = ?", bun.Ident("p."+col), val)
	}
	err := q.OrderExpr("p.embedding <-> ?", vec).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search passages: %w", err)
	}
	return rows, nil
}

// drop table passages
func DropPassages(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*Passage)(nil)).IfExists().Exec(ctx)
	return err
}
