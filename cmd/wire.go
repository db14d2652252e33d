package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"exam-rag/internal/chromemdb"
	"exam-rag/internal/config"
	"exam-rag/internal/db"
	"exam-rag/internal/embedding"
	"exam-rag/internal/indexer"
	"exam-rag/internal/llmservice"
	"exam-rag/internal/prompt"
	"exam-rag/internal/rag"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log.Debug().
		Str("backend", cfg.RAG.Backend).
		Str("db_path", cfg.RAG.DBPath).
		Str("model", cfg.LLM.Model).
		Str("embedding_model", cfg.EmbedLLM.Model).
		Msg("Loaded config")
	return cfg, nil
}

// knowledgeStore is both searchable and rebuildable.
type knowledgeStore interface {
	rag.KnowledgeStore
	indexer.Sink
}

// openStore returns the configured backend and a cleanup func.
func openStore(cfg *config.Config) (knowledgeStore, func(), error) {
	embedder, err := embedding.NewEmbedder(cfg.EmbedLLM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	switch cfg.RAG.Backend {
	case config.BackendChromem:
		return chromemdb.NewStore(cfg.RAG, embedding.EmbeddingFunc(embedder)), func() {}, nil
	case config.BackendPostgres:
		bdb, err := db.Open(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return db.NewStore(bdb, embedder), func() { _ = bdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.RAG.Backend)
	}
}

func newRetriever(cfg *config.Config, store rag.KnowledgeStore) *rag.Retriever {
	return rag.NewRetriever(store, cfg.RAG.TopK, cfg.EmbedLLM.Model)
}

func newService(cfg *config.Config, store rag.KnowledgeStore) (*rag.Service, error) {
	assembler, err := prompt.NewAssembler(cfg.RAG.FewShotDir)
	if err != nil {
		return nil, err
	}
	generator, err := llmservice.NewGenerator(cfg.LLM)
	if err != nil {
		return nil, err
	}
	return rag.NewService(newRetriever(cfg, store), assembler, generator), nil
}
