package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"exam-rag/internal/chromemdb"
	"exam-rag/internal/config"
	"exam-rag/internal/embedding"
	"exam-rag/internal/indexer"
)

func buildIndexCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "build-index",
		Short: "Rebuild the knowledge store from the knowledge base directory",
		Long: "Walks the knowledge base (one sub-directory per era), splits every text into passages\n" +
			"and replaces the knowledge store. Run it again whenever the embedding model changes.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			stats, err := indexer.New(cfg.RAG, cfg.EmbedLLM.Model, store,
				indexer.WithProgress(os.Stderr),
				indexer.WithWorkers(workers),
			).Build(cmd.Context())
			if err != nil {
				return err
			}
			log.Info().
				Int("files", stats.Files).
				Int("skipped", stats.Skipped).
				Int("chunks", stats.Chunks).
				Str("backend", cfg.RAG.Backend).
				Msg("資料庫建立完成")
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "Files loaded in parallel")
	return cmd
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Export or import the chromem knowledge store",
	}
	cmd.AddCommand(indexTransferCmd("export"))
	cmd.AddCommand(indexTransferCmd("import"))
	return cmd
}

func indexTransferCmd(action string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("%s the collection (gob, optionally compressed and encrypted)", action),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.RAG.Backend != config.BackendChromem {
				return fmt.Errorf("index %s only supports the %s backend", action, config.BackendChromem)
			}
			embedder, err := embedding.NewEmbedder(cfg.EmbedLLM)
			if err != nil {
				return err
			}
			store := chromemdb.NewStore(cfg.RAG, embedding.EmbeddingFunc(embedder))

			if action == "export" {
				written, err := store.Export(cmd.Context(), file)
				if err != nil {
					return err
				}
				log.Info().Str("file", written).Msg("export done")
				return nil
			}

			m, err := store.Manager()
			if err != nil {
				return err
			}
			if file == "" {
				file = m.ExportPath()
			}
			if err := m.Import(file); err != nil {
				return err
			}
			log.Info().Str("file", file).Int("documents", m.Count()).Msg("import done")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Archive path (default next to the store directory)")
	return cmd
}
