package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/sourcegraph/conc/pool"
	"github.com/tmc/langchaingo/schema"

	"exam-rag/internal/config"
	"exam-rag/internal/helper"
	"exam-rag/internal/models"
	"exam-rag/internal/parser"
)

var (
	ErrKnowledgeBaseMissing = errors.New("找不到知識庫路徑")
	ErrNoDocuments          = errors.New("未發現任何文件")
)

// Sink receives the full passage set and replaces whatever it held before.
type Sink interface {
	Rebuild(ctx context.Context, chunks []models.PassageChunk) error
}

// Stats summarises one build.
type Stats struct {
	Files   int
	Loaded  int
	Skipped int
	Chunks  int
}

type Indexer struct {
	cfg            config.RAGConfig
	embeddingModel string
	sink           Sink
	workers        int
	progress       io.Writer
}

type Option func(*Indexer)

// WithProgress sets where the progress bar is drawn; io.Discard hides it.
func WithProgress(w io.Writer) Option {
	return func(i *Indexer) { i.progress = w }
}

func WithWorkers(n int) Option {
	return func(i *Indexer) {
		if n > 0 {
			i.workers = n
		}
	}
}

func New(cfg config.RAGConfig, embeddingModel string, sink Sink, opts ...Option) *Indexer {
	i := &Indexer{
		cfg:            cfg,
		embeddingModel: embeddingModel,
		sink:           sink,
		workers:        runtime.NumCPU(),
		progress:       os.Stderr,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type source struct {
	path string
	era  string
}

// Build scans the knowledge base, splits every readable file and rebuilds the
// store from scratch. Unreadable files are logged and skipped.
func (i *Indexer) Build(ctx context.Context) (Stats, error) {
	var stats Stats

	ok, err := helper.PathExists(i.cfg.KnowledgeBasePath)
	if err != nil {
		return stats, err
	}
	if !ok {
		return stats, fmt.Errorf("%w: %s", ErrKnowledgeBaseMissing, i.cfg.KnowledgeBasePath)
	}

	log.Info().Str("path", i.cfg.KnowledgeBasePath).Msg("開始掃描知識庫")
	sources, err := i.scan()
	if err != nil {
		return stats, err
	}
	stats.Files = len(sources)

	docs := i.load(ctx, sources)
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	loaded := make([]schema.Document, 0, len(docs))
	for _, d := range docs {
		if d != nil {
			loaded = append(loaded, *d)
		}
	}
	stats.Loaded = len(loaded)
	stats.Skipped = stats.Files - stats.Loaded
	if len(loaded) == 0 {
		return stats, ErrNoDocuments
	}

	log.Info().Int("documents", len(loaded)).Msg("正在切割文件")
	chunks, err := parser.NewSplitter(i.cfg.ChunkSize, i.cfg.ChunkOverlap).Split(loaded)
	if err != nil {
		return stats, err
	}
	if len(chunks) == 0 {
		return stats, ErrNoDocuments
	}
	for n := range chunks {
		chunks[n].EmbeddingModel = i.embeddingModel
	}
	stats.Chunks = len(chunks)

	log.Info().Int("chunks", len(chunks)).Str("embedding_model", i.embeddingModel).Msg("正在建立索引")
	if err := i.sink.Rebuild(ctx, chunks); err != nil {
		return stats, fmt.Errorf("failed to rebuild store: %w", err)
	}
	log.Info().Str("path", i.cfg.DBPath).Msg("RAG 知識庫已建立")
	return stats, nil
}

// scan lists supported files; the parent directory name is the era.
func (i *Indexer) scan() ([]source, error) {
	var sources []source
	err := filepath.WalkDir(i.cfg.KnowledgeBasePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !parser.IsSupported(path) {
			return nil
		}
		sources = append(sources, source{path: path, era: filepath.Base(filepath.Dir(path))})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan knowledge base: %w", err)
	}
	sort.Slice(sources, func(a, b int) bool { return sources[a].path < sources[b].path })
	return sources, nil
}

// load reads files in parallel; failed slots stay nil.
func (i *Indexer) load(ctx context.Context, sources []source) []*schema.Document {
	bar := progressbar.NewOptions(len(sources),
		progressbar.OptionSetWriter(i.progress),
		progressbar.OptionSetDescription("讀取知識庫"),
		progressbar.OptionShowCount(),
	)
	defer func() { _ = bar.Finish() }()

	docs := make([]*schema.Document, len(sources))
	p := pool.New().WithMaxGoroutines(i.workers)
	for n, src := range sources {
		p.Go(func() {
			defer func() { _ = bar.Add(1) }()
			if ctx.Err() != nil {
				return
			}
			doc, err := parser.LoadDocument(ctx, src.path, src.era)
			if err != nil {
				log.Warn().Err(err).Str("file", src.path).Msg("讀取失敗")
				return
			}
			if doc.PageContent == "" {
				log.Warn().Str("file", src.path).Msg("檔案沒有內容")
				return
			}
			log.Debug().Str("era", src.era).Str("title", parser.TitleFromPath(src.path)).Msg("已讀取")
			docs[n] = &doc
		})
	}
	p.Wait()
	return docs
}
