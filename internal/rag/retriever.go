package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"exam-rag/internal/models"
)

// ErrStoreUnavailable means the knowledge store has not been built yet.
var ErrStoreUnavailable = errors.New("knowledge store has not been built")

// Searcher runs filtered nearest-neighbour queries against an opened store.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int, filter map[string]string) ([]models.PassageChunk, error)
}

// KnowledgeStore is the read-only passage index. Open is called once per retrieval.
type KnowledgeStore interface {
	Exists(ctx context.Context) (bool, error)
	Open(ctx context.Context) (Searcher, error)
}

type SegmentStatus string

const (
	StatusFound    SegmentStatus = "found"
	StatusNotFound SegmentStatus = "not_found"
	StatusError    SegmentStatus = "error"
)

// Segment is the retrieval outcome for one label.
type Segment struct {
	Label    string                `json:"label"`
	Title    string                `json:"title"`
	Status   SegmentStatus         `json:"status"`
	Passages []models.PassageChunk `json:"passages,omitempty"`
	Err      error                 `json:"-"`
}

// Render formats the segment the way it appears in the prompt context.
func (s Segment) Render() string {
	switch s.Status {
	case StatusFound:
		var b strings.Builder
		for _, p := range s.Passages {
			title := p.Title
			if title == "" {
				title = models.UnknownTitle
			}
			fmt.Fprintf(&b, models.PassageHeaderTemplate, title, p.Text)
		}
		return b.String()
	case StatusError:
		return fmt.Sprintf(models.SearchErrorTemplate, s.Err)
	default:
		return fmt.Sprintf(models.NotFoundTemplate, s.Title)
	}
}

// RenderContext concatenates the segments in order.
func RenderContext(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Render())
	}
	return b.String()
}

type Retriever struct {
	store          KnowledgeStore
	k              int
	embeddingModel string
}

// NewRetriever queries k passages per label. embeddingModel, when set, is
// compared with the model recorded at index time.
func NewRetriever(store KnowledgeStore, k int, embeddingModel string) *Retriever {
	return &Retriever{store: store, k: k, embeddingModel: embeddingModel}
}

// Lookup queries the store once per label, in order. A failing label is
// recorded in its segment and never aborts the others. The returned error is
// ErrStoreUnavailable when the store is missing, or an open failure.
func (r *Retriever) Lookup(ctx context.Context, labels []string) ([]Segment, error) {
	ok, err := r.store.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check knowledge store: %w", err)
	}
	if !ok {
		return nil, ErrStoreUnavailable
	}

	searcher, err := r.store.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge store: %w", err)
	}

	warned := false
	segments := make([]Segment, 0, len(labels))
	for _, label := range labels {
		title := models.TitleKeyword(label)
		log.Info().Str("title", title).Msg("[RAG] 搜尋")

		seg := Segment{Label: label, Title: title}
		passages, err := searcher.SimilaritySearch(ctx, title, r.k, map[string]string{models.MetaTitle: title})
		switch {
		case err != nil:
			log.Warn().Err(err).Str("title", title).Msg("similarity search failed")
			seg.Status = StatusError
			seg.Err = err
		case len(passages) == 0:
			seg.Status = StatusNotFound
		default:
			seg.Status = StatusFound
			seg.Passages = passages
			if !warned && r.modelMismatch(passages) {
				warned = true
				log.Warn().
					Str("indexed_with", passages[0].EmbeddingModel).
					Str("configured", r.embeddingModel).
					Msg("embedding model changed since the index was built, rebuild it")
			}
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func (r *Retriever) modelMismatch(passages []models.PassageChunk) bool {
	if r.embeddingModel == "" {
		return false
	}
	for _, p := range passages {
		if p.EmbeddingModel != "" && p.EmbeddingModel != r.embeddingModel {
			return true
		}
	}
	return false
}

// Retrieve returns the context string for labels. A missing store yields the
// single warning string with no query issued; only open failures are errors.
func (r *Retriever) Retrieve(ctx context.Context, labels []string) (string, error) {
	segments, err := r.Lookup(ctx, labels)
	if errors.Is(err, ErrStoreUnavailable) {
		log.Warn().Msg("knowledge store missing, run build-index first")
		return models.StoreMissingWarning, nil
	}
	if err != nil {
		return "", err
	}
	return RenderContext(segments), nil
}
