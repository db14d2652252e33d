package parser

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"

	"exam-rag/internal/helper"
	"exam-rag/internal/models"
)

// Separators cut on paragraphs, lines, then Chinese full stops and exclamation marks.
var Separators = []string{"\n\n", "\n", "。", "！"}

// Splitter cuts documents into overlapping passages measured in runes.
type Splitter struct {
	splitter textsplitter.TextSplitter
}

func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(Separators),
			textsplitter.WithKeepSeparator(true),
		),
	}
}

// Split turns loaded documents into passage chunks. Chunk IDs count from 0
// within each source; every chunk gets a fresh UUID.
func (s *Splitter) Split(docs []schema.Document) ([]models.PassageChunk, error) {
	parts, err := textsplitter.SplitDocuments(s.splitter, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to split documents: %w", err)
	}

	counters := make(map[string]int)
	chunks := make([]models.PassageChunk, 0, len(parts))
	for _, part := range parts {
		content := strings.TrimSpace(part.PageContent)
		if content == "" {
			continue
		}
		id, err := helper.GenerateUUID()
		if err != nil {
			return nil, err
		}
		chunk := models.PassageChunk{
			ID:     id,
			Text:   content,
			Title:  metaString(part.Metadata, models.MetaTitle),
			Era:    metaString(part.Metadata, models.MetaEra),
			Source: metaString(part.Metadata, models.MetaSource),
		}
		key := chunk.Era + "/" + chunk.Source
		chunk.ChunkID = counters[key]
		counters[key]++
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
