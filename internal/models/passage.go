package models

import (
	"strconv"
	"strings"
)

// PassageChunk is one indexed span of a source text
type PassageChunk struct {
	ID      string  `json:"id"`
	Text    string  `json:"text"`
	Title   string  `json:"title"`
	Era     string  `json:"era"`
	Source  string  `json:"source"`
	ChunkID int     `json:"chunk_id"`
	Score   float32 `json:"score,omitempty"`

	EmbeddingModel string `json:"embedding_model,omitempty"`
}

// Metadata returns the store metadata for the chunk.
func (p PassageChunk) Metadata() map[string]string {
	meta := map[string]string{
		MetaTitle:   p.Title,
		MetaEra:     p.Era,
		MetaSource:  p.Source,
		MetaChunkID: strconv.Itoa(p.ChunkID),
	}
	if p.EmbeddingModel != "" {
		meta[MetaEmbeddingModel] = p.EmbeddingModel
	}
	return meta
}

// PassageFromMetadata rebuilds a chunk from stored content and metadata.
func PassageFromMetadata(id, content string, meta map[string]string) PassageChunk {
	chunkID, _ := strconv.Atoi(meta[MetaChunkID])
	return PassageChunk{
		ID:      id,
		Text:    content,
		Title:   meta[MetaTitle],
		Era:     meta[MetaEra],
		Source:  meta[MetaSource],
		ChunkID: chunkID,

		EmbeddingModel: meta[MetaEmbeddingModel],
	}
}

// TitleKeyword strips the "<category> - " prefix from a topic label.
func TitleKeyword(label string) string {
	if _, title, ok := strings.Cut(label, TitleSeparator); ok {
		return strings.TrimSpace(title)
	}
	return label
}
