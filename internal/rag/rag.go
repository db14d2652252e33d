package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"exam-rag/internal/exam"
	"exam-rag/internal/helper"
	"exam-rag/internal/models"
)

// Assembler turns the retrieved context and request into chat messages.
type Assembler interface {
	Assemble(retrievedContext string, req models.ExamRequest) ([]llms.MessageContent, error)
}

// Generator returns the raw model text for the messages.
type Generator interface {
	Generate(ctx context.Context, messages []llms.MessageContent) (string, error)
}

// Service runs one exam generation: retrieve, assemble, generate, normalize.
type Service struct {
	retriever *Retriever
	assembler Assembler
	generator Generator
	now       func() time.Time
}

func NewService(retriever *Retriever, assembler Assembler, generator Generator) *Service {
	return &Service{retriever: retriever, assembler: assembler, generator: generator, now: time.Now}
}

// Retriever exposes the underlying retriever for context-only lookups.
func (s *Service) Retriever() *Retriever {
	return s.retriever
}

// GenerateExam returns an error only for invalid requests, an unopenable store
// or a failed model call. Unparseable output is not an error: the generation
// carries the sentinel paper and ParseErr.
func (s *Service) GenerateExam(ctx context.Context, req models.ExamRequest) (*models.Generation, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	gen := &models.Generation{
		ID:        id,
		Request:   req,
		CreatedAt: s.now(),
	}
	logger := log.With().Str("generation", gen.ID).Logger()

	retrieved, err := s.retriever.Retrieve(ctx, req.Labels)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	gen.Context = retrieved
	logger.Debug().Int("context_runes", len([]rune(retrieved))).Msg("Context retrieved")

	messages, err := s.assembler.Assemble(retrieved, req)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble prompt: %w", err)
	}

	raw, err := s.generator.Generate(ctx, messages)
	if err != nil {
		return nil, err
	}
	gen.Raw = raw

	paper, err := exam.Normalize(raw)
	gen.Paper = paper
	if err != nil {
		gen.ParseErr = err
		gen.ParseError = err.Error()
		logger.Warn().Err(err).Msg("model output could not be parsed")
	} else {
		logger.Info().
			Int("blocks", len(paper.QuestionBlocks)).
			Int("questions", paper.QuestionCount()).
			Msg("Exam generated")
	}
	return gen, nil
}
