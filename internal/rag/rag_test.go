package rag_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tmc/langchaingo/llms"

	"exam-rag/internal/chromemdb"
	"exam-rag/internal/config"
	"exam-rag/internal/exam"
	"exam-rag/internal/llmservice"
	"exam-rag/internal/models"
	"exam-rag/internal/prompt"
	"exam-rag/internal/rag"
)

const groupedReply = "好的，以下是試題：\n```json\n" + `{
  "main_scope_text": "唐宋 - 赤壁賦",
  "question_blocks": [
    {
      "type": "單題",
      "difficulty": "簡單",
      "article_content": "",
      "questions": [
        {"id": "1", "question_text": "「七月既望」的「望」指農曆何日？", "options": ["(A) 初一", "(B) 初七", "(C) 十五", "(D) 十六"], "correct_answer": "C", "explanation": "望為十五。"}
      ]
    }
  ]
}` + "\n```\n祝教學順利！"

func runeEmbed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 16)
	v[0] = 1
	for _, r := range text {
		v[int(r)%15+1]++
	}
	return v, nil
}

type scriptedModel struct {
	reply    string
	messages []llms.MessageContent
}

func (m *scriptedModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, p string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, p, options...)
}

type ServiceSuite struct {
	suite.Suite
	ctx   context.Context
	cfg   config.RAGConfig
	model *scriptedModel
	svc   *rag.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.cfg = config.RAGConfig{
		DBPath:         filepath.Join(s.T().TempDir(), "chroma_db"),
		CollectionName: "classics",
	}
	s.model = &scriptedModel{reply: groupedReply}

	assembler, err := prompt.NewAssembler("")
	s.Require().NoError(err)
	store := chromemdb.NewStore(s.cfg, runeEmbed)
	s.svc = rag.NewService(
		rag.NewRetriever(store, 2, "rune"),
		assembler,
		llmservice.NewGeneratorWithModel(s.model, config.DefaultTemperature),
	)
}

func (s *ServiceSuite) buildIndex() {
	store := chromemdb.NewStore(s.cfg, runeEmbed)
	s.Require().NoError(store.Rebuild(s.ctx, []models.PassageChunk{
		{ID: "1", Text: "壬戌之秋，七月既望，蘇子與客泛舟遊於赤壁之下。", Title: "赤壁賦", Era: "唐宋", Source: "赤壁賦", EmbeddingModel: "rune"},
		{ID: "2", Text: "清風徐來，水波不興。", Title: "赤壁賦", Era: "唐宋", Source: "赤壁賦", ChunkID: 1, EmbeddingModel: "rune"},
		{ID: "3", Text: "蓋將自其變者而觀之，則天地曾不能以一瞬。", Title: "赤壁賦", Era: "唐宋", Source: "赤壁賦", ChunkID: 2, EmbeddingModel: "rune"},
	}))
}

func (s *ServiceSuite) lastHumanText() string {
	msgs := s.model.messages
	s.Require().NotEmpty(msgs)
	last := msgs[len(msgs)-1]
	s.Equal(llms.ChatMessageTypeHuman, last.Role)
	return last.Parts[0].(llms.TextContent).Text
}

func (s *ServiceSuite) TestGenerateExam() {
	s.buildIndex()
	req := models.ExamRequest{
		Labels:      []string{"唐宋 - 赤壁賦"},
		Requirement: models.NewFlatRequirement(1, 0, 0),
	}

	gen, err := s.svc.GenerateExam(s.ctx, req)
	s.Require().NoError(err)
	s.NoError(gen.ParseErr)
	s.NotEmpty(gen.ID)
	s.Equal(groupedReply, gen.Raw)
	s.Equal("唐宋 - 赤壁賦", gen.Paper.MainScopeText)
	s.Equal(1, gen.Paper.QuestionCount())

	s.Equal(2, strings.Count(gen.Context, "--- 選文：赤壁賦 ---"))
	text := s.lastHumanText()
	s.Contains(text, gen.Context)
	s.Contains(text, "總題數：1 題（簡單1、中等0、困難0）。")
}

func (s *ServiceSuite) TestGenerateExam_FiveQuestions() {
	s.buildIndex()
	s.model.reply = `{"main_text": "唐宋 - 赤壁賦", "questions": [
		{"type": "單題", "difficulty": "簡單", "question_text": "q1", "options": ["A", "B", "C", "D"], "correct_answer": "A", "explanation": "e"},
		{"type": "單題", "difficulty": "簡單", "question_text": "q2", "options": ["A", "B", "C", "D"], "correct_answer": "B", "explanation": "e"},
		{"type": "單題", "difficulty": "中等", "question_text": "q3", "options": ["A", "B", "C", "D"], "correct_answer": "C", "explanation": "e"},
		{"type": "單題", "difficulty": "中等", "question_text": "q4", "options": ["A", "B", "C", "D"], "correct_answer": "D", "explanation": "e"},
		{"type": "單題", "difficulty": "困難", "question_text": "q5", "options": ["A", "B", "C", "D"], "correct_answer": "A", "explanation": "e"}
	]}`
	req := models.ExamRequest{
		Labels:      []string{"唐宋 - 赤壁賦"},
		Requirement: models.NewFlatRequirement(2, 2, 1),
	}

	gen, err := s.svc.GenerateExam(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(2, strings.Count(gen.Context, "--- 選文：赤壁賦 ---"))
	s.Equal(models.KindFlat, gen.Paper.Kind)
	s.Equal(5, gen.Paper.QuestionCount())
	s.Contains(s.lastHumanText(), "總題數：5 題（簡單2、中等2、困難1）。")
}

func (s *ServiceSuite) TestGenerateExam_ProseAroundJSON() {
	s.buildIndex()
	s.model.reply = `here is your exam: {"questions": []} thanks`
	req := models.ExamRequest{
		Labels:      []string{"唐宋 - 赤壁賦"},
		Requirement: models.NewFlatRequirement(1, 0, 0),
	}

	gen, err := s.svc.GenerateExam(s.ctx, req)
	s.Require().NoError(err)
	s.NoError(gen.ParseErr)
	s.False(exam.IsSentinel(gen.Paper))
	s.Zero(gen.Paper.QuestionCount())
}

func (s *ServiceSuite) TestGenerateExam_UnknownTitle() {
	s.buildIndex()
	req := models.ExamRequest{
		Labels:      []string{"唐宋 - 赤壁賦", "唐宋 - 出師表"},
		Requirement: models.NewFlatRequirement(1, 1, 0),
	}

	gen, err := s.svc.GenerateExam(s.ctx, req)
	s.Require().NoError(err)
	s.Contains(gen.Context, "（未找到 出師表 的原文）")
	s.Less(strings.Index(gen.Context, "赤壁賦"), strings.Index(gen.Context, "出師表"))
}

func (s *ServiceSuite) TestGenerateExam_StoreMissing() {
	req := models.ExamRequest{
		Labels:      []string{"唐宋 - 赤壁賦"},
		Requirement: models.NewFlatRequirement(1, 0, 0),
	}

	gen, err := s.svc.GenerateExam(s.ctx, req)
	s.Require().NoError(err)
	s.Equal(models.StoreMissingWarning, gen.Context)
	s.Contains(s.lastHumanText(), models.StoreMissingWarning)
}

func (s *ServiceSuite) TestGenerateExam_ParseFailure() {
	s.buildIndex()
	s.model.reply = "抱歉，我無法完成這個請求。"
	req := models.ExamRequest{
		Labels:      []string{"唐宋 - 赤壁賦"},
		Requirement: models.NewFlatRequirement(1, 0, 0),
	}

	gen, err := s.svc.GenerateExam(s.ctx, req)
	s.Require().NoError(err)
	s.True(exam.IsSentinel(gen.Paper))
	s.ErrorIs(gen.ParseErr, exam.ErrNoJSONObject)
	s.NotEmpty(gen.ParseError)
	s.Equal(s.model.reply, gen.Raw)
}

func (s *ServiceSuite) TestGenerateExam_InvalidRequest() {
	_, err := s.svc.GenerateExam(s.ctx, models.ExamRequest{Requirement: models.NewFlatRequirement(1, 0, 0)})
	s.ErrorIs(err, models.ErrInvalidRequest)
	s.Nil(s.model.messages)
}

func TestRenderContext(t *testing.T) {
	segments := []rag.Segment{
		{Title: "赤壁賦", Status: rag.StatusFound, Passages: []models.PassageChunk{{Title: "赤壁賦", Text: "清風徐來"}}},
		{Title: "出師表", Status: rag.StatusNotFound},
	}
	got := rag.RenderContext(segments)
	require.Equal(t, "\n\n--- 選文：赤壁賦 ---\n清風徐來\n\n（未找到 出師表 的原文）", got)
	assert.Empty(t, rag.RenderContext(nil))
}
