package exam

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"exam-rag/internal/models"
)

const groupedPayload = `{
  "main_scope_text": "唐宋 - 赤壁賦",
  "question_blocks": [
    {
      "type": "單題",
      "difficulty": "簡單",
      "article_content": "",
      "questions": [
        {"id": 1, "question_text": "「羽化而登仙」的意思是？", "options": ["(A) 變成鳥", "(B) 成仙", "(C) 飛走", "(D) 睡著"], "correct_answer": "B", "explanation": "羽化指成仙。"}
      ]
    },
    {
      "type": "題組",
      "difficulty": "中等",
      "article_content": "壬戌之秋，七月既望，蘇子與客泛舟遊於赤壁之下。",
      "questions": [
        {"id": "2", "question_text": "「既望」指農曆哪一天？", "options": ["十五", "十六", "十七", "十八"], "correct_answer": "B", "explanation": "望為十五，既望為十六。"},
        {"id": "3", "question_text": "本段點出的季節是？", "options": ["春", "夏", "秋", "冬"], "correct_answer": "C", "explanation": "七月為秋。"}
      ]
    }
  ]
}`

func TestNormalize_CodeFence(t *testing.T) {
	raw := "好的，以下是試卷：\n```json\n" + groupedPayload + "\n```\n祝考試順利"

	paper, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, models.KindGrouped, paper.Kind)
	assert.Equal(t, "唐宋 - 赤壁賦", paper.MainScopeText)
	require.Len(t, paper.QuestionBlocks, 2)
	assert.Equal(t, 3, paper.QuestionCount())
	assert.Equal(t, "1", paper.QuestionBlocks[0].Questions[0].ID)
	assert.Equal(t, "壬戌之秋，七月既望，蘇子與客泛舟遊於赤壁之下。", paper.QuestionBlocks[1].ArticleContent)
}

func TestNormalize_PlainFence(t *testing.T) {
	paper, err := Normalize("```\n" + groupedPayload + "\n```")
	require.NoError(t, err)
	assert.Equal(t, 3, paper.QuestionCount())
}

func TestNormalize_SurroundingProse(t *testing.T) {
	paper, err := Normalize(`here is your exam: {"questions": []} thanks`)
	require.NoError(t, err)

	assert.Equal(t, models.KindFlat, paper.Kind)
	assert.Empty(t, paper.QuestionBlocks)
	assert.False(t, IsSentinel(paper))
}

func TestNormalize_NoBracesReturnsSentinel(t *testing.T) {
	paper, err := Normalize("抱歉，我無法產生試題。")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoJSONObject)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
	assert.True(t, IsSentinel(paper))
	assert.Equal(t, "解析錯誤", paper.MainScopeText)
	assert.Empty(t, paper.QuestionBlocks)
}

func TestNormalize_InvalidJSONReturnsSentinel(t *testing.T) {
	paper, err := Normalize(`{"question_blocks": [ {"type": }`)

	require.Error(t, err)
	assert.True(t, IsSentinel(paper))
}

func TestNormalize_WrongShapeReturnsSentinel(t *testing.T) {
	paper, err := Normalize(`{"answer": 42}`)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongShape)
	assert.True(t, IsSentinel(paper))
}

func TestNormalize_SentinelSerialisesToFixedShape(t *testing.T) {
	data, err := json.Marshal(Sentinel())
	require.NoError(t, err)
	assert.JSONEq(t, `{"main_scope_text":"解析錯誤","question_blocks":[]}`, string(data))
}

func TestNormalize_FlatPayload(t *testing.T) {
	raw := `{
	  "main_text": {"title": "赤壁賦", "content": [{"source": "蘇軾", "text": "清風徐來，水波不興。"}]},
	  "questions": [
	    {"type": "單題", "difficulty": "簡單", "question_text": "q1", "options": {"B": "乙", "A": "甲"}, "correct_answer": "A", "explanation": "e1"},
	    {"type": "單題", "difficulty": "中等", "question_text": "q2", "options": ["甲", "乙"], "correct_answer": true, "explanation": 3},
	    {"type": "單題", "difficulty": "中等", "question_text": "q3", "options": "甲乙", "correct_answer": "C", "explanation": ""},
	    {"type": "單題", "difficulty": "困難", "question_text": "q4", "options": [], "correct_answer": "D", "explanation": ""},
	    {"type": "單題", "difficulty": "困難", "question_text": "q5", "correct_answer": "A", "explanation": ""}
	  ]
	}`

	paper, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, models.KindFlat, paper.Kind)
	assert.Equal(t, 5, paper.QuestionCount())
	assert.Equal(t, "赤壁賦\n\n【蘇軾】\n清風徐來，水波不興。", paper.MainScopeText)

	first := paper.QuestionBlocks[0]
	assert.Equal(t, "單題", first.Type)
	assert.Equal(t, "簡單", first.Difficulty)
	assert.Equal(t, []string{"(A) 甲", "(B) 乙"}, first.Questions[0].Options)

	second := paper.QuestionBlocks[1].Questions[0]
	assert.Equal(t, "true", second.CorrectAnswer)
	assert.Equal(t, "3", second.Explanation)

	assert.Equal(t, []string{"甲乙"}, paper.QuestionBlocks[2].Questions[0].Options)
	assert.NotNil(t, paper.QuestionBlocks[4].Questions[0].Options)
}

func TestNormalize_Idempotent(t *testing.T) {
	for name, raw := range map[string]string{
		"grouped": groupedPayload,
		"flat":    `{"main_text": "範圍", "questions": [{"type": "單題", "difficulty": "簡單", "question_text": "q", "options": ["a"], "correct_answer": "A", "explanation": "x"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			first, err := Normalize(raw)
			require.NoError(t, err)

			data, err := json.Marshal(first)
			require.NoError(t, err)

			second, err := Normalize(string(data))
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"unterminated fence", "```json\n{\"a\":1}", `{"a":1}`},
		{"prose", `text {"a":{"b":2}} more`, `{"a":{"b":2}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ExtractJSON("} backwards {")
	assert.ErrorIs(t, err, ErrNoJSONObject)
}

func TestWriteXLSX(t *testing.T) {
	paper, err := Normalize(groupedPayload)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(paper, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(questionSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "題號", rows[0][0])
	assert.Equal(t, "3", rows[3][0])
	assert.Equal(t, "本段點出的季節是？", rows[3][4])

	answer, err := f.GetCellValue(answerSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "B", answer)
}

func TestWriteXLSX_NilPaper(t *testing.T) {
	assert.Error(t, WriteXLSX(nil, &bytes.Buffer{}))
}
