package exam

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"exam-rag/internal/models"
)

// text accepts any JSON scalar where the schema asks for a string.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = text(s)
	case '[', '{':
		*t = text(renderStructured(data))
	default:
		*t = text(data)
	}
	return nil
}

// options accepts a list, a single string, or an {"A": "..."} object.
type options []string

func (o *options) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*o = nil
		return nil
	}
	switch data[0] {
	case '[':
		var items []text
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make([]string, len(items))
		for i, item := range items {
			out[i] = string(item)
		}
		*o = out
	case '{':
		var m map[string]text
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, fmt.Sprintf("(%s) %s", k, m[k]))
		}
		*o = out
	default:
		var t text
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		*o = []string{string(t)}
	}
	return nil
}

type wireSubQuestion struct {
	ID            text    `json:"id"`
	QuestionText  text    `json:"question_text"`
	Options       options `json:"options"`
	CorrectAnswer text    `json:"correct_answer"`
	Explanation   text    `json:"explanation"`
}

type wireBlock struct {
	Type           text              `json:"type"`
	Difficulty     text              `json:"difficulty"`
	ArticleContent text              `json:"article_content"`
	Questions      []wireSubQuestion `json:"questions"`
}

type wireFlatQuestion struct {
	wireSubQuestion
	Type       text `json:"type"`
	Difficulty text `json:"difficulty"`
}

// Decode turns a JSON object into an ExamPaper, accepting the grouped
// (question_blocks) and the flat (questions) shapes.
func Decode(data []byte) (*models.ExamPaper, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	if raw, ok := fields["question_blocks"]; ok {
		var blocks []wireBlock
		if err := unmarshalList(raw, &blocks); err != nil {
			return nil, fmt.Errorf("question_blocks: %w", err)
		}
		var scope text
		if err := unmarshalOptional(fields["main_scope_text"], &scope); err != nil {
			return nil, fmt.Errorf("main_scope_text: %w", err)
		}
		paper := &models.ExamPaper{
			Kind:           models.KindGrouped,
			MainScopeText:  string(scope),
			QuestionBlocks: make([]models.QuestionBlock, 0, len(blocks)),
		}
		for _, b := range blocks {
			paper.QuestionBlocks = append(paper.QuestionBlocks, b.toModel())
		}
		return paper, nil
	}

	if raw, ok := fields["questions"]; ok {
		var questions []wireFlatQuestion
		if err := unmarshalList(raw, &questions); err != nil {
			return nil, fmt.Errorf("questions: %w", err)
		}
		var mainText text
		if err := unmarshalOptional(fields["main_text"], &mainText); err != nil {
			return nil, fmt.Errorf("main_text: %w", err)
		}
		paper := &models.ExamPaper{
			Kind:           models.KindFlat,
			MainScopeText:  string(mainText),
			QuestionBlocks: make([]models.QuestionBlock, 0, len(questions)),
		}
		for _, q := range questions {
			paper.QuestionBlocks = append(paper.QuestionBlocks, models.QuestionBlock{
				Type:       string(q.Type),
				Difficulty: string(q.Difficulty),
				Questions:  []models.SubQuestion{q.wireSubQuestion.toModel()},
			})
		}
		return paper, nil
	}

	return nil, ErrWrongShape
}

func unmarshalList(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func unmarshalOptional(raw json.RawMessage, v *text) error {
	if raw == nil {
		return nil
	}
	return v.UnmarshalJSON(raw)
}

func (b wireBlock) toModel() models.QuestionBlock {
	block := models.QuestionBlock{
		Type:           string(b.Type),
		Difficulty:     string(b.Difficulty),
		ArticleContent: string(b.ArticleContent),
		Questions:      make([]models.SubQuestion, 0, len(b.Questions)),
	}
	for _, q := range b.Questions {
		block.Questions = append(block.Questions, q.toModel())
	}
	return block
}

func (q wireSubQuestion) toModel() models.SubQuestion {
	opts := []string(q.Options)
	if opts == nil {
		opts = []string{}
	}
	return models.SubQuestion{
		ID:            string(q.ID),
		QuestionText:  string(q.QuestionText),
		Options:       opts,
		CorrectAnswer: string(q.CorrectAnswer),
		Explanation:   string(q.Explanation),
	}
}

// renderStructured flattens a passage given as an object
// {"title": ..., "content": [{"source": ..., "text": ...}]} or a list into text.
func renderStructured(data []byte) string {
	var passage struct {
		Title   string `json:"title"`
		Content []struct {
			Source string `json:"source"`
			Text   string `json:"text"`
		} `json:"content"`
	}
	if data[0] == '{' && json.Unmarshal(data, &passage) == nil && (passage.Title != "" || len(passage.Content) > 0) {
		var b strings.Builder
		if passage.Title != "" {
			b.WriteString(passage.Title)
		}
		for _, item := range passage.Content {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			if item.Source != "" {
				b.WriteString("【" + item.Source + "】\n")
			}
			b.WriteString(item.Text)
		}
		return b.String()
	}

	var items []json.RawMessage
	if data[0] == '[' && json.Unmarshal(data, &items) == nil {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			var t text
			if t.UnmarshalJSON(item) == nil {
				parts = append(parts, string(t))
			}
		}
		return strings.Join(parts, "\n\n")
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return strconv.Quote(string(data))
	}
	return compact.String()
}
