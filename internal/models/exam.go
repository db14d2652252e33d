package models

import (
	"encoding/json"
	"time"
)

type PaperKind string

const (
	KindGrouped PaperKind = "grouped"
	KindFlat    PaperKind = "flat"
)

// SubQuestion is one answerable question inside a block
type SubQuestion struct {
	ID            string   `json:"id"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// QuestionBlock is a standalone question or a reading group sharing ArticleContent.
type QuestionBlock struct {
	Type           string        `json:"type"`
	Difficulty     string        `json:"difficulty"`
	ArticleContent string        `json:"article_content"`
	Questions      []SubQuestion `json:"questions"`
}

// ExamPaper is the normalised model output. Flat payloads are held as one
// single-question block per question and keep Kind so they marshal back flat.
type ExamPaper struct {
	Kind           PaperKind       `json:"-"`
	MainScopeText  string          `json:"main_scope_text"`
	QuestionBlocks []QuestionBlock `json:"question_blocks"`
}

// FlatQuestion is the single-list wire shape of a question.
type FlatQuestion struct {
	ID            string   `json:"id,omitempty"`
	Type          string   `json:"type"`
	Difficulty    string   `json:"difficulty"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

type flatPaper struct {
	MainText  string         `json:"main_text"`
	Questions []FlatQuestion `json:"questions"`
}

type groupedPaper struct {
	MainScopeText  string          `json:"main_scope_text"`
	QuestionBlocks []QuestionBlock `json:"question_blocks"`
}

// MarshalJSON writes the paper in the shape it was decoded from.
func (p ExamPaper) MarshalJSON() ([]byte, error) {
	if p.Kind == KindFlat {
		return json.Marshal(flatPaper{MainText: p.MainScopeText, Questions: p.FlatQuestions()})
	}
	blocks := p.QuestionBlocks
	if blocks == nil {
		blocks = []QuestionBlock{}
	}
	return json.Marshal(groupedPaper{MainScopeText: p.MainScopeText, QuestionBlocks: blocks})
}

// FlatQuestions lists every leaf question with its block's type and difficulty.
func (p ExamPaper) FlatQuestions() []FlatQuestion {
	out := make([]FlatQuestion, 0, p.QuestionCount())
	for _, b := range p.QuestionBlocks {
		for _, q := range b.Questions {
			out = append(out, FlatQuestion{
				ID:            q.ID,
				Type:          b.Type,
				Difficulty:    b.Difficulty,
				QuestionText:  q.QuestionText,
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
				Explanation:   q.Explanation,
			})
		}
	}
	return out
}

// QuestionCount is the number of leaf questions.
func (p ExamPaper) QuestionCount() int {
	n := 0
	for _, b := range p.QuestionBlocks {
		n += len(b.Questions)
	}
	return n
}

// Generation is one run of the exam pipeline.
type Generation struct {
	ID         string      `json:"id"`
	Request    ExamRequest `json:"request"`
	Paper      *ExamPaper  `json:"paper"`
	Context    string      `json:"context"`
	Raw        string      `json:"raw,omitempty"`
	ParseErr   error       `json:"-"`
	ParseError string      `json:"parse_error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}
