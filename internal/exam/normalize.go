package exam

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"exam-rag/internal/models"
)

const (
	jsonFence = "```json"
	fence     = "```"
)

var (
	ErrNoJSONObject = errors.New("無效的 JSON 結構: no {...} span found")
	ErrWrongShape   = errors.New("JSON object has neither question_blocks nor questions")
)

// ParseError explains why the model output was replaced by the sentinel.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Sentinel is the empty, clearly flagged paper returned on parse failure.
func Sentinel() *models.ExamPaper {
	return &models.ExamPaper{
		Kind:           models.KindGrouped,
		MainScopeText:  models.ParseErrorMarker,
		QuestionBlocks: []models.QuestionBlock{},
	}
}

// IsSentinel reports whether p is the parse-failure paper.
func IsSentinel(p *models.ExamPaper) bool {
	return p != nil && p.MainScopeText == models.ParseErrorMarker && len(p.QuestionBlocks) == 0
}

// Normalize extracts the JSON payload from raw model output. It never fails:
// on any problem it logs, returns Sentinel() and a *ParseError describing why.
func Normalize(raw string) (*models.ExamPaper, error) {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return fail("extract", err)
	}
	paper, err := Decode([]byte(payload))
	if err != nil {
		return fail("decode", err)
	}
	return paper, nil
}

func fail(stage string, err error) (*models.ExamPaper, error) {
	log.Error().Err(err).Str("stage", stage).Msg("JSON 解析失敗")
	return Sentinel(), &ParseError{Reason: stage + " failed", Err: err}
}

// ExtractJSON isolates the {...} span, preferring a ```json fence, then any fence.
func ExtractJSON(raw string) (string, error) {
	text := strings.TrimSpace(raw)

	switch {
	case strings.Contains(text, jsonFence):
		text = fenceInterior(text, jsonFence)
	case strings.Contains(text, fence):
		text = fenceInterior(text, fence)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSONObject
	}
	return text[start : end+1], nil
}

// fenceInterior returns the text between the first opening marker and the
// next closing fence, or everything after the marker when unterminated.
func fenceInterior(text, marker string) string {
	_, after, _ := strings.Cut(text, marker)
	inner, _, _ := strings.Cut(after, fence)
	return inner
}
