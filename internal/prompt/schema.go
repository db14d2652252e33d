package prompt

import (
	"github.com/tmc/langchaingo/outputparser"
)

const formatPrefix = "請回傳完整的 JSON 格式。"

type subQuestionSchema struct {
	ID            string   `json:"id" describe:"子題編號，例如 (1), (2)"`
	QuestionText  string   `json:"question_text" describe:"題目敘述"`
	Options       []string `json:"options" describe:"選項 (A, B, C, D)"`
	CorrectAnswer string   `json:"correct_answer" describe:"正確答案"`
	Explanation   string   `json:"explanation" describe:"解析"`
}

type questionBlockSchema struct {
	Type           string              `json:"type" describe:"類型：單題 / 題組 / 混合題組"`
	Difficulty     string              `json:"difficulty" describe:"難度：簡單 / 中等 / 困難"`
	ArticleContent string              `json:"article_content" describe:"閱讀測驗的文章內容 (若為單題則留空，若為題組請填入甲、乙等引文)"`
	Questions      []subQuestionSchema `json:"questions" describe:"此區塊包含的題目列表"`
}

type examPaperSchema struct {
	MainScopeText  string                `json:"main_scope_text" describe:"測驗範圍說明"`
	QuestionBlocks []questionBlockSchema `json:"question_blocks" describe:"試題區塊列表"`
}

// FormatInstructions describes the expected JSON shape to the model.
func FormatInstructions() (string, error) {
	parser, err := outputparser.NewDefined(examPaperSchema{})
	if err != nil {
		return "", err
	}
	return formatPrefix + "\n" + parser.GetFormatInstructions(), nil
}
