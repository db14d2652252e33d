package exam

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"exam-rag/internal/models"
)

const (
	questionSheet = "試題"
	answerSheet   = "解答"
)

var questionHeader = []any{"題號", "題型", "難度", "閱讀材料", "題目", "選項"}
var answerHeader = []any{"題號", "答案", "解析"}

// WriteXLSX renders the paper as a workbook with a question sheet and an
// answer sheet. Numbering runs across blocks, starting at 1.
func WriteXLSX(paper *models.ExamPaper, w io.Writer) error {
	if paper == nil {
		return fmt.Errorf("failed to export exam: nil paper")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", questionSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(answerSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := f.SetSheetRow(questionSheet, "A1", &questionHeader); err != nil {
		return err
	}
	if err := f.SetSheetRow(answerSheet, "A1", &answerHeader); err != nil {
		return err
	}
	_ = f.SetCellStyle(questionSheet, "A1", "F1", bold)
	_ = f.SetCellStyle(answerSheet, "A1", "C1", bold)

	row, number := 2, 1
	for _, block := range paper.QuestionBlocks {
		for i, q := range block.Questions {
			article := ""
			if i == 0 {
				article = block.ArticleContent
			}
			cells := []any{number, block.Type, block.Difficulty, article, q.QuestionText, strings.Join(q.Options, "\n")}
			if err := f.SetSheetRow(questionSheet, cellName(1, row), &cells); err != nil {
				return fmt.Errorf("failed to write question %d: %w", number, err)
			}
			answers := []any{number, q.CorrectAnswer, q.Explanation}
			if err := f.SetSheetRow(answerSheet, cellName(1, row), &answers); err != nil {
				return fmt.Errorf("failed to write answer %d: %w", number, err)
			}
			row++
			number++
		}
	}

	if row > 2 {
		_ = f.SetCellStyle(questionSheet, "A2", cellName(6, row-1), wrap)
		_ = f.SetCellStyle(answerSheet, "A2", cellName(3, row-1), wrap)
	}
	_ = f.SetColWidth(questionSheet, "D", "E", 50)
	_ = f.SetColWidth(questionSheet, "F", "F", 30)
	_ = f.SetColWidth(answerSheet, "C", "C", 60)

	if paper.MainScopeText != "" {
		_ = f.SetDocProps(&excelize.DocProperties{Title: firstLine(paper.MainScopeText)})
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
