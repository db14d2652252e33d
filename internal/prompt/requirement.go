package prompt

import (
	"fmt"
	"strings"

	"exam-rag/internal/models"
)

const (
	contextIntro = "請根據以下【參考課文原文】來設計試題：\n"
	noFabricate  = "請嚴格根據上述提供的原文內容出題，不要憑空捏造。"
)

var structuralRules = []string{
	"若包含「題組」或「混合題組」，請先撰寫一段共同的閱讀材料（可節錄或改寫上述原文），填入 article_content，再於其下設計 2 至 3 個子題。",
	"「單題」的 article_content 請留空字串。",
	"每一題皆須提供四個選項、正確答案與解析，子題編號依序排列。",
	noFabricate,
}

// ContextBlock introduces the retrieved passages.
func ContextBlock(retrievedContext string) string {
	return contextIntro + retrievedContext
}

// RequirementSummary renders the question counts and custom instructions.
func RequirementSummary(req models.ExamRequest) string {
	if req.Requirement.Mode == models.ModeGrid {
		return gridSummary(req)
	}
	return flatSummary(req)
}

func flatSummary(req models.ExamRequest) string {
	f := req.Requirement.Flat
	var b strings.Builder
	b.WriteString(models.ContextSeparator + "\n")
	b.WriteString("出題需求：\n")
	fmt.Fprintf(&b, "範圍：%s。\n", req.Scope())
	fmt.Fprintf(&b, "總題數：%d 題（簡單%d、中等%d、困難%d）。\n", f.Total(), f.Simple, f.Medium, f.Hard)
	b.WriteString(noFabricate)
	if custom := strings.TrimSpace(req.CustomInstructions); custom != "" {
		fmt.Fprintf(&b, "\n補充要求：%s", custom)
	}
	return b.String()
}

func gridSummary(req models.ExamRequest) string {
	var b strings.Builder
	b.WriteString(models.ContextSeparator + "\n")
	b.WriteString("出題需求：\n")
	fmt.Fprintf(&b, "範圍：%s。\n", req.Scope())

	clauses := GridClauses(req.Requirement.Grid)
	if len(clauses) > 0 {
		fmt.Fprintf(&b, "題型配置：%s（共 %d 題）。\n", strings.Join(clauses, "；"), req.Requirement.Total())
	} else {
		b.WriteString("題型配置：未指定，請依補充要求出題。\n")
	}
	if custom := strings.TrimSpace(req.CustomInstructions); custom != "" {
		fmt.Fprintf(&b, "補充要求：%s\n", custom)
	}
	b.WriteString("出題規則：")
	for i, rule := range structuralRules {
		fmt.Fprintf(&b, "\n%d. %s", i+1, rule)
	}
	return b.String()
}

// GridClauses emits one "<type>・<difficulty> <n> 題" clause per non-zero cell,
// in type then difficulty order. Repeated cells are summed; unknown types or
// difficulties follow in the order first seen.
func GridClauses(cells []models.GridCount) []string {
	type key struct {
		t models.QuestionType
		d models.Difficulty
	}
	counts := make(map[key]int)
	var order []key
	for _, c := range cells {
		if c.Count <= 0 {
			continue
		}
		k := key{c.Type, c.Difficulty}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k] += c.Count
	}

	clauses := make([]string, 0, len(order))
	emitted := make(map[key]bool)
	emit := func(k key) {
		if n := counts[k]; n > 0 && !emitted[k] {
			emitted[k] = true
			clauses = append(clauses, fmt.Sprintf("%s・%s %d 題", k.t, k.d, n))
		}
	}
	for _, t := range models.QuestionTypes {
		for _, d := range models.Difficulties {
			emit(key{t, d})
		}
	}
	for _, k := range order {
		emit(k)
	}
	return clauses
}
