package prompt

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"

	"exam-rag/internal/models"
)

const examplesKey = "examples"

// Assembler builds the ordered message list sent to the model:
// system instruction, few-shot pairs, then the real request.
type Assembler struct {
	chat               prompts.ChatPromptTemplate
	example            prompts.ChatPromptTemplate
	tmpl               *Template
	formatInstructions string
}

// NewAssembler loads the prompt template, with dir as an optional override directory.
func NewAssembler(dir string) (*Assembler, error) {
	tmpl, err := LoadTemplate(dir)
	if err != nil {
		return nil, err
	}
	format, err := FormatInstructions()
	if err != nil {
		return nil, fmt.Errorf("failed to build format instructions: %w", err)
	}

	return &Assembler{
		chat: prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
			prompts.NewSystemMessagePromptTemplate(tmpl.System, nil),
			prompts.MessagesPlaceholder{VariableName: examplesKey},
			prompts.NewHumanMessagePromptTemplate(
				"{{.retrieved_context}}\n\n{{.requirement_summary}}\n\n{{.format_instructions}}",
				[]string{"retrieved_context", "requirement_summary", "format_instructions"},
			),
		}),
		example: prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
			prompts.NewHumanMessagePromptTemplate("{{.instruction}}\n\n參考文本：\n{{.context}}", []string{"instruction", "context"}),
			prompts.NewAIMessagePromptTemplate("{{.output_json}}", []string{"output_json"}),
		}),
		tmpl:               tmpl,
		formatInstructions: format,
	}, nil
}

// FormatInstructions is the schema text appended to the final request.
func (a *Assembler) FormatInstructions() string {
	return a.formatInstructions
}

// Messages renders the chat messages for one request.
func (a *Assembler) Messages(retrievedContext string, req models.ExamRequest) ([]llms.ChatMessage, error) {
	var examples []llms.ChatMessage
	for i, ex := range a.tmpl.Examples {
		msgs, err := a.example.FormatMessages(map[string]any{
			"instruction": ex.Instruction,
			"context":     ex.Context,
			"output_json": ex.Output,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to format example %d: %w", i+1, err)
		}
		examples = append(examples, msgs...)
	}
	if examples == nil {
		examples = []llms.ChatMessage{}
	}

	msgs, err := a.chat.FormatMessages(map[string]any{
		examplesKey:           examples,
		"retrieved_context":   ContextBlock(retrievedContext),
		"requirement_summary": RequirementSummary(req),
		"format_instructions": a.formatInstructions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format prompt: %w", err)
	}
	return msgs, nil
}

// Assemble returns the messages in the form the model client accepts.
func (a *Assembler) Assemble(retrievedContext string, req models.ExamRequest) ([]llms.MessageContent, error) {
	msgs, err := a.Messages(retrievedContext, req)
	if err != nil {
		return nil, err
	}
	content := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		content = append(content, llms.TextParts(m.GetType(), m.GetContent()))
	}
	return content, nil
}
