package prompt

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const templateFile = "exam_prompt.yaml"

//go:embed exam_prompt.yaml
var fs embed.FS

// Example is one worked request/answer pair shown to the model.
type Example struct {
	Instruction string `yaml:"instruction"`
	Context     string `yaml:"context"`
	Output      string `yaml:"output"`
}

// Template holds the fixed system instruction and few-shot examples.
type Template struct {
	System   string    `yaml:"system"`
	Examples []Example `yaml:"examples"`
}

// LoadTemplate reads dir/exam_prompt.yaml when present, else the embedded default.
func LoadTemplate(dir string) (*Template, error) {
	if dir != "" {
		path := filepath.Join(dir, templateFile)
		data, err := os.ReadFile(path)
		if err == nil {
			log.Debug().Str("file", path).Msg("Using prompt override")
			return parseTemplate(data)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read prompt template: %w", err)
		}
	}

	data, err := fs.ReadFile(templateFile)
	if err != nil {
		return nil, fmt.Errorf("embedded prompt template missing: %w", err)
	}
	return parseTemplate(data)
}

func parseTemplate(data []byte) (*Template, error) {
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	if strings.TrimSpace(t.System) == "" {
		return nil, fmt.Errorf("prompt template has no system instruction")
	}
	// the system text goes through text/template
	if strings.Contains(t.System, "{{") {
		return nil, fmt.Errorf("system instruction must not contain {{")
	}
	for i, ex := range t.Examples {
		if strings.TrimSpace(ex.Output) == "" {
			return nil, fmt.Errorf("few-shot example %d has no output", i+1)
		}
	}
	return &t, nil
}
