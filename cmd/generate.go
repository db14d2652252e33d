package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"exam-rag/internal/exam"
	"exam-rag/internal/helper"
	"exam-rag/internal/models"
	"exam-rag/internal/rag"
)

func retrieveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "retrieve <label>...",
		Short:   "Show the passages retrieved for each label",
		Example: `  exam-rag retrieve "唐宋 - 赤壁賦" "唐宋 - 師說"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, labels []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			segments, err := newRetriever(cfg, store).Lookup(cmd.Context(), labels)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.AppendHeader(table.Row{"Label", "Status", "Score", "Passage"})
			for _, s := range segments {
				switch s.Status {
				case rag.StatusFound:
					for _, p := range s.Passages {
						tw.AppendRow(table.Row{s.Label, s.Status, fmt.Sprintf("%.3f", p.Score), p.Text})
					}
				case rag.StatusError:
					tw.AppendRow(table.Row{s.Label, s.Status, "", s.Err})
				default:
					tw.AppendRow(table.Row{s.Label, s.Status, "", ""})
				}
			}
			tw.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 60}})
			fmt.Println(tw.Render())
			return nil
		},
	}
	return cmd
}

type generateOptions struct {
	labels     []string
	simple     int
	medium     int
	hard       int
	cells      []string
	custom     string
	xlsx       string
	jsonOutput bool
}

func generateCmd() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an exam paper",
		Example: `  exam-rag generate -l "唐宋 - 赤壁賦" --simple 2 --medium 2 --hard 1
  exam-rag generate -l "唐宋 - 師說" --cell 題組:困難:1 --cell 單題:簡單:3 --xlsx exam.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := opts.request()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			svc, err := newService(cfg, store)
			if err != nil {
				return err
			}
			gen, err := svc.GenerateExam(cmd.Context(), req)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				helper.PrettyPrint(gen)
			} else {
				printPaper(gen)
			}
			if opts.xlsx != "" && !exam.IsSentinel(gen.Paper) {
				if err := writeXLSX(gen.Paper, opts.xlsx); err != nil {
					return err
				}
				log.Info().Str("file", opts.xlsx).Msg("試卷已匯出")
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVarP(&opts.labels, "label", "l", nil, `Exam scope, e.g. "唐宋 - 赤壁賦" (repeatable)`)
	f.IntVar(&opts.simple, "simple", 0, "Number of easy questions")
	f.IntVar(&opts.medium, "medium", 0, "Number of medium questions")
	f.IntVar(&opts.hard, "hard", 0, "Number of hard questions")
	f.StringArrayVar(&opts.cells, "cell", nil, "Grid cell <type>:<difficulty>:<count>, switches to grid mode (repeatable)")
	f.StringVar(&opts.custom, "custom", "", "Custom instructions")
	f.StringVar(&opts.xlsx, "xlsx", "", "Also write the paper to this xlsx file")
	f.BoolVar(&opts.jsonOutput, "json", false, "Print the generation as JSON")
	return cmd
}

func (o generateOptions) request() (models.ExamRequest, error) {
	req := models.ExamRequest{
		Labels:             o.labels,
		Requirement:        models.NewFlatRequirement(o.simple, o.medium, o.hard),
		CustomInstructions: o.custom,
	}
	if len(o.cells) > 0 {
		cells := make([]models.GridCount, 0, len(o.cells))
		for _, c := range o.cells {
			cell, err := parseCell(c)
			if err != nil {
				return req, err
			}
			cells = append(cells, cell)
		}
		req.Requirement = models.NewGridRequirement(cells...)
	}
	return req, req.Validate()
}

func parseCell(s string) (models.GridCount, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return models.GridCount{}, fmt.Errorf("%w: cell %q must be <type>:<difficulty>:<count>", models.ErrInvalidRequest, s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || n < 0 {
		return models.GridCount{}, fmt.Errorf("%w: cell %q has an invalid count", models.ErrInvalidRequest, s)
	}
	return models.GridCount{
		Type:       models.QuestionType(strings.TrimSpace(parts[0])),
		Difficulty: models.Difficulty(strings.TrimSpace(parts[1])),
		Count:      n,
	}, nil
}

func printPaper(gen *models.Generation) {
	if exam.IsSentinel(gen.Paper) {
		log.Error().Str("reason", gen.ParseError).Msg("模型回傳的內容無法解析")
		fmt.Println(gen.Raw)
		return
	}

	fmt.Printf("%s\n\n", text.Bold.Sprint(gen.Paper.MainScopeText))
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"#", "題型", "難度", "題目", "選項", "答案"})
	n := 1
	for _, b := range gen.Paper.QuestionBlocks {
		if b.ArticleContent != "" {
			tw.AppendRow(table.Row{"", b.Type, b.Difficulty, b.ArticleContent, "", ""})
		}
		for _, q := range b.Questions {
			tw.AppendRow(table.Row{n, b.Type, b.Difficulty, q.QuestionText, strings.Join(q.Options, "\n"), q.CorrectAnswer})
			n++
		}
		tw.AppendSeparator()
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 50},
		{Number: 5, WidthMax: 30},
	})
	fmt.Println(tw.Render())
}

func writeXLSX(paper *models.ExamPaper, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := exam.WriteXLSX(paper, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
