package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"exam-rag/internal/exam"
	"exam-rag/internal/llmservice"
	"exam-rag/internal/models"
)

//go:embed templates/*.html
var templates embed.FS

type page struct {
	tmpl *template.Template
	md   goldmark.Markdown
}

type pageData struct {
	Texts      []string
	Selected   map[string]bool
	Request    models.ExamRequest
	Generation *models.Generation
	ParseError bool
	Error      string
	Hint       string
}

func newPage() (*page, error) {
	p := &page{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"markdown": p.markdown,
		"inc":      func(i int) int { return i + 1 },
	}).ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	p.tmpl = tmpl
	return p, nil
}

// markdown renders model text; raw HTML in it is dropped by goldmark.
func (p *page) markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := p.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func (p *page) render(w http.ResponseWriter, status int, data pageData) {
	data.Texts = models.ClassicalTexts
	if data.Selected == nil {
		data.Selected = make(map[string]bool)
		for _, l := range data.Request.Labels {
			data.Selected[l] = true
		}
	}
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		log.Error().Err(err).Msg("Failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// Index shows the exam settings form.
func (h *Handler) Index(w http.ResponseWriter, _ *http.Request) {
	h.page.render(w, http.StatusOK, pageData{Request: models.ExamRequest{Requirement: models.NewFlatRequirement(1, 1, 1)}})
}

// Submit handles the settings form and renders the generated paper.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.page.render(w, http.StatusBadRequest, pageData{Error: "invalid form"})
		return
	}
	req := models.ExamRequest{
		Labels: r.PostForm["labels"],
		Requirement: models.NewFlatRequirement(
			formInt(r, "simple"), formInt(r, "medium"), formInt(r, "hard"),
		),
		CustomInstructions: strings.TrimSpace(r.PostFormValue("custom")),
	}

	gen, err := h.svc.GenerateExam(r.Context(), req)
	if err != nil {
		h.page.render(w, errorStatus(err), pageData{Request: req, Error: err.Error(), Hint: llmservice.Hint(err)})
		return
	}
	h.page.render(w, http.StatusOK, pageData{Request: req, Generation: gen, ParseError: exam.IsSentinel(gen.Paper)})
}

func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue(key)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
