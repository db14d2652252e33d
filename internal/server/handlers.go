package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"exam-rag/internal/exam"
	"exam-rag/internal/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExamService is the pipeline the handlers drive.
type ExamService interface {
	GenerateExam(ctx context.Context, req models.ExamRequest) (*models.Generation, error)
}

type Handler struct {
	svc  ExamService
	page *page
}

func NewHandler(svc ExamService) (*Handler, error) {
	p, err := newPage()
	if err != nil {
		return nil, err
	}
	return &Handler{svc: svc, page: p}, nil
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	Success(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Texts lists the selectable exam scopes.
func (h *Handler) Texts(w http.ResponseWriter, _ *http.Request) {
	Success(w, http.StatusOK, models.ClassicalTexts)
}

// CreateExam runs the pipeline for a JSON ExamRequest.
func (h *Handler) CreateExam(w http.ResponseWriter, r *http.Request) {
	var req models.ExamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Requirement.Mode == "" {
		req.Requirement.Mode = models.ModeFlat
	}

	gen, err := h.svc.GenerateExam(r.Context(), req)
	if err != nil {
		HandleError(w, err)
		return
	}
	Success(w, http.StatusOK, gen)
}

// ExportExam converts a paper (either JSON shape) into an xlsx workbook.
func (h *Handler) ExportExam(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		Error(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	paper, err := exam.Decode(body)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	name := fmt.Sprintf("exam-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := exam.WriteXLSX(paper, w); err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
	}
}
