package server

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"exam-rag/internal/config"
	"exam-rag/internal/llmservice"
	"exam-rag/internal/models"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("failed to write response")
		}
	}
}

func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, SuccessResponse{Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// HandleError maps pipeline errors to a status and attaches the user hint.
func HandleError(w http.ResponseWriter, err error) {
	JSON(w, errorStatus(err), ErrorResponse{Error: err.Error(), Hint: llmservice.Hint(err)})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, config.ErrNoCredentials):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
