package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes int64 = 1 << 20

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(AccessLog)
	r.Use(MaxBodyBytes(maxBodyBytes))

	r.Get("/", h.Index)
	r.Post("/", h.Submit)
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/texts", h.Texts)
		r.Post("/exams", h.CreateExam)
		r.Post("/exams/export", h.ExportExam)
	})

	return r
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}
