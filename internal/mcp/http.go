package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-score-reader/internal/docx"
	"github.com/a3tai/mcp-score-reader/internal/history"
	"github.com/a3tai/mcp-score-reader/internal/report"
	"github.com/a3tai/mcp-score-reader/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Handler returns the HTTP surface: MCP over SSE plus the report endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+s.config.Address()))
	r.Handle("/sse", sse.SSEHandler())
	r.Handle("/message", sse.MessageHandler())

	r.Post("/process", s.handleProcessHTTP)
	r.Get("/download/{id}", s.handleDownloadHTTP)
	r.Get("/history", s.handleHistoryHTTP)
	r.Delete("/delete/{id}", s.handleDeleteHTTP)
	r.Get("/statistics", s.handleStatisticsHTTP)
	return r
}

func (s *Server) runServerMode(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting score MCP server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleDownloadHTTP(w http.ResponseWriter, r *http.Request) {
	entry, err := s.svc.Download(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("password"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	f, err := os.Open(entry.FilePath)
	if err != nil {
		s.writeServiceError(w, service.ErrReportNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(entry.FileName)))
	http.ServeContent(w, r, entry.FileName, info.ModTime(), f)
}

func (s *Server) handleHistoryHTTP(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.History(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "history": entries})
}

func (s *Server) handleDeleteHTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.Delete(r.Context(), id, r.URL.Query().Get("password")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "report deleted"})
}

func (s *Server) handleStatisticsHTTP(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "statistics": s.svc.Statistics()})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		code = http.StatusUnauthorized
	case errors.Is(err, service.ErrReportNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrRateLimited):
		code = http.StatusTooManyRequests
	case errors.Is(err, service.ErrBatchTooLarge):
		code = http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrNoDocuments), errors.Is(err, service.ErrInvalidType):
		code = http.StatusBadRequest
	default:
		var docErr *docx.Error
		if errors.As(err, &docErr) {
			code = http.StatusBadRequest
		}
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeError(w, code, err)
}

// downloadURL is the address a client fetches report id from. It is absolute
// in server mode.
func (s *Server) downloadURL(id string) string {
	path := "/download/" + url.PathEscape(id)
	if s.config.IsServerMode() {
		return "http://" + s.config.Address() + path
	}
	return path
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"success": false, "error": err.Error()})
}
