package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omarshaarawi/bracketbot/internal/export"
	"github.com/omarshaarawi/bracketbot/internal/service"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	service *service.BracketService
	http    *http.Server
}

func New(addr string, svc *service.BracketService) *Server {
	s := &Server{service: svc}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/exports/{format}", s.handleExport)
	r.Route("/brackets", func(r chi.Router) {
		r.Get("/", s.handleBrackets)
		r.Delete("/", s.handleDelete)
		r.Get("/{id}/text", s.handleBracketText)
	})
	r.Get("/stats", s.handleStats)
	r.Post("/generate", s.handleGenerate)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type gateView struct {
	State     service.RequestState `json:"state"`
	Error     string               `json:"error,omitempty"`
	StartedAt *time.Time           `json:"started_at,omitempty"`
}

func newGateView(st service.GateStatus) gateView {
	v := gateView{State: st.State}
	if st.Err != nil {
		v.Error = st.Err.Error()
	}
	if !st.StartedAt.IsZero() {
		v.StartedAt = &st.StartedAt
	}
	return v
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	session := s.service.Session()
	status := struct {
		TournamentID int       `json:"tournament_id"`
		Brackets     int       `json:"brackets"`
		LastUpdated  time.Time `json:"last_updated"`
		Generate     gateView  `json:"generate"`
		Delete       gateView  `json:"delete"`
	}{
		TournamentID: s.service.API().ID(),
		Brackets:     len(session.Brackets),
		LastUpdated:  session.LastUpdated,
		Generate:     newGateView(s.service.GenerateStatus()),
		Delete:       newGateView(s.service.DeleteStatus()),
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	file, err := s.service.Export(r.Context(), format)
	if err != nil {
		writeError(w, statusFor(err), service.StatusMessage(service.ActionExport, err))
		return
	}
	writeFile(w, file)
}

func (s *Server) handleBrackets(w http.ResponseWriter, r *http.Request) {
	brackets, err := s.service.Brackets(r.Context(), r.URL.Query().Get("strategy"))
	if errors.Is(err, service.ErrUnknownStrategy) {
		writeError(w, http.StatusBadRequest, "strategy must be one of value, chalk, chaos or all")
		return
	}
	if err != nil {
		writeError(w, statusFor(err), service.StatusMessage(service.ActionLoad, err))
		return
	}
	writeJSON(w, http.StatusOK, brackets)
}

func (s *Server) handleBracketText(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bracket id must be a number")
		return
	}

	file, err := s.service.ExportBracket(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), service.StatusMessage(service.ActionExport, err))
		return
	}
	writeFile(w, file)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.StrategyStats(r.Context())
	if err != nil {
		writeError(w, statusFor(err), service.StatusMessage(service.ActionLoad, err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "count must be a positive number")
			return
		}
		count = n
	}

	result, err := s.service.Generate(r.Context(), count)
	if err != nil {
		writeError(w, statusFor(err), service.StatusMessage(service.ActionGenerate, err))
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.DeleteAll(r.Context())
	if err != nil {
		writeError(w, statusFor(err), service.StatusMessage(service.ActionDelete, err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrRequestInFlight):
		return http.StatusConflict
	case errors.Is(err, service.ErrBracketNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUnknownStrategy):
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func writeFile(w http.ResponseWriter, file export.File) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		slog.Error("Error writing download", "file", file.Name, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
