// Package server exposes sleep analysis over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/verte-zerg/tuisleep/internal/analysis"
	"github.com/verte-zerg/tuisleep/internal/dataset"
	"github.com/verte-zerg/tuisleep/internal/history"
	"github.com/verte-zerg/tuisleep/internal/model"
	"github.com/verte-zerg/tuisleep/internal/store"
)

const (
	maxUploadBytes  = 1 << 20
	uploadField     = "file"
	uploadSource    = "upload"
	shutdownTimeout = 5 * time.Second
)

// History reads stored analyses.
type History interface {
	ListAnalyses(ctx context.Context, cfg model.HistoryConfig) ([]model.AnalysisRecord, error)
	ListAnalysisDays(ctx context.Context, id string) ([]model.DayPrediction, error)
	GetAnalysis(ctx context.Context, id string) (model.AnalysisRecord, error)
}

// Server serves the analysis API.
type Server struct {
	engine  *analysis.Engine
	history History
	logger  *zap.Logger
}

// New returns a server. hist may be nil, in which case the history
// endpoints report 503.
func New(engine *analysis.Engine, hist History, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: engine, history: hist, logger: logger}
}

// NewRouter registers the API routes.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/analyze", s.analyzeUpload).Methods(http.MethodPost)
	api.HandleFunc("/analyze/default", s.analyzeDefault).Methods(http.MethodGet)
	api.HandleFunc("/history", s.listHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", s.getHistory).Methods(http.MethodGet)

	return r
}

// Handler wraps the router with access logging and panic recovery.
func (s *Server) Handler() http.Handler {
	stdLog := zap.NewStdLog(s.logger.Named("http"))
	recovered := handlers.RecoveryHandler(
		handlers.RecoveryLogger(stdLog),
		handlers.PrintRecoveryStack(false),
	)(s.NewRouter())
	return handlers.LoggingHandler(stdLog.Writer(), recovered)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) analyzeDefault(w http.ResponseWriter, r *http.Request) {
	ds, err := dataset.Default()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.analyze(w, r, ds)
}

func (s *Server) analyzeUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	data, source, err := readUpload(r)
	if err != nil {
		writeJSON(w, uploadStatus(err), ErrorResponse{Error: err.Error(), Kind: "upload"})
		return
	}

	var ds model.WeeklyDataset
	if len(bytes.TrimSpace(data)) == 0 {
		ds, err = dataset.Default()
	} else {
		ds, err = dataset.Parse(bytes.NewReader(data), source)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.analyze(w, r, ds)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, ds model.WeeklyDataset) {
	report, err := s.engine.Analyze(r.Context(), ds)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp, err := reportResponse(report)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "history store not configured"})
		return
	}
	cfg := model.HistoryConfig{}
	if raw := r.URL.Query().Get("last"); raw != "" {
		last, err := strconv.Atoi(raw)
		if err != nil || last < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid last %q", raw)})
			return
		}
		cfg.Last = last
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := history.ParseSince(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		cfg.Since = since
	}

	records, err := s.history.ListAnalyses(r.Context(), cfg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := HistoryResponse{Analyses: make([]AnalysisSummary, len(records))}
	for i, rec := range records {
		resp.Analyses[i] = summaryOf(rec)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "history store not configured"})
		return
	}
	id := mux.Vars(r)["id"]
	rec, err := s.history.GetAnalysis(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	days, err := s.history.ListAnalysisDays(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	summary := summaryOf(rec)
	summary.Days = daysOf(days)
	writeJSON(w, http.StatusOK, summary)
}

func readUpload(r *http.Request) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read body: %w", err)
		}
		return data, uploadSource, nil
	}

	file, header, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, uploadSource, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for multipart file.
			_ = cerr
		}
	}()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	source := header.Filename
	if source == "" {
		source = uploadSource
	}
	return data, source, nil
}

func uploadStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, dataset.ErrMalformedDataset) {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Kind:  string(dataset.KindOf(err)),
		})
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	s.logger.Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are already sent; nothing left to report to the client.
		_ = err
	}
}
