package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pantrytrack/receipt-parser/internal/common"
	"github.com/pantrytrack/receipt-parser/internal/export"
	"github.com/pantrytrack/receipt-parser/internal/pipeline"
	"github.com/pantrytrack/receipt-parser/internal/repository"
)

// Server exposes the parse pipeline over HTTP. The store and exporter are
// optional; the parse endpoint works without persistence.
type Server struct {
	parser   *pipeline.Parser
	store    repository.ParseStore
	exporter *export.Service
	logger   *slog.Logger
	http     *http.Server
}

func New(addr string, parser *pipeline.Parser, store repository.ParseStore, exporter *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		parser:   parser,
		store:    store,
		exporter: exporter,
		logger:   logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/receipts/parse", s.requestID(s.handleParse))
	mux.HandleFunc("GET /v1/receipts", s.requestID(s.handleList))
	mux.HandleFunc("GET /v1/receipts/export", s.requestID(s.handleExport))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the underlying handler, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("server.listen", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// requestID stamps each request with a fresh id so pipeline logs can be
// correlated with access logs.
func (s *Server) requestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		ctx := common.WithRequestID(r.Context(), reqID)
		w.Header().Set("X-Request-Id", reqID)
		start := time.Now()
		next(w, r.WithContext(ctx))
		s.logger.Info("server.request",
			"req_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}
