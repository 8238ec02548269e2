// Package server exposes the bridge over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joelklabo/foundry-bridge/internal/config"
	"github.com/joelklabo/foundry-bridge/internal/core"
	"github.com/joelklabo/foundry-bridge/internal/metrics"
	"github.com/joelklabo/foundry-bridge/internal/store"
)

// maxRequestBody caps POST /invoke bodies.
const maxRequestBody = 1 << 20

// Bridge is what the HTTP layer needs from the bridge service.
type Bridge interface {
	Invoke(ctx context.Context, req core.InvokeRequest) (core.InvokeResponse, error)
	Agents() []core.AgentInfo
	Health() core.Health
	Recent(limit int) ([]store.Record, error)
}

// Server hosts the bridge API.
type Server struct {
	cfg    *config.Config
	bridge Bridge
	logger *slog.Logger
	srv    *http.Server
}

// New constructs a Server.
func New(cfg *config.Config, b Bridge, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, bridge: b, logger: logger}
}

// Handler returns the routed API with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	if s.cfg.Server.CORS {
		r.Use(withCORS)
	}
	r.Use(s.withAuth)

	r.Get("/health", s.handleHealth)
	r.Get("/agents", s.handleAgents)
	r.Post("/invoke", s.handleInvoke)
	r.Get("/invocations", s.handleInvocations)
	if s.cfg.Metrics.Enable && s.cfg.Metrics.Listen == "" {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
	return r
}

// Start runs the HTTP server until context is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("bridge listening", "addr", s.cfg.Server.Addr, "mode", s.cfg.Bridge.Mode)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// withCORS allows browser callers from any origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAuth enforces server.auth_token on everything but /health.
func (s *Server) withAuth(next http.Handler) http.Handler {
	tok := strings.TrimSpace(s.cfg.Server.AuthToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		want := []byte("Bearer " + tok)
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
			metrics.IncRejected("unauthorized")
			writeDetail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int64("ms", time.Since(start).Milliseconds()),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bridge.Health())
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.bridge.Agents()})
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req core.InvokeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		metrics.IncRejected("invalid")
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	resp, err := s.bridge.Invoke(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, core.ErrInvalidRequest):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrUnknownAgent):
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Unknown agent_id '%s'", req.AgentID))
	default:
		writeDetail(w, http.StatusInternalServerError, "Agent invocation failed: "+err.Error())
	}
}

func (s *Server) handleInvocations(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeDetail(w, http.StatusUnprocessableEntity, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	recs, err := s.bridge.Recent(limit)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invocations": recs})
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
