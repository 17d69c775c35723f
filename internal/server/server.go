package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/nfa-builder/internal/config"
	"github.com/jonathan/nfa-builder/internal/db"
	"github.com/jonathan/nfa-builder/internal/pipeline"
	"github.com/jonathan/nfa-builder/internal/server/middleware"
	"github.com/jonathan/nfa-builder/internal/server/ratelimit"
	"github.com/jonathan/nfa-builder/internal/signatures"
	"github.com/jonathan/nfa-builder/internal/storage"
	"github.com/jonathan/nfa-builder/internal/types"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 1 << 20

// HistoryStore is the subset of *db.DB the history endpoints use.
type HistoryStore interface {
	ListRuns(ctx context.Context, filters db.RunFilters) ([]db.Run, error)
	GetRun(ctx context.Context, runID uuid.UUID) (*db.Run, error)
	UpdateApprovalStatus(ctx context.Context, runID uuid.UUID, status string) error
}

// Config holds server configuration
type Config struct {
	Port           int
	AllowedOrigins []string
	Auth           config.AuthConfig
	// JWT and Passwords are required when Auth is enabled.
	JWT          *config.JWTConfig
	Passwords    *config.PasswordConfig
	RateLimit    *ratelimit.Config
	MaxBodyBytes int64
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Builder           *pipeline.Builder
	Store             *storage.Store
	History           HistoryStore // nil disables the history endpoints
	Signatures        signatures.Store
	SignatureDefaults types.SignatureLayout
	Logger            *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer   *http.Server
	handler      http.Handler
	builder      *pipeline.Builder
	store        *storage.Store
	history      HistoryStore
	signatures   signatures.Store
	defaults     types.SignatureLayout
	rateLimiter  *ratelimit.Limiter
	authHandler  *AuthHandler
	origins      []string
	maxBodyBytes int64
	logger       *zap.Logger
}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Builder == nil || deps.Store == nil {
		return nil, fmt.Errorf("server: builder and store are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.SignatureDefaults == (types.SignatureLayout{}) {
		deps.SignatureDefaults = signatures.Defaults()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		builder:      deps.Builder,
		store:        deps.Store,
		history:      deps.History,
		signatures:   deps.Signatures,
		defaults:     deps.SignatureDefaults,
		origins:      cfg.AllowedOrigins,
		maxBodyBytes: cfg.MaxBodyBytes,
		logger:       deps.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate-nfa", s.handleGenerate)
	mux.HandleFunc("POST /api/generate-nfa/stream", s.handleGenerateStream)
	mux.HandleFunc("POST /api/edit-nfa", s.handleEdit)
	mux.HandleFunc("POST /api/download-edited-nfa", s.handleDownloadEdited)
	mux.HandleFunc("GET /api/files/{name}", s.handleFile)
	mux.HandleFunc("GET /api/signatures", s.handleSignatures)
	mux.HandleFunc("GET /api/history", s.handleListHistory)
	mux.HandleFunc("GET /api/history/{id}", s.handleGetHistory)
	mux.HandleFunc("PATCH /api/history/{id}/status", s.handleUpdateStatus)
	mux.HandleFunc("GET "+ratelimit.HealthPath, s.handleHealth)

	var handler http.Handler = mux
	if cfg.Auth.Enabled() {
		if cfg.JWT == nil || cfg.Passwords == nil {
			return nil, fmt.Errorf("server: auth is enabled but JWT or password config is missing")
		}
		jwtService := NewJWTService(cfg.JWT)
		s.authHandler = NewAuthHandler(cfg.Auth, cfg.Passwords, jwtService, s.logger)
		mux.HandleFunc("POST /api/auth/token", s.authHandler.Token)
		handler = middleware.AuthMiddleware(jwtService.AsTokenValidator(), ratelimit.HealthPath, "/api/auth/token")(handler)
	}

	s.rateLimiter = ratelimit.NewLimiter(cfg.RateLimit)
	s.handler = s.withRateLimit(s.withLogging(s.withCORS(handler)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // model calls can be slow
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	<-errCh
	s.Close()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Close releases background resources. It does not stop a running listener.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	for _, allowed := range s.origins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps SSE streaming working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"status":  "ok",
		"history": s.history != nil,
	})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// writeError writes err in the result envelope the web client reads.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	writeJSON(w, logger, HTTPStatus(err), map[string]any{
		"success":    false,
		"error":      err.Error(),
		"error_type": errorType(err),
	})
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is ignored
// because the server does not know its proxies.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"success":    false,
		"error":      "Rate limit exceeded. Please try again later.",
		"error_type": "rate_limit_exceeded",
		"limit":      info.Limit,
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	s.logger.Warn("rate limit exceeded",
		zap.Int("limit", info.Limit),
		zap.Duration("retry_after", info.RetryAfter))

	writeJSON(w, s.logger, http.StatusTooManyRequests, response)
}
