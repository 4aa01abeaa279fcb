// Package server exposes the lead scoring pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/intake"
	"github.com/sells-group/leadscore/internal/pipeline"
	"github.com/sells-group/leadscore/internal/store"
)

// multipartOverhead is the room allowed above intake.max_bytes for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// Server serves uploads, scored leads, progress and reports.
type Server struct {
	orch    *pipeline.Orchestrator
	store   store.Store
	cfg     config.ServerConfig
	intake  intake.Options
	limiter *rate.Limiter

	mu     sync.RWMutex
	latest *pipeline.Run
}

// New builds a Server. The store receives the leads of every successful run.
func New(orch *pipeline.Orchestrator, st store.Store, cfg config.ServerConfig, in intake.Options) *Server {
	burst := cfg.UploadBurst
	if burst < 1 {
		burst = 1
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = 50
	}
	return &Server{
		orch:    orch,
		store:   st,
		cfg:     cfg,
		intake:  in,
		limiter: rate.NewLimiter(rate.Limit(cfg.UploadsPerSecond), burst),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}),
	)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.With(s.throttle).Post("/upload", s.handleUpload)
		r.Get("/leads", s.handleLeads)
		r.Delete("/leads", s.handleClear)
		r.Get("/progress", s.handleProgress)
		r.Get("/report", s.handleReport)
		r.Get("/export", s.handleExport)
		r.Get("/runs", s.handleRuns)
	})
	return r
}

// Serve listens on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Warn("server: shutdown", zap.Error(err))
		}
	}()

	zap.L().Info("server: starting", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) setLatest(run *pipeline.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = run
}

func (s *Server) latestRun() *pipeline.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// throttle rejects uploads above the configured rate.
func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "too many uploads, retry shortly")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
