package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"quartergrid/internal/cache"
	applog "quartergrid/internal/log"
	"quartergrid/internal/middleware/ratelimit"
	"quartergrid/internal/middleware/security"
	"quartergrid/internal/middleware/trace"
	"quartergrid/internal/session"
	"quartergrid/internal/sheets"
)

// Pinger reports backend readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of a Server. Reader and Ready may be nil.
type Deps struct {
	Sessions *session.Store
	Reader   sheets.SnapshotReader
	Ready    Pinger
	Logger   *applog.Logger
	// RequestsPerMinute limits mutating requests per client; 0 means 60.
	RequestsPerMinute int
}

type Server struct {
	http.Server
	sessions *session.Store
	reader   sheets.SnapshotReader
	ready    Pinger
	logger   *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	caches   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	rlConfig := ratelimit.DefaultConfig()
	if deps.RequestsPerMinute > 0 {
		rlConfig.RequestsPerMinute = deps.RequestsPerMinute
	}

	s := &Server{
		sessions: deps.Sessions,
		reader:   deps.Reader,
		ready:    deps.Ready,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(rlConfig),
		detector: security.NewDetector(logger),
		caches:   cache.NewManager(logger),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	s.caches.Register(s.sessions.Cache())
	s.caches.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /sessions/{id}/tables", s.handleAddTable)
	mux.HandleFunc("POST /sessions/{id}/rows", s.handleAddRow)
	mux.HandleFunc("PUT /sessions/{id}/values", s.handlePutValues)
	mux.HandleFunc("POST /sessions/{id}/submit", s.handleSubmit)
	mux.HandleFunc("GET /sessions/{id}/export.xlsx", s.handleExportXLSX)
	mux.HandleFunc("POST /compute", s.handleCompute)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// withMiddleware wraps the mux with tracing, scan detection, security
// headers and per-IP limiting of mutating requests, outermost first.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	}

	h := s.limiter.Middleware(s.detector.ExtractClientIP, onLimit)(next)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	return s.tracer.Middleware(h)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
