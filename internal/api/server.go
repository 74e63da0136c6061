package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/montyhall-sim-go/internal/sweep"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// Options configure a Server. Zero values pick defaults.
type Options struct {
	Logger         *log.Logger
	Limits         Limits
	RequestTimeout time.Duration
}

// Server handles HTTP requests
type Server struct {
	sweeper        *sweep.Sweeper
	errorHandler   *ErrorHandler
	logger         *log.Logger
	limits         Limits
	requestTimeout time.Duration
	startTime      time.Time
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	limits := opts.Limits
	if limits == (Limits{}) {
		limits = DefaultLimits
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	server := &Server{
		sweeper:        sweep.NewSweeper(logger),
		errorHandler:   NewErrorHandler(logger),
		logger:         logger,
		limits:         limits,
		requestTimeout: timeout,
		startTime:      time.Now(),
	}

	logger.Printf("server_initialized engine_version=%s max_doors=%d max_sweep_iterations=%d request_timeout=%s",
		EngineVersion, limits.MaxDoors, limits.MaxSweepIterations, timeout)

	return server
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.RequestLoggingMiddleware)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(s.requestTimeout))
	r.Use(s.CORSMiddleware)

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/health/live", s.handleLiveness)
	r.Get("/version", s.handleVersion)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/play", s.handlePlay)
		r.Post("/round", s.handleRound)
		r.Post("/sweep", s.handleSweep)
		r.Post("/sweep/report/{format}", s.handleSweepReport)
		r.Post("/seed/hash", s.handleSeedHash)
	})

	return r
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("response_encode_failed err=%v", err)
	}
}

// decodeJSON reads a bounded JSON body into dst, reporting failures itself
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return false
	}
	return true
}
