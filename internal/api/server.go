// Package api serves a token ledger over HTTP.
//
// Routes:
//
//	GET  /health
//	GET  /token
//	GET  /accounts
//	GET  /accounts/:address
//	GET  /allowances/:owner/:spender
//	GET  /events
//	POST /transfer
//	POST /approve
//	POST /transfer-from
//
// Mutating routes act on behalf of the address in the X-Caller header.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bunrouter"
	"golang.org/x/time/rate"

	"github.com/xraph/tokenledger"
)

// Header names.
const (
	HeaderCaller    = "X-Caller"
	HeaderRequestID = "X-Request-ID"
)

// Server is an http.Handler exposing a Ledger.
type Server struct {
	ledger  *tokenledger.Ledger
	router  *bunrouter.Router
	limiter *rate.Limiter
	logger  *slog.Logger
	extra   []route
}

type route struct {
	method, path string
	handler      http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRateLimit allows r requests per second with the given burst across
// all clients.
func WithRateLimit(r float64, burst int) Option {
	return func(s *Server) { s.limiter = rate.NewLimiter(rate.Limit(r), burst) }
}

// WithHandler mounts an extra handler, such as a metrics endpoint.
func WithHandler(method, path string, h http.Handler) Option {
	return func(s *Server) { s.extra = append(s.extra, route{method, path, h}) }
}

// New creates a Server for l.
func New(l *tokenledger.Ledger, opts ...Option) *Server {
	s := &Server{
		ledger:  l,
		limiter: rate.NewLimiter(rate.Every(20*time.Millisecond), 100),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = bunrouter.New(
		bunrouter.Use(s.requestID, s.accessLog, s.rateLimit, s.errorHandler),
	)

	s.router.GET("/health", s.health)
	s.router.GET("/token", s.token)
	s.router.GET("/accounts", s.accounts)
	s.router.GET("/accounts/:address", s.account)
	s.router.GET("/allowances/:owner/:spender", s.allowance)
	s.router.GET("/events", s.events)
	s.router.POST("/transfer", s.transfer)
	s.router.POST("/approve", s.approve)
	s.router.POST("/transfer-from", s.transferFrom)

	for _, r := range s.extra {
		s.router.Handle(r.method, r.path, bunrouter.HTTPHandler(r.handler))
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ──────────────────────────────────────────────────
// Middleware
// ──────────────────────────────────────────────────

func (s *Server) requestID(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		rid := req.Header.Get(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, rid)
		return next(w, req)
	}
}

func (s *Server) accessLog(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		err := next(rec, req)
		s.logger.Debug("http request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"request_id", w.Header().Get(HeaderRequestID),
			"elapsed", time.Since(start),
		)
		return err
	}
}

func (s *Server) rateLimit(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		if !s.limiter.Allow() {
			return writeError(w, http.StatusTooManyRequests, "too many requests", "")
		}
		return next(w, req)
	}
}

func (s *Server) errorHandler(next bunrouter.HandlerFunc) bunrouter.HandlerFunc {
	return func(w http.ResponseWriter, req bunrouter.Request) error {
		err := next(w, req)
		if err == nil {
			return nil
		}
		status, kind := classify(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("request failed",
				"path", req.URL.Path,
				"request_id", w.Header().Get(HeaderRequestID),
				"error", err,
			)
		}
		return writeError(w, status, err.Error(), kind)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
