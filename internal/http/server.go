// Package http serves a read-only JSON view of the billing containers and
// their aggregates, plus a rate-limited refresh trigger.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"billdesk/internal/core"
	"billdesk/internal/log"
	"billdesk/internal/middleware/ratelimit"
	"billdesk/internal/middleware/security"
	"billdesk/internal/middleware/trace"
	"billdesk/internal/services"
)

// Remote reports whether the billing backend session is usable.
type Remote interface {
	Authenticated(ctx context.Context) bool
}

// LocalState is the local store the server checks and reads history from.
type LocalState interface {
	Ping(ctx context.Context) error
	ListSync(ctx context.Context, entity string, limit int) ([]core.SyncRecord, error)
}

type Options struct {
	Sync      *services.SyncService
	Dashboard *services.DashboardService
	Remote    Remote
	State     LocalState
	Formatter *core.Formatter
	// RefreshPerMinute limits POST /api/refresh per client. Zero uses the
	// limiter default.
	RefreshPerMinute int
	Logger           *log.Logger
}

type Server struct {
	http.Server

	sync      *services.SyncService
	dashboard *services.DashboardService
	remote    Remote
	state     LocalState
	format    *core.Formatter

	detector *security.Detector
	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}

	s := &Server{
		sync:      opts.Sync,
		dashboard: opts.Dashboard,
		remote:    opts.Remote,
		state:     opts.State,
		format:    opts.Formatter,
		detector:  security.NewDetector(),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RefreshPerMinute}),
		startedAt: time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/revenue", s.handleRevenue)
	mux.HandleFunc("GET /api/clients/rollup", s.handleClientRollup)
	mux.HandleFunc("GET /api/payments/methods", s.handlePaymentMethods)
	mux.HandleFunc("GET /api/invoices", s.handleInvoices)
	mux.HandleFunc("GET /api/clients", s.handleClients)
	mux.HandleFunc("GET /api/payments", s.handlePayments)
	mux.HandleFunc("GET /api/products", s.handleProducts)
	mux.HandleFunc("GET /api/journal", s.handleJournal)

	refresh := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})
	mux.Handle("POST /api/refresh", refresh(http.HandlerFunc(s.handleRefresh)))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(headers.Middleware(s.screen(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// screen rejects requests the detector flags as scanner traffic.
func (s *Server) screen(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request rejected",
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldUserAgent, r.Header.Get("User-Agent"))
			ErrorResponse(http.StatusForbidden, "Forbidden").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
