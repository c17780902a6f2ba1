package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady fails when local state is unreachable or the backend session
// is missing, since neither reads nor refreshes can succeed then.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if s.state != nil {
		if err := s.state.Ping(ctx); err != nil {
			checks["local_state"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["local_state"] = "ok"
		}
	} else {
		checks["local_state"] = "not_configured"
	}

	if s.remote != nil && s.remote.Authenticated(ctx) {
		checks["backend_session"] = "ok"
	} else {
		checks["backend_session"] = "unauthenticated"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	}

	NewJSONResponse().Status(httpStatus).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	traceMetrics := s.tracer.GetMetrics()
	rateMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	metric := func(name, kind, help string) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
	}

	metric("http_requests_total", "counter", "Total number of HTTP requests")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	metric("http_server_errors_total", "counter", "HTTP responses with a 5xx status")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	metric("http_response_time_avg_microseconds", "gauge", "Mean response time")
	fmt.Fprintf(w, "http_response_time_avg_microseconds %d\n\n", traceMetrics.AverageResponseTime())

	metric("rate_limit_hits_total", "counter", "Requests rejected by the refresh rate limit")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateMetrics.TotalHits)

	metric("suspicious_requests_total", "counter", "Requests rejected as scanner traffic")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	if s.sync != nil {
		metric("container_items", "gauge", "Records held per state container")
		fmt.Fprintf(w, "container_items{container=\"invoices\"} %d\n", len(s.sync.Invoices.State().Items))
		fmt.Fprintf(w, "container_items{container=\"clients\"} %d\n", len(s.sync.Clients.State().Items))
		fmt.Fprintf(w, "container_items{container=\"payments\"} %d\n", len(s.sync.Payments.State().Items))
		fmt.Fprintf(w, "container_items{container=\"products\"} %d\n\n", len(s.sync.Products.State().Items))
	}

	if s.dashboard != nil {
		stats := s.dashboard.Cache().Stats()
		metric("dashboard_cache_hits_total", "counter", "Dashboard memo hits")
		fmt.Fprintf(w, "dashboard_cache_hits_total %d\n\n", stats.Hits)
		metric("dashboard_cache_misses_total", "counter", "Dashboard memo misses")
		fmt.Fprintf(w, "dashboard_cache_misses_total %d\n\n", stats.Misses)
		metric("dashboard_cache_entries", "gauge", "Dashboard memo entries")
		fmt.Fprintf(w, "dashboard_cache_entries %d\n\n", stats.Size)
	}

	metric("uptime_seconds", "gauge", "Process uptime in seconds")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.startedAt).Seconds())
}
