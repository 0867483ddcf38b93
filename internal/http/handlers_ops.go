package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"finset/internal/cache"
)

type appMetrics struct {
	startedAt time.Time
	created   int64
	deleted   int64
	imported  int64
}

// handleHealthz performs basic liveness check
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReadyz checks the store and reports cache and rate limiter state.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if _, err := s.service.Health(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["cache"] = map[string]any{
		"transactions_entries": s.listCache.Size(),
		"flow_entries":         s.flowCache.Size(),
		"status":               "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	caches := map[string]cache.Stats{
		"transactions": s.listCache.Stats(),
		"stats":        s.statsCache.Stats(),
		"flow":         s.flowCache.Stats(),
		"breakdown":    s.breakdownCache.Stats(),
	}
	order := []string{"transactions", "stats", "flow", "breakdown"}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n\n", name, help, name, name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter("http_client_errors_total", "Responses with a 4xx status", traceMetrics.ClientErrors)
	counter("http_server_errors_total", "Responses with a 5xx status", traceMetrics.ServerErrors)
	gauge("http_request_duration_avg_ms", "Average request duration in milliseconds", traceMetrics.AverageResponseTime().Milliseconds())

	counter("transactions_created_total", "Transactions created through the API", atomic.LoadInt64(&s.appMetrics.created))
	counter("transactions_deleted_total", "Transactions deleted through the API", atomic.LoadInt64(&s.appMetrics.deleted))
	counter("transactions_imported_total", "Transactions inserted by imports", atomic.LoadInt64(&s.appMetrics.imported))

	fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n# TYPE cache_hits_total counter\n")
	for _, name := range order {
		fmt.Fprintf(w, "cache_hits_total{cache=%q} %d\n", name, caches[name].Hits)
	}
	fmt.Fprintf(w, "\n# HELP cache_misses_total Total cache misses\n# TYPE cache_misses_total counter\n")
	for _, name := range order {
		fmt.Fprintf(w, "cache_misses_total{cache=%q} %d\n", name, caches[name].Misses)
	}
	fmt.Fprintf(w, "\n# HELP cache_entries Current cache entries\n# TYPE cache_entries gauge\n")
	for _, name := range order {
		fmt.Fprintf(w, "cache_entries{cache=%q} %d\n", name, caches[name].Size)
	}
	fmt.Fprintln(w)

	counter("rate_limit_hits_total", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	counter("invalid_forwarded_ip_total", "Forwarded client IPs that failed to parse", securityMetrics.InvalidIPAttempts)
	gauge("uptime_seconds", "Application uptime in seconds", int64(time.Since(s.appMetrics.startedAt).Seconds()))
}
