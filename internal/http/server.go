// Package http serves the finset REST API, the chart endpoints, the
// operational endpoints and the embedded dashboard shell.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"finset/internal/cache"
	"finset/internal/core"
	"finset/internal/log"
	"finset/internal/middleware/cors"
	"finset/internal/middleware/ratelimit"
	"finset/internal/middleware/security"
	"finset/internal/middleware/trace"
	"finset/internal/services"
)

const (
	apiPrefix = "/api/"

	healthTimeout   = 5 * time.Second
	cleanupInterval = 10 * time.Minute

	keyTransactions = "transactions"
	keyStats        = "stats"
	keyBreakdown    = "breakdown"
)

// Config holds the HTTP layer settings.
type Config struct {
	Addr               string
	AllowOrigins       []string
	RateLimitPerMinute int
	CacheTTL           time.Duration
}

type Server struct {
	http.Server
	service    *services.TransactionService
	logger     *log.Logger
	structured *log.StructuredLogger
	now        func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	caches         *cache.Manager
	listCache      *cache.LRUCache[[]core.Transaction]
	statsCache     *cache.LRUCache[core.Stats]
	flowCache      *cache.LRUCache[[]core.MonthFlow]
	breakdownCache *cache.LRUCache[[]core.CategoryAmount]

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l.WithComponent(log.ComponentHTTP) }
}

// WithClock sets the clock used for "today" in dashboard and chart
// responses.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. Call Shutdown to stop it and its background goroutines.
func NewServer(cfg Config, svc *services.TransactionService, opts ...Option) *Server {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	s := &Server{
		Server:           http.Server{Addr: cfg.Addr},
		service:          svc,
		logger:           log.Discard(),
		now:              time.Now,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		securityDetector: security.NewDetector(),
		caches:           cache.NewManager(),
		listCache:        cache.NewLRUCache[[]core.Transaction](1, cfg.CacheTTL),
		statsCache:       cache.NewLRUCache[core.Stats](1, cfg.CacheTTL),
		flowCache:        cache.NewLRUCache[[]core.MonthFlow](services.MaxFlowMonths, cfg.CacheTTL),
		breakdownCache:   cache.NewLRUCache[[]core.CategoryAmount](1, cfg.CacheTTL),
		appMetrics:       appMetrics{startedAt: time.Now()},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.structured = log.NewStructuredLogger(s.logger)
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, s.structured)

	s.caches.Register(s.listCache)
	s.caches.Register(s.statsCache)
	s.caches.Register(s.flowCache)
	s.caches.Register(s.breakdownCache)
	s.caches.StartCleanup(cleanupInterval)

	mux := http.NewServeMux()
	s.routes(mux)
	s.Handler = s.middleware(mux, cfg)
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleAPIHealth)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("DELETE /api/transactions/{$}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/monthly-flow", s.handleMonthlyFlow)
	mux.HandleFunc("GET /api/category-breakdown", s.handleCategoryBreakdown)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/charts/{kind}", s.handleChart)
	mux.HandleFunc("GET /api/charts/{kind}/tooltip", s.handleChartTooltip)
	mux.HandleFunc("GET /api/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError().Write(w)
	})

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.mountStatic(mux)
}

// middleware wraps the mux, outermost first: tracing, request logger,
// security headers, suspicious request detection, CORS, panic recovery and
// the API rate limit.
func (s *Server) middleware(mux http.Handler, cfg Config) http.Handler {
	limited := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldComponent, log.ComponentRateLimit,
			log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, msgRateLimited).Write(w)
	})(mux)

	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, apiPrefix) {
			limited.ServeHTTP(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})
	h = s.recoverPanic(h)
	h = cors.Middleware(cfg.AllowOrigins)(h)
	h = s.securityDetector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.Middleware(s.logger, trace.RequestID)(h)
	return s.traceMiddleware.Middleware(h)
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.structured.LogError(r.Context(), "Handler panic", fmt.Errorf("panic: %v", v), log.ComponentHTTP, r.Method+" "+r.URL.Path, nil)
				InternalServerError().Write(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops background goroutines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidate drops every cached response after a store mutation.
func (s *Server) invalidate() {
	s.caches.Invalidate()
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

// transactions returns the full list, cached until the next mutation or
// TTL expiry. The slice is a copy the caller may keep.
func (s *Server) transactions(ctx context.Context) ([]core.Transaction, error) {
	if txs, ok := s.listCache.Get(keyTransactions); ok {
		return append([]core.Transaction(nil), txs...), nil
	}
	txs, err := s.service.List(ctx)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	s.listCache.Set(keyTransactions, txs)
	return append([]core.Transaction(nil), txs...), nil
}

func (s *Server) stats(ctx context.Context) (core.Stats, error) {
	if st, ok := s.statsCache.Get(keyStats); ok {
		return st, nil
	}
	st, err := s.service.Stats(ctx)
	if err != nil {
		return core.Stats{}, err
	}
	s.statsCache.Set(keyStats, st)
	return st, nil
}

func (s *Server) monthlyFlow(ctx context.Context, months int) ([]core.MonthFlow, error) {
	key := strconv.Itoa(months)
	if rows, ok := s.flowCache.Get(key); ok {
		return rows, nil
	}
	rows, err := s.service.MonthlyFlow(ctx, months)
	if err != nil {
		return nil, err
	}
	s.flowCache.Set(key, rows)
	return rows, nil
}

func (s *Server) categoryBreakdown(ctx context.Context) ([]core.CategoryAmount, error) {
	if rows, ok := s.breakdownCache.Get(keyBreakdown); ok {
		return rows, nil
	}
	rows, err := s.service.CategoryBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []core.CategoryAmount{}
	}
	s.breakdownCache.Set(keyBreakdown, rows)
	return rows, nil
}

// isClientGone reports a request abandoned by the caller.
func isClientGone(err error) bool {
	return errors.Is(err, context.Canceled)
}
