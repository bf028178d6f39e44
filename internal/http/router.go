package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splax/heatlens/internal/domain"
	"github.com/splax/heatlens/internal/service/telemetry"
	"github.com/splax/heatlens/internal/ws"
)

// Estimator produces structural heatmap estimates from raw HTML.
type Estimator interface {
	EstimateHTML(rawHTML, pageURL string) domain.EstimateResult
}

// TelemetryService answers snapshot, comparison and insight queries over stored telemetry.
type TelemetryService interface {
	Snapshot(ctx context.Context, sel telemetry.Selection) (domain.HeatmapSnapshot, error)
	Compare(ctx context.Context, siteID, path, device string, a, b domain.Period) (domain.Comparison, error)
	Insights(ctx context.Context, siteID string, days int) (domain.InsightReport, error)
}

// StreamHub tracks live insight subscribers per site.
type StreamHub interface {
	Register(siteID string, client ws.Subscriber)
	Unregister(siteID string, client ws.Subscriber)
}

// InsightStream renders the payload a new live subscriber receives first.
type InsightStream interface {
	Payload(ctx context.Context, siteID string) ([]byte, error)
}

// Settings carries the scalar router configuration.
type Settings struct {
	JWTSecret      string
	AuthDisabled   bool
	MaxHTMLBytes   int64
	HeartbeatEvery time.Duration
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux       *http.ServeMux
	logger    *slog.Logger
	estimator Estimator
	telemetry TelemetryService
	hub       StreamHub
	stream    InsightStream
	upgrader  websocket.Upgrader
	limiter   RateLimiter
	settings  Settings
	dbHealth  func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
	estimateLatency    prometheus.Histogram
	aggregateRecords   prometheus.Histogram
}

const (
	rateWindowDefault     = time.Minute
	rateWindowRealtime    = 30 * time.Second
	rateLimitEstimate     = 30
	rateLimitRead         = 120
	rateLimitStream       = 30
	healthCheckTimeout    = 2 * time.Second
	defaultMaxHTMLBytes   = 5 << 20
	defaultHeartbeatEvery = 15 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, estimator Estimator, telemetrySvc TelemetryService, hub StreamHub, stream InsightStream, limiter RateLimiter, settings Settings, dbHealth func(context.Context) error) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.MaxHTMLBytes <= 0 {
		settings.MaxHTMLBytes = defaultMaxHTMLBytes
	}
	if settings.HeartbeatEvery <= 0 {
		settings.HeartbeatEvery = defaultHeartbeatEvery
	}
	r := &Router{
		mux:       http.NewServeMux(),
		logger:    logger,
		estimator: estimator,
		telemetry: telemetrySvc,
		hub:       hub,
		stream:    stream,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:  limiter,
		settings: settings,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())
	r.mux.HandleFunc("/heatmap/estimate", r.audit("estimate", r.handlerAuthRate(estimateRule(), r.handleEstimate)))
	r.mux.HandleFunc("/heatmap/snapshot", r.audit("snapshot", r.handlerAuthRate(readRule("snapshot"), r.handleSnapshot)))
	r.mux.HandleFunc("/heatmap/compare", r.audit("compare", r.handlerAuthRate(readRule("compare"), r.handleCompare)))
	r.mux.HandleFunc("/heatmap/insights", r.audit("insights", r.handlerAuthRate(readRule("insights"), r.handleInsights)))
	r.mux.HandleFunc("/heatmap/insights/stream", r.audit("insights_sse", r.handlerAuthRate(streamRule("insights_sse"), r.handleInsightsSSE)))
	r.mux.HandleFunc("/ws/insights", r.audit("insights_ws", r.handlerAuthRate(streamRule("insights_ws"), r.handleInsightsWS)))
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"route", route,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if siteID := strings.TrimSpace(req.URL.Query().Get("site_id")); siteID != "" {
			fields = append(fields, "site_id", siteID)
		}
		if info, ok := authInfoFromContext(ctx); ok && info.Subject != "" {
			actor = "token"
			fields = append(fields, "subject", info.Subject)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		// A hijacked connection reports 101 in the access log.
		sr.status = http.StatusSwitchingProtocols
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
