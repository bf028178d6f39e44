package httpx

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

const rateLimiterSweepInterval = 5 * time.Minute

// RateLimiter counts requests per key within fixed windows.
type RateLimiter interface {
	Allow(key string, limit int, window time.Duration) rateDecision
	Close()
}

type rateDecision struct {
	allowed   bool
	count     int
	windowEnd time.Time
}

// rateRule is the budget applied to one route.
type rateRule struct {
	route  string
	limit  int
	window time.Duration
}

func estimateRule() rateRule {
	return rateRule{route: "estimate", limit: rateLimitEstimate, window: rateWindowDefault}
}

func readRule(route string) rateRule {
	return rateRule{route: route, limit: rateLimitRead, window: rateWindowDefault}
}

func streamRule(route string) rateRule {
	return rateRule{route: route, limit: rateLimitStream, window: rateWindowRealtime}
}

type memoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]rateDecision
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemoryRateLimiter returns a process-local limiter.
func NewMemoryRateLimiter() RateLimiter {
	return newMemoryRateLimiter(time.Now, rateLimiterSweepInterval)
}

func newMemoryRateLimiter(now func() time.Time, sweepEvery time.Duration) *memoryRateLimiter {
	rl := &memoryRateLimiter{
		windows: make(map[string]rateDecision),
		now:     now,
		stopCh:  make(chan struct{}),
	}
	if sweepEvery > 0 {
		go rl.sweepLoop(sweepEvery)
	}
	return rl
}

func (rl *memoryRateLimiter) Allow(key string, limit int, window time.Duration) rateDecision {
	if limit <= 0 {
		return rateDecision{allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	current, ok := rl.windows[key]
	if !ok || !now.Before(current.windowEnd) {
		current = rateDecision{windowEnd: now.Add(window)}
	}
	current.count++
	current.allowed = current.count <= limit
	if !current.allowed {
		current.count = limit
	}
	rl.windows[key] = current
	return current
}

func (rl *memoryRateLimiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stopCh:
			return
		}
	}
}

// sweep drops windows that have already closed.
func (rl *memoryRateLimiter) sweep() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, w := range rl.windows {
		if !now.Before(w.windowEnd) {
			delete(rl.windows, key)
		}
	}
}

func (rl *memoryRateLimiter) Close() {
	rl.once.Do(func() {
		close(rl.stopCh)
	})
}

// withRateLimit charges the caller's key against rule before calling next. Authenticated
// callers are keyed by subject, anonymous ones by client address.
func (r *Router) withRateLimit(rule rateRule, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if rule.limit <= 0 || r.limiter == nil {
			next(w, req)
			return
		}
		caller := rateLimitKeySubject(req)
		if caller == "" {
			caller = rateLimitKeyIP(req)
		}
		decision := r.limiter.Allow(rule.route+"|"+caller, rule.limit, rule.window)
		r.applyRateHeaders(w, rule.limit, decision)
		if !decision.allowed {
			r.recordRateLimitHit(rule.route, rateMetricKey(caller))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, req)
	}
}

func (r *Router) handlerAuthRate(rule rateRule, next http.HandlerFunc) http.HandlerFunc {
	return r.requireAuth(r.withRateLimit(rule, next))
}

func rateLimitKeySubject(req *http.Request) string {
	if info, ok := authInfoFromContext(req.Context()); ok && info.Subject != "" {
		return "sub:" + info.Subject
	}
	return ""
}

func rateLimitKeyIP(req *http.Request) string {
	host := clientIP(req)
	if host == "" {
		host = "unknown"
	}
	return "ip:" + host
}

// rateMetricKey reduces a caller key to its kind so metric cardinality stays bounded.
func rateMetricKey(caller string) string {
	if idx := strings.IndexRune(caller, ':'); idx > 0 {
		return caller[:idx]
	}
	if caller == "" {
		return "unknown"
	}
	return caller
}
