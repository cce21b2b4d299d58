package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// Request costs charged against a caller's bucket. Endpoints that can start
// model calls or document rendering are weighted heavier than plain reads.
const (
	readCost  = 1
	writeCost = 5
)

// TokenBucket is a refilling counter for one caller.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int
	tokens     int
	refillRate int // tokens per second
	lastRefill time.Time
}

func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// AllowN takes n tokens if the bucket holds at least n.
func (tb *TokenBucket) AllowN(n int) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	refill := int(now.Sub(tb.lastRefill).Seconds() * float64(tb.refillRate))
	if refill > 0 {
		tb.tokens = min(tb.tokens+refill, tb.capacity)
		tb.lastRefill = now
	}

	if tb.tokens < n {
		return false
	}
	tb.tokens -= n
	return true
}

func (tb *TokenBucket) Allow() bool { return tb.AllowN(readCost) }

// RateLimiter manages one bucket per user+IP key.
type RateLimiter struct {
	mu         sync.RWMutex
	buckets    map[string]*TokenBucket
	capacity   int
	refillRate int
}

func NewRateLimiter(capacity, refillRate int) *RateLimiter {
	rl := &RateLimiter{
		buckets:    make(map[string]*TokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) getBucket(key string) *TokenBucket {
	rl.mu.RLock()
	bucket, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if exists {
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// recheck after acquiring the write lock
	if bucket, exists := rl.buckets[key]; exists {
		return bucket
	}

	bucket = NewTokenBucket(rl.capacity, rl.refillRate)
	rl.buckets[key] = bucket
	return bucket
}

func (rl *RateLimiter) AllowN(key string, n int) bool {
	return rl.getBucket(key).AllowN(n)
}

// cleanup drops buckets idle for more than 10 minutes so one-off callers
// do not accumulate forever.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, bucket := range rl.buckets {
			bucket.mu.Lock()
			if now.Sub(bucket.lastRefill) > 10*time.Minute {
				delete(rl.buckets, key)
			}
			bucket.mu.Unlock()
		}
		rl.mu.Unlock()
	}
}

// requestCost weights a request by the downstream work it can trigger.
// Uploads, chat sends and report renders under /v1/analyses reach the model
// or the PDF engine; everything else only touches memory or a few SQL rows.
func requestCost(r *http.Request) int {
	if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/v1/analyses") {
		return writeCost
	}
	return readCost
}

// RateLimitMiddleware enforces a per-user+IP token budget.
// capacity: max tokens in a bucket; refillRate: tokens added per second.
func RateLimitMiddleware(capacity, refillRate int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(capacity, refillRate)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// probes must never be throttled
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			key := GetUserFromContext(r.Context()) + ":" + r.RemoteAddr

			if !limiter.AllowN(key, requestCost(r)) {
				w.Header().Set("Retry-After", "60")
				http.Error(w, "rate limit exceeded, please try again later", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
