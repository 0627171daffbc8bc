// Package ratelimit provides per-client request rate limiting using token
// buckets.
package ratelimit

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// bucket is a token bucket refilling at a steady rate.
type bucket struct {
	mu         sync.Mutex
	capacity   int
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
}

func newBucket(capacity int, refillRate float64) *bucket {
	return &bucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

// take refills based on elapsed time, then consumes one token if available.
// It returns whether the request is allowed, the remaining tokens, and when
// the bucket will be full again.
func (b *bucket) take() (allowed bool, remaining int, reset time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens = min(float64(b.capacity), b.tokens+now.Sub(b.lastRefill).Seconds()*b.refillRate)
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		allowed = true
	}

	remaining = int(b.tokens)
	if b.tokens < float64(b.capacity) {
		deficit := float64(b.capacity) - b.tokens
		reset = now.Add(time.Duration(deficit / b.refillRate * float64(time.Second)))
	} else {
		reset = now
	}
	return allowed, remaining, reset
}

// Info describes the rate limit state for a request.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Rule is a per-endpoint limit.
type Rule struct {
	Method string
	Path   string
	Limit  int // requests per Window
	Window time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled       bool
	DefaultLimit  int
	DefaultWindow time.Duration
	Rules         []Rule
}

// LoadConfig builds configuration from environment variables, with tighter
// built-in limits on the credential endpoints.
// RATE_LIMIT_ENABLED (default true), RATE_LIMIT_DEFAULT (default 300/min).
func LoadConfig() *Config {
	enabled := true
	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		enabled, _ = strconv.ParseBool(v)
	}

	limit := 300
	if v := os.Getenv("RATE_LIMIT_DEFAULT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	return &Config{
		Enabled:       enabled,
		DefaultLimit:  limit,
		DefaultWindow: time.Minute,
		Rules: []Rule{
			{Method: "POST", Path: "/users/login", Limit: 10, Window: time.Minute},
			{Method: "POST", Path: "/users/register", Limit: 10, Window: time.Minute},
			{Method: "POST", Path: "/resume/analyze", Limit: 20, Window: time.Minute},
			{Method: "GET", Path: "/health", Limit: 0}, // unlimited
		},
	}
}

// Limiter manages token buckets keyed by client and endpoint.
type Limiter struct {
	mu         sync.RWMutex
	buckets    map[string]*bucket
	lastAccess map[string]time.Time
	config     *Config
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewLimiter creates a limiter and starts its cleanup goroutine.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = LoadConfig()
	}

	l := &Limiter{
		buckets:    make(map[string]*bucket),
		lastAccess: make(map[string]time.Time),
		config:     config,
		stop:       make(chan struct{}),
	}

	if config.Enabled {
		go l.cleanupLoop(5 * time.Minute)
	}
	return l
}

// Allow checks whether a request from the given client is allowed.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled {
		return true, Info{Allowed: true}
	}

	limit, window := l.config.DefaultLimit, l.config.DefaultWindow
	for _, rule := range l.config.Rules {
		if rule.Method == method && rule.Path == path {
			limit, window = rule.Limit, rule.Window
			break
		}
	}
	if limit <= 0 {
		return true, Info{Allowed: true}
	}

	key := clientID + ":" + method + ":" + path
	b := l.bucketFor(key, limit, window)

	l.mu.Lock()
	l.lastAccess[key] = time.Now()
	l.mu.Unlock()

	allowed, remaining, reset := b.take()

	info := Info{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetTime: reset,
	}
	if !allowed {
		if retry := time.Until(reset); retry > 0 {
			info.RetryAfter = retry
		}
	}
	return allowed, info
}

func (l *Limiter) bucketFor(key string, limit int, window time.Duration) *bucket {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.buckets[key]; ok {
		return existing
	}
	b = newBucket(limit, float64(limit)/window.Seconds())
	l.buckets[key] = b
	return b
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictStale(time.Hour)
		case <-l.stop:
			return
		}
	}
}

// evictStale drops buckets not seen within maxIdle.
func (l *Limiter) evictStale(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, last := range l.lastAccess {
		if last.Before(cutoff) {
			delete(l.buckets, key)
			delete(l.lastAccess, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
