// Package scoring asks the external ride-scoring model how desirable a trip
// offer is. Scoring is best-effort: every failure surfaces as "unavailable",
// never as an error.
package scoring

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pkordes/shiftsim/internal/metrics"
)

// maxBodyBytes caps how much of a model response is read.
const maxBodyBytes = 1 << 20

// Options configures a Client. Zero timeouts fall back to 2s connect and 3s read.
type Options struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// RateLimit caps outbound requests per second. Zero means unlimited.
	RateLimit float64

	// Cache defaults to a fresh MemoryCache.
	Cache  Cache
	Logger *slog.Logger

	// HTTPClient overrides the transport built from the timeouts (tests).
	HTTPClient *http.Client
}

// Client scores trips by GET <BaseURL><trip id>.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	cache   Cache
	logger  *slog.Logger
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	connect := opts.ConnectTimeout
	if connect <= 0 {
		connect = 2 * time.Second
	}
	read := opts.ReadTimeout
	if read <= 0 {
		read = 3 * time.Second
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: connect}).DialContext,
				ResponseHeaderTimeout: read,
				MaxIdleConnsPerHost:   16,
				IdleConnTimeout:       90 * time.Second,
			},
		}
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(1, int(math.Ceil(opts.RateLimit))))
	}

	cache := opts.Cache
	if cache == nil {
		cache = NewMemoryCache()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := opts.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	return &Client{
		baseURL: base,
		http:    hc,
		timeout: connect + read,
		limiter: limiter,
		cache:   cache,
		logger:  logger,
	}
}

// Score returns the model's score for tripID. ok is false when the model is
// unreachable, slow, answers non-2xx, or returns no finite score. Only
// successful scores are cached. Cache reads, the request and the cache write
// share one connect+read deadline, so a slow cache cannot stretch a lookup.
func (c *Client) Score(ctx context.Context, tripID string) (float64, bool) {
	if strings.TrimSpace(tripID) == "" {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if s, ok, err := c.cacheGet(ctx, tripID); err != nil {
		c.logger.DebugContext(ctx, "score cache read failed", "trip_id", tripID, "error", err)
	} else if ok {
		metrics.ScoreLookups.WithLabelValues("hit").Inc()
		return s, true
	}

	s, ok := c.fetch(ctx, tripID)
	if !ok {
		metrics.ScoreLookups.WithLabelValues("unavailable").Inc()
		return 0, false
	}
	metrics.ScoreLookups.WithLabelValues("fetched").Inc()

	if err := c.cachePut(ctx, tripID, s); err != nil {
		c.logger.DebugContext(ctx, "score cache write failed", "trip_id", tripID, "error", err)
	}
	return s, true
}

type cachedScore struct {
	score float64
	ok    bool
	err   error
}

// cacheGet runs Cache.Get but gives up at ctx's deadline even when the cache
// implementation ignores ctx.
func (c *Client) cacheGet(ctx context.Context, tripID string) (float64, bool, error) {
	done := make(chan cachedScore, 1)
	go func() {
		s, ok, err := c.cache.Get(ctx, tripID)
		done <- cachedScore{score: s, ok: ok, err: err}
	}()
	select {
	case r := <-done:
		return r.score, r.ok, r.err
	case <-ctx.Done():
		return 0, false, ctx.Err()
	}
}

// cachePut is the PutIfAbsent counterpart of cacheGet.
func (c *Client) cachePut(ctx context.Context, tripID string, score float64) error {
	done := make(chan error, 1)
	go func() { done <- c.cache.PutIfAbsent(ctx, tripID, score) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClearCache drops every cached score.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

// fetch asks the model. ctx carries the lookup deadline.
func (c *Client) fetch(ctx context.Context, tripID string) (float64, bool) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.DebugContext(ctx, "score request throttled", "trip_id", tripID, "error", err)
			return 0, false
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+url.PathEscape(tripID), nil)
	if err != nil {
		return 0, false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "score request failed", "trip_id", tripID, "error", err)
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.DebugContext(ctx, "score request rejected", "trip_id", tripID, "status", resp.StatusCode)
		return 0, false
	}

	var body map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		c.logger.DebugContext(ctx, "score response malformed", "trip_id", tripID, "error", err)
		return 0, false
	}
	return extractScore(body)
}
