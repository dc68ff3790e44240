package imagecheck

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"driverreview/internal/logger"
)

const (
	defaultTimeout = 3 * time.Second
	resultTTL      = 5 * time.Minute
	maxCached      = 4096
)

type probeResult struct {
	ok      bool
	checked time.Time
}

// Checker probes document image URLs so broken uploads can be swapped for a
// placeholder before the review dialog is rendered.
type Checker struct {
	client      *http.Client
	placeholder string
	enabled     bool
	log         logger.ILogger

	// Results are reused for resultTTL so re-rendering a dialog does not
	// probe the same documents again.
	cacheMu sync.Mutex
	cache   map[string]probeResult
	now     func() time.Time
}

func NewChecker(enabled bool, timeout time.Duration, placeholder string, log logger.ILogger) *Checker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := &http.Transport{
		TLSHandshakeTimeout: timeout,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Checker{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		placeholder: placeholder,
		enabled:     enabled,
		log:         log,
		cache:       make(map[string]probeResult),
		now:         time.Now,
	}
}

func (c *Checker) Placeholder() string {
	return c.placeholder
}

// Resolve maps every input URL to itself when it answers and to the
// placeholder otherwise. With checking disabled only empty or malformed
// URLs are replaced.
func (c *Checker) Resolve(ctx context.Context, urls []string) map[string]string {
	resolved := make(map[string]string, len(urls))
	var pending []string

	for _, u := range urls {
		if _, seen := resolved[u]; seen {
			continue
		}
		if !isHTTPURL(u) {
			resolved[u] = c.placeholder
			continue
		}
		resolved[u] = u
		pending = append(pending, u)
	}

	if !c.enabled || len(pending) == 0 {
		return resolved
	}

	pending = c.applyCached(pending, resolved)

	var wg sync.WaitGroup
	var mutex sync.Mutex
	for _, u := range pending {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()

			ok, elapsed, reason := c.doCheck(ctx, target)
			if ctx.Err() == nil {
				c.remember(target, ok)
			}
			if ok {
				return
			}
			c.log.Debug("Document image unavailable",
				logger.String("url", target),
				logger.String("reason", reason),
				logger.Any("elapsed", elapsed))

			mutex.Lock()
			resolved[target] = c.placeholder
			mutex.Unlock()
		}(u)
	}
	wg.Wait()

	return resolved
}

// applyCached fills resolved from fresh cached results and returns the
// URLs that still need a probe.
func (c *Checker) applyCached(urls []string, resolved map[string]string) []string {
	now := c.now()
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	var unknown []string
	for _, u := range urls {
		res, ok := c.cache[u]
		if !ok || now.Sub(res.checked) >= resultTTL {
			delete(c.cache, u)
			unknown = append(unknown, u)
			continue
		}
		if !res.ok {
			resolved[u] = c.placeholder
		}
	}
	return unknown
}

func (c *Checker) remember(u string, ok bool) {
	now := c.now()
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if len(c.cache) >= maxCached {
		for k, res := range c.cache {
			if now.Sub(res.checked) >= resultTTL {
				delete(c.cache, k)
			}
		}
	}
	c.cache[u] = probeResult{ok: ok, checked: now}
}

func (c *Checker) doCheck(ctx context.Context, target string) (bool, time.Duration, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, http.NoBody)
	if err != nil {
		return false, 0, err.Error()
	}
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return false, elapsed, err.Error()
	}
	defer func(Body io.ReadCloser) {
		if cerr := Body.Close(); cerr != nil {
			c.log.Debug("Error closing image probe body", logger.Error(cerr))
		}
	}(resp.Body)

	if resp.StatusCode >= 400 {
		return false, elapsed, resp.Status
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return false, elapsed, "not an image: " + ct
	}
	return true, elapsed, ""
}

func isHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
