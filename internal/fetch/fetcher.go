package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"outagereminder/internal/config"
)

const (
	userAgent   = "Mozilla/5.0 (compatible; OutageReminder/1.0)"
	maxBodySize = 5 << 20
)

// Fetcher is what page scrapers need from the network.
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string) ([]byte, int, error)
}

// HTTPFetcher retries transient failures with jittered backoff and waits on a
// per-host token bucket before every attempt.
type HTTPFetcher struct {
	client      *http.Client
	retries     int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	limiter     *HostRateLimiter
	logger      *slog.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

// Options tunes an HTTPFetcher. Zero values pick defaults.
type Options struct {
	Timeout      time.Duration
	Retries      int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	RateLimitRPS float64
	RateBurst    int
	Transport    http.RoundTripper
}

// OptionsFrom maps the fetch section of the config.
func OptionsFrom(cfg config.FetchConfig) Options {
	return Options{
		Timeout:      cfg.Timeout,
		Retries:      cfg.Retries,
		RateLimitRPS: cfg.RateLimitRPS,
	}
}

func New(logger *slog.Logger, opts Options) *HTTPFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 12 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 2
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 250 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 3 * time.Second
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 1.5
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 2
	}
	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:          32,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       60 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: time.Second,
		}
	}
	return &HTTPFetcher{
		client:      &http.Client{Timeout: opts.Timeout, Transport: transport},
		retries:     opts.Retries,
		baseBackoff: opts.BaseBackoff,
		maxBackoff:  opts.MaxBackoff,
		limiter:     NewHostRateLimiter(opts.RateLimitRPS, opts.RateBurst),
		logger:      logger,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Get fetches rawURL. A non-2xx status is not an error; callers decide.
// 429 and 5xx responses are retried until the attempts run out.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string, headers map[string]string) ([]byte, int, error) {
	if f == nil {
		return nil, 0, errors.New("fetcher is nil")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid url: %w", err)
	}
	host := parsed.Hostname()

	var lastErr error
	for attempt := 0; attempt <= f.retries; attempt++ {
		if err := f.limiter.Wait(ctx, host); err != nil {
			return nil, 0, err
		}
		body, status, err := f.do(ctx, rawURL, headers)
		if err == nil {
			if retryableStatus(status) && attempt < f.retries {
				lastErr = fmt.Errorf("transient status %d", status)
				f.logger.Warn("fetch_retry_status", "host", host, "status", status, "attempt", attempt+1)
				if err := f.backoff(ctx, attempt); err != nil {
					return nil, status, err
				}
				continue
			}
			return body, status, nil
		}
		lastErr = err
		if ctx.Err() != nil || !transient(err) || attempt >= f.retries {
			return nil, status, err
		}
		f.logger.Warn("fetch_retry_error", "host", host, "attempt", attempt+1, "error", err)
		if err := f.backoff(ctx, attempt); err != nil {
			return nil, status, err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, 0, lastErr
}

func (f *HTTPFetcher) do(ctx context.Context, rawURL string, headers map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "uk-UA,uk;q=0.9,ru;q=0.7,en;q=0.5")
	for k, v := range headers {
		if k == "" || v == "" {
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (f *HTTPFetcher) backoff(ctx context.Context, attempt int) error {
	d := backoffDuration(f.baseBackoff, attempt, f.jitter)
	if d > f.maxBackoff {
		d = f.maxBackoff
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (f *HTTPFetcher) jitter(max int64) int64 {
	if max <= 0 {
		return 0
	}
	f.randMu.Lock()
	defer f.randMu.Unlock()
	return f.rand.Int63n(max + 1)
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || (status >= 500 && status <= 599)
}

func transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
