package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/internal/httpclient"
)

// maxBodyBytes caps a single response; category pages are well under this.
const maxBodyBytes = 8 << 20

// FetcherConfig configures politeness and timeouts for all sources.
type FetcherConfig struct {
	Timeout           time.Duration // per request
	Accept            string
	RequestsPerMinute int // per host, 0 = unlimited
}

// Fetcher performs rate-limited GETs on behalf of every source.
type Fetcher struct {
	client *httpclient.Client
	cfg    FetcherConfig
	logger *zap.SugaredLogger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher creates a fetcher. The client carries the User-Agent and
// destination checks.
func NewFetcher(client *httpclient.Client, cfg FetcherConfig, logger *zap.SugaredLogger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Fetcher{
		client:   client,
		cfg:      cfg,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Get fetches rawURL and returns the body. The wait for the host's rate
// limiter counts against ctx but not against the request timeout.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", rawURL)
	}

	if lim := f.limiter(u.Host); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, errors.Wrapf(err, "rate limit wait for %s", u.Host)
		}
	}

	reqCtx := ctx
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if f.cfg.Accept != "" {
		req.Header.Set("Accept", f.cfg.Accept)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, errors.Mark(errors.Wrapf(err, "GET %s", rawURL), errors.ErrTimeout)
		}
		return nil, errors.Wrapf(err, "GET %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errors.WithStack(&HTTPError{URL: rawURL, StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "read body of %s", rawURL)
	}

	f.logger.Debugw("Fetched",
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return body, nil
}

// limiter returns the per-host limiter, creating it on first use.
func (f *Fetcher) limiter(host string) *rate.Limiter {
	if f.cfg.RequestsPerMinute <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(f.cfg.RequestsPerMinute)/60.0), 1)
		f.limiters[host] = lim
	}
	return lim
}
