package edgar

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prachitbhike/insurintel-sub000/internal/config"
	"github.com/prachitbhike/insurintel-sub000/internal/resilience"
)

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxJitter = 500 * time.Millisecond
	networkBackoff = 5 * time.Second
)

// Client fetches company facts from the EDGAR API. All requests pass through
// a shared token bucket (capacity = burst, refilled at rate_per_sec), and a
// token is acquired before every attempt, retries included. The limiter is
// safe for concurrent callers.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	userAgent  string
	maxRetries int
}

// NewClient creates a Client from configuration.
func NewClient(cfg config.EDGARConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 8
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = perSec
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSec), burst),
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		maxRetries: maxRetries,
	}
}

// CompanyFacts fetches and parses the company facts document for one CIK.
// The CIK is zero-padded to the 10 digits the API expects.
func (c *Client) CompanyFacts(ctx context.Context, cik string) (*CompanyFacts, error) {
	url := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%010s.json", c.baseURL, cik)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: fetch company facts for CIK %s", cik)
	}
	defer body.Body.Close() //nolint:errcheck

	// A body that fails to decode is a malformed document: terminal for this
	// company, never retried.
	return ParseCompanyFacts(body.Body)
}

// get performs a GET with rate limiting and retry. Transient failures (429,
// 5xx, network errors) are retried up to the retry budget; each retry
// re-acquires a token first. Other statuses fail immediately.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	log := zap.L().With(zap.String("component", "edgar.client"), zap.String("url", url))

	var lastErr error
	for attempt := range c.maxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, eris.Wrap(err, "request")
			}
			// Network-level failure: longer fixed backoff.
			log.Warn("network error, backing off",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			if !c.sleep(ctx, networkBackoff) {
				return nil, eris.Wrap(lastErr, "request canceled during backoff")
			}
			continue
		}

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			lastErr = resilience.NewTransientError(
				eris.Errorf("http %d from %s", resp.StatusCode, url), resp.StatusCode)
			log.Warn("transient status, retrying",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			if !c.sleep(ctx, transientBackoff(attempt)) {
				return nil, eris.Wrap(lastErr, "request canceled during backoff")
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, eris.Errorf("unexpected status %d from %s", resp.StatusCode, url)
		}

		return resp, nil
	}

	return nil, eris.Wrap(lastErr, "retries exhausted")
}

// transientBackoff computes 2^attempt * base plus random jitter up to 500ms.
func transientBackoff(attempt int) time.Duration {
	d := time.Duration(float64(retryBaseDelay) * math.Pow(2, float64(attempt)))
	return d + time.Duration(rand.Int64N(int64(retryMaxJitter)))
}

// sleep waits for d or until the context is canceled. Returns false on cancel.
func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
