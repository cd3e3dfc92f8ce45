// Package fetch retrieves raw pages from the draw-data source, pacing every
// request and retrying rate-limit and transient failures with bounded backoff.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"github.com/lottosage/lottosage/internal/pkg/config"
)

var (
	// ErrRateLimited is returned after the retry budget is spent on
	// "too many requests" responses.
	ErrRateLimited = errors.New("source rate limited")
	// ErrUnavailable is returned after the retry budget is spent on
	// transient network failures.
	ErrUnavailable = errors.New("source unavailable")
)

// Client issues paced, retried GET requests. Backoff state is local to each
// Get call; nothing persists between calls.
type Client struct {
	httpClient   *http.Client
	userAgent    string
	requestDelay time.Duration
	jitter       time.Duration
	retryDelay   time.Duration
	maxRetries   int

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(time.Duration)
	rng   *rand.Rand
}

// NewClient builds a fetch client from the fetch config section.
func NewClient(cfg config.FetchConfig) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		userAgent:    cfg.UserAgent,
		requestDelay: time.Duration(cfg.RequestDelayMS) * time.Millisecond,
		jitter:       time.Duration(cfg.JitterMS) * time.Millisecond,
		retryDelay:   time.Duration(cfg.RetryDelayMS) * time.Millisecond,
		maxRetries:   cfg.MaxRetries,
		sleep:        time.Sleep,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Get fetches the URL, returning UTF-8 page content. Every attempt,
// including the first, is preceded by the politeness delay. Rate-limit
// responses back off exponentially, other failures linearly, up to
// MaxRetries attempts; exhaustion yields a typed error, never a panic.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		c.pause(ctx)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, retryable, err := c.do(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err

		if attempt == c.maxRetries-1 {
			break
		}
		if errors.Is(err, ErrRateLimited) {
			// base * 2^attempt
			c.sleep(c.retryDelay << uint(attempt))
		} else {
			// base * attempt, counting attempts from 1
			c.sleep(c.retryDelay * time.Duration(attempt+1))
		}
		slog.Warn("fetch retrying", "url", rawURL, "attempt", attempt+1, "max_retries", c.maxRetries, "error", err)
	}
	return nil, lastErr
}

// do performs one attempt. The second return value reports whether the
// failure is worth retrying.
func (c *Client) do(ctx context.Context, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusConflict:
		// The source answers 409 when it considers the client too chatty.
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, true, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	return decodeBody(body, resp.Header.Get("Content-Type")), true, nil
}

// pause applies the politeness delay (base + uniform jitter) before an
// attempt, bailing early if the context ends first.
func (c *Client) pause(ctx context.Context) {
	d := c.requestDelay
	if c.jitter > 0 {
		d += time.Duration(c.rng.Int63n(int64(c.jitter)))
	}
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Cache-Control", "max-age=0")
}

// decodeBody normalizes page bytes to UTF-8. The source serves GBK but
// labels responses inconsistently: explicit gb* charsets, the ISO-8859-1
// default, or no charset at all. Unlabeled content that already scans as
// UTF-8 is left alone; everything else goes through the GBK decoder.
func decodeBody(body []byte, contentType string) []byte {
	charset := ""
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			charset = strings.ToLower(params["charset"])
		}
	}
	switch charset {
	case "utf-8", "utf8":
		return body
	case "gbk", "gb2312", "gb18030", "iso-8859-1", "latin1":
		// fall through to decode
	default:
		if utf8.Valid(body) {
			return body
		}
	}
	decoded, _, err := transform.Bytes(simplifiedchinese.GBK.NewDecoder(), body)
	if err != nil {
		return body
	}
	return decoded
}
