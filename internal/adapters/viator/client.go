// internal/adapters/viator/client.go
package viator

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"trip_activities/internal/adapters/observability"
	"trip_activities/internal/domain"
)

const maxPageCount = 50 // provider caps page size at 50

// Client talks to the Viator partner API with client-side rate limiting,
// bounded retries and exponential backoff.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: 30 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- Error classification ----

// ErrRateLimited marks a 429 that survived the retry budget.
var ErrRateLimited = errors.New("viator: rate limited")

// TransientError covers network failures, 5xx and exhausted rate limits.
// Retried by the client; surfaced only after the budget runs out.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("viator: transient failure (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("viator: transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError covers non-retryable 4xx responses. Never retried.
type PermanentError struct {
	Status int
	Body   string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("viator: status %d: %s", e.Status, e.Body)
}

// ---- Public API ----

// SearchProducts calls POST /partner/products/search with the mapped
// filter/sort/pagination body.
func (c *Client) SearchProducts(ctx context.Context, q domain.ProductQuery) (map[string]any, error) {
	filtering := map[string]any{"destination": q.DestinationID}
	if q.StartDate != "" {
		filtering["startDate"] = q.StartDate
	}
	if q.EndDate != "" {
		filtering["endDate"] = q.EndDate
	}
	if len(q.Tags) > 0 {
		filtering["tags"] = q.Tags
	}
	if q.LowestPrice != nil {
		filtering["lowestPrice"] = *q.LowestPrice
	}
	if q.HighestPrice != nil {
		filtering["highestPrice"] = *q.HighestPrice
	}
	if q.RatingFrom != nil {
		filtering["rating"] = map[string]any{"from": *q.RatingFrom}
	}
	if len(q.Flags) > 0 {
		filtering["flags"] = q.Flags
	}

	body := map[string]any{
		"filtering": filtering,
		"currency":  q.Currency,
	}
	if q.Sort != "" && q.Sort != "DEFAULT" {
		body["sorting"] = map[string]any{"sort": q.Sort, "order": q.Order}
	}
	count := q.Count
	if count <= 0 || count > maxPageCount {
		count = maxPageCount
	}
	start := q.Start
	if start < 1 {
		start = 1
	}
	body["pagination"] = map[string]any{"start": start, "count": count}

	var out map[string]any
	err := c.do(ctx, http.MethodPost, "/partner/products/search", body, q.Language, &out)
	return out, err
}

// ListTags fetches the complete tag taxonomy in one pass.
func (c *Client) ListTags(ctx context.Context, lang string) ([]map[string]any, error) {
	var out struct {
		Tags []map[string]any `json:"tags"`
	}
	if err := c.do(ctx, http.MethodGet, "/products/tags", nil, lang, &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

// ListDestinations fetches the provider's full destination list.
func (c *Client) ListDestinations(ctx context.Context) ([]map[string]any, error) {
	var out struct {
		Destinations []map[string]any `json:"destinations"`
	}
	if err := c.do(ctx, http.MethodGet, "/destinations", nil, "en", &out); err != nil {
		return nil, err
	}
	return out.Destinations, nil
}

// ---- Internals ----

// do performs one logical call with client-side rate limiting and up to 4
// attempts. 429 and 5xx are retried, honoring Retry-After when provided;
// other 4xx fail immediately.
func (c *Client) do(ctx context.Context, method, path string, body any, lang string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return &TransientError{Err: err}
	}

	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		var rdr io.Reader
		if payload != nil {
			rdr = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json;version=2.0")
		req.Header.Set("Accept-Language", lang)
		req.Header.Set("exp-api-key", c.key)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("viator", path, 0, time.Since(start))
			if ctx.Err() != nil {
				return &TransientError{Err: ctx.Err()}
			}
			lastErr = &TransientError{Err: err}
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return &TransientError{Err: ctx.Err()}
			}
			return lastErr
		}
		observability.ObserveExternal("viator", path, resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return &TransientError{Status: resp.StatusCode, Err: err}
			}
			return nil

		case resp.StatusCode == http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case resp.StatusCode == http.StatusTooManyRequests:
			// Server-specified wait overrides the computed backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = &TransientError{Status: resp.StatusCode, Err: ErrRateLimited}
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return &TransientError{Err: ctx.Err()}
			}
			return lastErr

		case resp.StatusCode >= 500:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = &TransientError{Status: resp.StatusCode, Err: fmt.Errorf("remote %d", resp.StatusCode)}
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return &TransientError{Err: ctx.Err()}
			}
			return lastErr

		default:
			// non-retryable 4xx: read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return &PermanentError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	// seconds form
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms, 800ms...),
// with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0                  // 0..1
	j := time.Duration(0.5 * f * float64(base)) // up to +50%
	return base + j
}
