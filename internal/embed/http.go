package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	dmerrors "github.com/Aman-CERP/docsmcp/internal/errors"
)

// httpBackend is the transport shared by the remote providers: a pooled
// client, a per-request timeout and retry of transient failures.
type httpBackend struct {
	provider  string
	client    *http.Client
	transport *http.Transport
	timeout   time.Duration
	retry     dmerrors.RetryConfig
	headers   map[string]string

	mu     sync.RWMutex
	closed bool
}

func newHTTPBackend(provider string, cfg Config, headers map[string]string) *httpBackend {
	// IdleConnTimeout is short because CLI indexing runs are short-lived.
	transport := &http.Transport{
		MaxIdleConns:        defaultPoolSize,
		MaxIdleConnsPerHost: defaultPoolSize,
		MaxConnsPerHost:     cfg.Concurrency * 2,
		IdleConnTimeout:     10 * time.Second,
	}

	// No http.Client.Timeout: each request gets its own context deadline.
	return &httpBackend{
		provider:  provider,
		client:    &http.Client{Transport: transport},
		transport: transport,
		timeout:   cfg.Timeout,
		retry:     cfg.retryConfig(),
		headers:   headers,
	}
}

// postJSON sends in as JSON and decodes the 2xx response into out,
// retrying transient failures with backoff.
func (b *httpBackend) postJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return dmerrors.InternalError("failed to marshal embedding request", err)
	}

	return dmerrors.Retry(ctx, b.retry, func() error {
		return b.doJSON(ctx, http.MethodPost, url, body, out)
	})
}

// get performs a single GET under the request timeout and reports the status.
func (b *httpBackend) get(ctx context.Context, url string, out any) error {
	return b.doJSON(ctx, http.MethodGet, url, nil, out)
}

// doJSON performs one attempt. Failures are classified so that Retry only
// repeats the ones that can succeed later.
func (b *httpBackend) doJSON(ctx context.Context, method, url string, body []byte, out any) error {
	if b.isClosed() {
		return dmerrors.ProviderUnavailable(b.provider, "embedder is closed", nil).WithRetryable(false)
	}

	reqCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
	if err != nil {
		return dmerrors.ProviderUnavailable(b.provider, "invalid endpoint "+url, err).WithRetryable(false)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		// Caller cancellation is not a provider fault.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return dmerrors.ProviderUnavailable(b.provider,
				fmt.Sprintf("request timed out after %s", b.timeout), err).
				WithSuggestion("Raise embedding.timeout in the config or check the provider load")
		}
		return dmerrors.ProviderUnavailable(b.provider, "request failed: "+err.Error(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	slog.Debug("provider_request",
		slog.String("provider", b.provider),
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyPreview))
		msg := fmt.Sprintf("%s %s returned status %d: %s",
			method, url, resp.StatusCode, strings.TrimSpace(string(preview)))
		perr := dmerrors.ProviderUnavailable(b.provider, msg, nil).
			WithDetail("status", fmt.Sprint(resp.StatusCode))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return perr
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			perr = perr.WithSuggestion("Check the API key for this knowledge base")
		}
		return perr.WithRetryable(false)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return dmerrors.ProviderUnavailable(b.provider, "malformed response", err)
	}
	return nil
}

func (b *httpBackend) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// close releases idle connections; later requests fail without dialing.
func (b *httpBackend) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.transport.CloseIdleConnections()
}
