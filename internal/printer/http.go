package printer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/smazurov/glownode/internal/version"
)

const (
	defaultTimeout = 5 * time.Second
	defaultRetries = 2
)

// hostClient is the HTTP plumbing shared by the host clients.
type hostClient struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
}

func newHostClient(cfg Config, logger *slog.Logger) hostClient {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = defaultRetries
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = retries
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = logger
	// Hand the final response back so non-2xx codes become StatusError.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return hostClient{
		baseURL: baseURL(cfg.Host),
		apiKey:  cfg.APIKey,
		http:    rc,
	}
}

func baseURL(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return host
}

// getJSON decodes the response of GET path into v. It returns ErrNoJob on
// 204 No Content.
func (c hostClient) getJSON(ctx context.Context, path string, v any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	// With the passthrough handler a final 5xx comes back as both a
	// response and a retry error; the response wins.
	resp, err := c.http.Do(req)
	if resp == nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode == http.StatusNoContent {
		return ErrNoJob
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
