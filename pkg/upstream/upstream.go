// Package upstream renders routes by proxying to an origin server.
//
// Each generation issues a GET to the origin for the requested path and
// captures the response as the artifact. The origin can override the
// route's staleness interval per response with an
// X-Staleserve-Revalidate header (a Go duration, e.g. "90s").
package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/staleserve/staleserve/pkg/engine"
)

// revalidateHeader lets the origin override the staleness interval.
const revalidateHeader = "X-Staleserve-Revalidate"

// hop-by-hop and engine-managed headers never copied into artifacts.
var skipHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
	"Content-Length":    true,
	"Date":              true,
}

// Client renders routes against an HTTP origin.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// New creates a Client for the given origin base URL.
func New(baseURL string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("upstream: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("upstream: base url must be http or https, got %q", baseURL)
	}
	return &Client{
		base:   base,
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: slog.Default().With("component", "upstream"),
	}, nil
}

// Render fetches the artifact for one request from the origin.
// It implements engine.RenderFunc.
func (c *Client) Render(ctx context.Context, req *engine.RenderRequest) (*engine.RenderResult, error) {
	target := *c.base
	target.Path = strings.TrimSuffix(target.Path, "/") + req.Path
	target.RawQuery = req.Query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	httpReq.Header.Set("X-Staleserve-Route", req.Route)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream: fetch %s: %w", req.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("upstream: origin returned %d for %s", resp.StatusCode, req.Path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upstream: read body for %s: %w", req.Path, err)
	}

	headers := make(map[string]string)
	for k := range resp.Header {
		if skipHeaders[k] || k == revalidateHeader {
			continue
		}
		headers[k] = resp.Header.Get(k)
	}

	result := &engine.RenderResult{
		Body:    body,
		Status:  resp.StatusCode,
		Headers: headers,
	}

	if raw := resp.Header.Get(revalidateHeader); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			c.logger.Warn("ignoring invalid revalidate header",
				"path", req.Path, "value", raw)
		} else {
			result.Revalidate = &d
		}
	}

	return result, nil
}
