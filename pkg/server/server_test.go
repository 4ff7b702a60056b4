package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/staleserve/staleserve/pkg/engine"
)

func newTestServer(t *testing.T, defs []engine.RouteDef) *Server {
	t.Helper()
	eng, err := engine.New(defs, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(eng.Flush)
	return New(eng, nil, nil)
}

func okRender(body string) engine.RenderFunc {
	return func(ctx context.Context, req *engine.RenderRequest) (*engine.RenderResult, error) {
		return &engine.RenderResult{
			Body:    []byte(body),
			Status:  200,
			Headers: map[string]string{"Content-Type": "text/html"},
		}, nil
	}
}

func TestServeArtifact(t *testing.T) {
	srv := newTestServer(t, []engine.RouteDef{{
		Pattern:    "/blog/[slug]",
		Render:     okRender("<h1>post</h1>"),
		Revalidate: time.Hour,
	}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/blog/hello")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Staleserve-Cache"); got != "miss" {
		t.Errorf("cache header = %q, want miss", got)
	}
	if got := resp.Header.Get("Content-Type"); got != "text/html" {
		t.Errorf("Content-Type = %q, want text/html", got)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "<h1>post</h1>" {
		t.Errorf("body = %q", body)
	}

	// Second request is a hit.
	resp2, err := http.Get(ts.URL + "/blog/hello")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if got := resp2.Header.Get("X-Staleserve-Cache"); got != "hit" {
		t.Errorf("cache header = %q, want hit", got)
	}
}

func TestUnresolvedPathIs404(t *testing.T) {
	srv := newTestServer(t, []engine.RouteDef{{
		Pattern: "/about",
		Render:  okRender("about"),
	}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGenerationFailureIs502(t *testing.T) {
	srv := newTestServer(t, []engine.RouteDef{{
		Pattern: "/broken",
		Render: func(ctx context.Context, req *engine.RenderRequest) (*engine.RenderResult, error) {
			return nil, errors.New("origin down")
		},
	}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/broken")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, []engine.RouteDef{{
		Pattern: "/about",
		Render:  okRender("about"),
	}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/about", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestRevalidateEndpoint(t *testing.T) {
	srv := newTestServer(t, []engine.RouteDef{{
		Pattern:    "/products/[id]",
		Render:     okRender("product"),
		Revalidate: time.Hour,
	}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	// Populate the cache.
	warm, err := http.Get(ts.URL + "/products/42")
	if err != nil {
		t.Fatal(err)
	}
	warm.Body.Close()

	payload, _ := json.Marshal(map[string]any{
		"route":  "/products/[id]",
		"params": map[string]string{"id": "42"},
	})
	resp, err := http.Post(ts.URL+"/__revalidate", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out revalidateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.Revalidated {
		t.Error("Revalidated = false, want true")
	}

	// The invalidated entry regenerates on the next request.
	resp2, err := http.Get(ts.URL + "/products/42")
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if got := resp2.Header.Get("X-Staleserve-Cache"); got != "miss" {
		t.Errorf("cache header = %q, want miss after invalidation", got)
	}
}

func TestRevalidateRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t, []engine.RouteDef{{
		Pattern: "/a",
		Render:  okRender("a"),
	}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"missing route", "{}", http.StatusBadRequest},
		{"unknown route", `{"route":"/nope"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/__revalidate", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, []engine.RouteDef{{
		Pattern: "/a",
		Render:  okRender("a"),
	}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Error("metrics body is empty")
	}
}

func TestHeadRequestOmitsBody(t *testing.T) {
	srv := newTestServer(t, []engine.RouteDef{{
		Pattern: "/about",
		Render:  okRender("about page"),
	}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Head(ts.URL + "/about")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 0 {
		t.Errorf("HEAD body = %q, want empty", body)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := (&Config{Address: ":9090"}).withDefaults()
	if cfg.Address != ":9090" {
		t.Errorf("Address = %q", cfg.Address)
	}
	if cfg.ShutdownTimeout != 15*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}

	var nilCfg *Config
	if got := nilCfg.withDefaults(); got.Address != ":8080" {
		t.Errorf("nil config Address = %q", got.Address)
	}
}
