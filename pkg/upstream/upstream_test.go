package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/staleserve/staleserve/pkg/engine"
)

func TestRenderFetchesOrigin(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/blog/hello" {
			t.Errorf("origin path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("ref"); got != "home" {
			t.Errorf("origin query ref = %q", got)
		}
		if got := r.Header.Get("X-Staleserve-Route"); got != "/blog/[slug]" {
			t.Errorf("route header = %q", got)
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<h1>hello</h1>"))
	}))
	defer origin.Close()

	c, err := New(origin.URL)
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Render(context.Background(), &engine.RenderRequest{
		Route: "/blog/[slug]",
		Path:  "/blog/hello",
		Query: url.Values{"ref": {"home"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Body) != "<h1>hello</h1>" {
		t.Errorf("Body = %q", res.Body)
	}
	if res.Status != 200 {
		t.Errorf("Status = %d", res.Status)
	}
	if res.Headers["Content-Type"] != "text/html" {
		t.Errorf("Content-Type = %q", res.Headers["Content-Type"])
	}
	if res.Revalidate != nil {
		t.Errorf("Revalidate = %v, want nil", res.Revalidate)
	}
}

func TestRenderRevalidateHeader(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Staleserve-Revalidate", "90s")
		w.Write([]byte("ok"))
	}))
	defer origin.Close()

	c, err := New(origin.URL)
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Render(context.Background(), &engine.RenderRequest{Path: "/x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Revalidate == nil || *res.Revalidate != 90*time.Second {
		t.Errorf("Revalidate = %v, want 90s", res.Revalidate)
	}
	if _, ok := res.Headers["X-Staleserve-Revalidate"]; ok {
		t.Error("revalidate header leaked into artifact headers")
	}
}

func TestRenderInvalidRevalidateHeaderIgnored(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Staleserve-Revalidate", "soon")
		w.Write([]byte("ok"))
	}))
	defer origin.Close()

	c, err := New(origin.URL)
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Render(context.Background(), &engine.RenderRequest{Path: "/x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Revalidate != nil {
		t.Errorf("Revalidate = %v, want nil for invalid header", res.Revalidate)
	}
}

func TestRenderOriginErrorFails(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer origin.Close()

	c, err := New(origin.URL)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Render(context.Background(), &engine.RenderRequest{Path: "/x"}); err == nil {
		t.Error("Render succeeded for 500 origin response")
	}
}

func TestRenderPreservesClientErrors(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no such post"))
	}))
	defer origin.Close()

	c, err := New(origin.URL)
	if err != nil {
		t.Fatal(err)
	}
	// 4xx responses are cacheable artifacts, not generation failures.
	res, err := c.Render(context.Background(), &engine.RenderRequest{Path: "/x"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != 404 {
		t.Errorf("Status = %d, want 404", res.Status)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New("ftp://origin"); err == nil {
		t.Error("New accepted non-http scheme")
	}
	if _, err := New("://bad"); err == nil {
		t.Error("New accepted unparsable url")
	}
}
