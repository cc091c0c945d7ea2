package imgfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/grvsrs/onebus/pkg/config"
)

func testFetcher(api, urlPath string) *fetcher {
	return &fetcher{
		api:     api,
		urlPath: urlPath,
		client:  &http.Client{Timeout: time.Second},
	}
}

// TestFetchExtractsURL verifies the configured JSON path is applied to the
// API response, including nested paths.
func TestFetchExtractsURL(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		urlPath string
		want    string
	}{
		{
			name:    "flat field",
			body:    `{"url":"https://img.example/1.png"}`,
			urlPath: "url",
			want:    "https://img.example/1.png",
		},
		{
			name:    "nested array path",
			body:    `{"data":[{"urls":{"original":"https://img.example/2.png"}}]}`,
			urlPath: "data.0.urls.original",
			want:    "https://img.example/2.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := testFetcher(srv.URL, tt.urlPath).fetch(context.Background())
			if err != nil {
				t.Fatalf("fetch: %v", err)
			}
			if got != tt.want {
				t.Errorf("url = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestFetchFailures verifies API errors and missing fields surface as
// errors instead of empty image segments.
func TestFetchFailures(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		if _, err := testFetcher(srv.URL, "url").fetch(context.Background()); err == nil {
			t.Error("non-200 response produced no error")
		}
	})

	t.Run("missing field", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":"empty pool"}`))
		}))
		defer srv.Close()

		if _, err := testFetcher(srv.URL, "url").fetch(context.Background()); err == nil {
			t.Error("response without the url field produced no error")
		}
	})

	t.Run("unreachable api", func(t *testing.T) {
		if _, err := testFetcher("http://127.0.0.1:1/none", "url").fetch(context.Background()); err == nil {
			t.Error("unreachable api produced no error")
		}
	})
}

// TestMatcherDefaults verifies an empty config block still yields a
// usable matcher.
func TestMatcherDefaults(t *testing.T) {
	m := Matcher(config.ImageConfig{API: "https://img.example/api"})
	if m.Name != "imgfetch" {
		t.Errorf("matcher name = %q", m.Name)
	}
}
