package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	return string(body)
}

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/", "/"},
		{"/metrics", "/metrics"},
		{"/healthz", "/healthz"},
		{"/api/v1/images", "/api/v1/images"},
		{"/api/v1/images/extra", "/api/v1/images"},
		{"/api/v1/other", "/api/v1/*"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		if got := normalizeRoute(tt.path); got != tt.want {
			t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestObserveFetch(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveFetch(7, false)
	m.ObserveFetch(0, true)

	body := scrape(t, m)
	for _, want := range []string{
		`gallery_fetch_total{outcome="success"} 1`,
		`gallery_fetch_total{outcome="failure"} 1`,
		// a failed fetch must not reset the gauge
		`gallery_images_listed 7`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in scrape output:\n%s", want, body)
		}
	}
}

func TestMiddleware(t *testing.T) {
	m := New(prometheus.NewRegistry())

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/images", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status to pass through, got %d", rec.Code)
	}

	body := scrape(t, m)
	want := `gallery_http_requests_total{method="POST",route="/api/v1/images",status="201"} 1`
	if !strings.Contains(body, want) {
		t.Fatalf("expected %q in scrape output:\n%s", want, body)
	}
}

func TestObserveRateLimited(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRateLimited()
	m.ObserveRateLimited()

	if body := scrape(t, m); !strings.Contains(body, "gallery_ratelimit_dropped_total 2") {
		t.Fatalf("expected dropped counter in scrape output:\n%s", body)
	}
}
