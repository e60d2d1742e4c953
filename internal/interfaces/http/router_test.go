package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/image-gallery/internal/application/port"
	"github.com/dreschagin/image-gallery/internal/application/usecase"
	"github.com/dreschagin/image-gallery/internal/domain/valueobject"
	"github.com/dreschagin/image-gallery/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/image-gallery/internal/interfaces/http/handler"
	"github.com/dreschagin/image-gallery/internal/interfaces/http/middleware"
	"github.com/dreschagin/image-gallery/pkg/logger"
)

const (
	testToken        = "test-token"
	minimalPngBase64 = "iVBORw0KGgo=" // PNG signature only
)

type memoryBucket struct {
	mu      sync.RWMutex
	objects map[string]port.StoredObject
	listErr error
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{objects: make(map[string]port.StoredObject)}
}

func (b *memoryBucket) ListObjects(_ context.Context) ([]port.StoredObject, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	result := make([]port.StoredObject, 0, len(b.objects))
	for _, object := range b.objects {
		result = append(result, object)
	}
	return result, nil
}

func (b *memoryBucket) PutObject(_ context.Context, key, _ string, _ []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = port.StoredObject{Key: key, LastModified: time.Now().UTC()}
	return nil
}

func newTestServer(t *testing.T, auth middleware.AuthConfig, rps float64, burst int) (*httptest.Server, *memoryBucket) {
	t.Helper()

	log := logger.New("error")
	bucket := newMemoryBucket()
	location, err := valueobject.NewBucketLocation("my-bucket", "us-east-1")
	if err != nil {
		t.Fatalf("NewBucketLocation() error = %v", err)
	}

	promMetrics := metrics.New(prometheus.NewRegistry())
	fetchUC := usecase.NewFetchImagesUseCase(bucket, location, log, usecase.WithFetchRecorder(promMetrics))
	uploadUC := usecase.NewUploadImageUseCase(bucket, location, nil, usecase.UploadImageConfig{}, log)

	limiter := middleware.NewIPRateLimiter(rps, burst, false)
	t.Cleanup(limiter.Stop)

	router := NewRouter(
		handler.NewGalleryHandler(fetchUC, location.Bucket(), log),
		handler.NewImagesAPIHandler(fetchUC, uploadUC, auth, 1024*1024, 1024*1024, log),
		auth,
		limiter,
		promMetrics,
		log,
	)

	server := httptest.NewServer(router.Setup())
	t.Cleanup(server.Close)
	return server, bucket
}

func doRequest(t *testing.T, client *http.Client, method, url string, body []byte, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestE2EHealthEndpoints(t *testing.T) {
	server, _ := newTestServer(t, middleware.AuthConfig{Enabled: true, BearerToken: testToken}, 100, 100)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, resp.StatusCode)
		}
		if resp.Header.Get(middleware.RequestIDHeader) == "" {
			t.Fatalf("expected request id header for %s", path)
		}
	}
}

func TestE2EUploadThenList(t *testing.T) {
	server, _ := newTestServer(t, middleware.AuthConfig{Enabled: true, BearerToken: testToken}, 100, 100)
	client := server.Client()
	authHeader := map[string]string{"Authorization": "Bearer " + testToken}

	unauthorized := doRequest(t, client, http.MethodGet, server.URL+"/api/v1/images", nil, nil)
	unauthorized.Body.Close()
	if unauthorized.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", unauthorized.StatusCode)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"name":         "stock_prices",
		"content_type": "image/png",
		"data_base64":  minimalPngBase64,
		"captured_at":  "2024-03-05T10:00:00Z",
	})
	uploadResp := doRequest(t, client, http.MethodPost, server.URL+"/api/v1/images", body, authHeader)
	uploadResp.Body.Close()
	if uploadResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on upload, got %d", uploadResp.StatusCode)
	}

	listResp := doRequest(t, client, http.MethodGet, server.URL+"/api/v1/images", nil, authHeader)
	defer listResp.Body.Close()
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on list, got %d", listResp.StatusCode)
	}

	var payload struct {
		Items []struct {
			URL string `json:"url"`
			Key string `json:"key"`
		} `json:"items"`
		Count int `json:"count"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if payload.Count != 1 || payload.Items[0].Key != "images/stock_prices_2024-03-05.png" {
		t.Fatalf("unexpected list payload: %+v", payload)
	}
	if payload.Items[0].URL != "https://my-bucket.s3.us-east-1.amazonaws.com/images/stock_prices_2024-03-05.png" {
		t.Fatalf("unexpected url: %s", payload.Items[0].URL)
	}

	pageResp := doRequest(t, client, http.MethodGet, server.URL+"/", nil, authHeader)
	page, _ := io.ReadAll(pageResp.Body)
	pageResp.Body.Close()
	if pageResp.StatusCode != http.StatusOK || !strings.Contains(string(page), "stock_prices_2024-03-05.png") {
		t.Fatalf("expected gallery page with uploaded image, got %d", pageResp.StatusCode)
	}

	metricsResp := doRequest(t, client, http.MethodGet, server.URL+"/metrics", nil, nil)
	exported, _ := io.ReadAll(metricsResp.Body)
	metricsResp.Body.Close()
	if !strings.Contains(string(exported), `gallery_fetch_total{outcome="success"} 2`) {
		t.Fatalf("expected fetch counter in metrics:\n%s", exported)
	}
}

func TestE2EListingFailureStillOK(t *testing.T) {
	server, bucket := newTestServer(t, middleware.AuthConfig{}, 100, 100)
	bucket.listErr = errors.New("NoSuchBucket")

	resp := doRequest(t, server.Client(), http.MethodGet, server.URL+"/api/v1/images", nil, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if strings.TrimSpace(string(raw)) != `{"items":[],"count":0}` {
		t.Fatalf("unexpected body: %s", raw)
	}
}

func TestE2ERateLimit(t *testing.T) {
	server, _ := newTestServer(t, middleware.AuthConfig{}, 0.001, 1)
	client := server.Client()

	first := doRequest(t, client, http.MethodGet, server.URL+"/api/v1/images", nil, nil)
	first.Body.Close()
	second := doRequest(t, client, http.MethodGet, server.URL+"/api/v1/images", nil, nil)
	second.Body.Close()

	if first.StatusCode != http.StatusOK || second.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("unexpected statuses: %d then %d", first.StatusCode, second.StatusCode)
	}
}

func TestE2EGzipListing(t *testing.T) {
	server, bucket := newTestServer(t, middleware.AuthConfig{}, 100, 100)
	_ = bucket.PutObject(context.Background(), "images/a.png", "image/png", nil)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/v1/images", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	transport := &http.Transport{DisableCompression: true}
	resp, err := (&http.Client{Transport: transport}).Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoded response")
	}
}

func TestE2EMinimalPngIsValidBase64(t *testing.T) {
	decoded, err := base64.StdEncoding.DecodeString(minimalPngBase64)
	if err != nil || len(decoded) != 8 {
		t.Fatalf("fixture must decode to the 8-byte png signature")
	}
}
