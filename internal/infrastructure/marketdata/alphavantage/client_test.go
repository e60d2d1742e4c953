package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const dailyFixture = `{
	"Meta Data": {"2. Symbol": "JPM"},
	"Time Series (Daily)": {
		"2024-03-05": {"1. open": "190.0", "2. high": "192.0", "3. low": "189.0", "4. close": "191.25", "5. volume": "100"},
		"2024-03-01": {"1. open": "185.0", "2. high": "187.0", "3. low": "184.0", "4. close": "186.50", "5. volume": "100"},
		"2024-03-04": {"1. open": "188.0", "2. high": "190.0", "3. low": "187.0", "4. close": "189.00", "5. volume": "100"}
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return newClient(Config{BaseURL: server.URL + "/query", APIKey: "demo"}, server.Client())
}

func TestClient_DailyCloses(t *testing.T) {
	var query map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for key := range r.URL.Query() {
			query[key] = r.URL.Query().Get(key)
		}
		_, _ = w.Write([]byte(dailyFixture))
	})

	points, err := client.DailyCloses(context.Background(), " jpm ")
	if err != nil {
		t.Fatalf("DailyCloses() error = %v", err)
	}

	if query["function"] != "TIME_SERIES_DAILY" || query["symbol"] != "JPM" || query["outputsize"] != "full" || query["apikey"] != "demo" {
		t.Fatalf("unexpected query: %v", query)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if !points[0].Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) || points[0].Close != 186.50 {
		t.Fatalf("points must be oldest first: %+v", points[0])
	}
	if points[2].Close != 191.25 {
		t.Fatalf("unexpected last close: %v", points[2].Close)
	}
}

func TestClient_DailyClosesErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		throttled bool
	}{
		{name: "http error", status: http.StatusInternalServerError, body: "boom", wantErr: "status=500"},
		{name: "api error", status: http.StatusOK, body: `{"Error Message": "Invalid API call"}`, wantErr: "Invalid API call"},
		{name: "throttled note", status: http.StatusOK, body: `{"Note": "5 calls per minute"}`, throttled: true},
		{name: "throttled information", status: http.StatusOK, body: `{"Information": "daily limit"}`, throttled: true},
		{name: "malformed json", status: http.StatusOK, body: `{`, wantErr: "failed to decode"},
		{
			name:    "bad close",
			status:  http.StatusOK,
			body:    `{"Time Series (Daily)": {"2024-03-05": {"4. close": "n/a"}}}`,
			wantErr: "invalid close",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.DailyCloses(context.Background(), "JPM")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.throttled && !errors.Is(err, ErrThrottled) {
				t.Fatalf("expected ErrThrottled, got %v", err)
			}
			if tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestClient_EmptySymbol(t *testing.T) {
	client := newClient(Config{APIKey: "demo"}, http.DefaultClient)
	if _, err := client.DailyCloses(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty symbol")
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error without api key")
	}

	client, err := NewClient(Config{APIKey: "demo"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client.baseURL != DefaultBaseURL {
		t.Fatalf("unexpected default base url: %s", client.baseURL)
	}
}
