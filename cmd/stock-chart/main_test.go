package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dreschagin/image-gallery/internal/application/usecase"
	"github.com/dreschagin/image-gallery/pkg/config"
)

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	err := writeResult(&buf, &usecase.PublishStockChartResult{
		Key:     "images/stock_prices_2024-03-05.png",
		URL:     "https://my-bucket.s3.us-east-1.amazonaws.com/images/stock_prices_2024-03-05.png",
		Plotted: []string{"JPM"},
	})
	if err != nil {
		t.Fatalf("writeResult() error = %v", err)
	}

	want := `{"key":"images/stock_prices_2024-03-05.png","url":"https://my-bucket.s3.us-east-1.amazonaws.com/images/stock_prices_2024-03-05.png","plotted":["JPM"],"skipped":[]}`
	if strings.TrimSpace(buf.String()) != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--symbols", "AAPL,MSFT", "--pause", "1s"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	flags := &chartFlags{Symbols: []string{"AAPL", "MSFT"}, Pause: time.Second}
	cfg := config.StockChartConfig{Symbols: []string{"JPM"}, RequestPause: 12 * time.Second, LookbackDays: 365}
	applyFlagOverrides(cmd, flags, &cfg)

	if strings.Join(cfg.Symbols, ",") != "AAPL,MSFT" || cfg.RequestPause != time.Second {
		t.Fatalf("flags must override config: %+v", cfg)
	}
	if cfg.LookbackDays != 365 {
		t.Fatalf("unset flags must keep config values: %+v", cfg)
	}
}

func TestRootCmd_RequiresAPIKey(t *testing.T) {
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("S3_BUCKET_NAME", "my-bucket")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("ALPHA_VANTAGE_API_KEY", "")

	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "ALPHA_VANTAGE_API_KEY") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestRootCmd_RequiresConfig(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("S3_BUCKET_NAME", "")

	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "failed to load config") {
		t.Fatalf("expected config error, got %v", err)
	}
}
