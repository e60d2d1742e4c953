package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	S3         S3Config
	Upload     UploadConfig
	Security   SecurityConfig
	RateLimit  RateLimitConfig
	NATS       NATSConfig
	CloudWatch CloudWatchConfig
	StockChart StockChartConfig
	LogLevel   string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type UploadConfig struct {
	KeyPrefix       string
	DefaultName     string
	MaxImageBytes   int
	MaxPayloadBytes int64
}

type SecurityConfig struct {
	AuthEnabled bool
	AuthToken   string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
	// TrustProxy включает определение клиента по X-Forwarded-For / X-Real-IP.
	TrustProxy bool
}

type NATSConfig struct {
	Enabled bool
	URL     string
}

type CloudWatchConfig struct {
	MetricsEnabled       bool
	LogsEnabled          bool
	Region               string
	Endpoint             string
	MetricsNamespace     string
	MetricsFlushInterval time.Duration
	LogGroupName         string
	LogStreamName        string
	LogsFlushInterval    time.Duration
}

// StockChartConfig настраивает генерацию графика котировок для cmd/stock-chart.
type StockChartConfig struct {
	APIKey       string
	BaseURL      string
	Symbols      []string
	RequestPause time.Duration
	LookbackDays int
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	region := strings.TrimSpace(os.Getenv("AWS_REGION"))
	if region == "" {
		return nil, fmt.Errorf("AWS_REGION is required")
	}
	bucket := strings.TrimSpace(os.Getenv("S3_BUCKET_NAME"))
	if bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET_NAME is required")
	}

	accessKeyID := strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	secretAccessKey := strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	if (accessKeyID == "") != (secretAccessKey == "") {
		return nil, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	}

	maxImageMB, err := strconv.Atoi(getEnv("UPLOAD_MAX_MB", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_MAX_MB: %w", err)
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	metricsFlush, err := time.ParseDuration(getEnv("CLOUDWATCH_METRICS_FLUSH_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_METRICS_FLUSH_INTERVAL: %w", err)
	}

	logsFlush, err := time.ParseDuration(getEnv("CLOUDWATCH_LOGS_FLUSH_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_LOGS_FLUSH_INTERVAL: %w", err)
	}

	requestPause, err := time.ParseDuration(getEnv("STOCK_REQUEST_PAUSE", "12s"))
	if err != nil {
		return nil, fmt.Errorf("invalid STOCK_REQUEST_PAUSE: %w", err)
	}

	lookbackDays, err := strconv.Atoi(getEnv("STOCK_LOOKBACK_DAYS", "365"))
	if err != nil {
		return nil, fmt.Errorf("invalid STOCK_LOOKBACK_DAYS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		S3: S3Config{
			Bucket:          bucket,
			Region:          region,
			Endpoint:        strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
		},
		Upload: UploadConfig{
			KeyPrefix:       getEnv("UPLOAD_KEY_PREFIX", "images"),
			DefaultName:     getEnv("UPLOAD_DEFAULT_NAME", "stock_prices"),
			MaxImageBytes:   maxImageMB * 1024 * 1024,
			MaxPayloadBytes: int64(maxImageMB) * 2 * 1024 * 1024,
		},
		Security: SecurityConfig{
			AuthEnabled: getEnvBool("AUTH_ENABLED", false),
			AuthToken:   getEnv("AUTH_BEARER_TOKEN", ""),
		},
		RateLimit: RateLimitConfig{
			RPS:        rps,
			Burst:      burst,
			TrustProxy: getEnvBool("RATE_LIMIT_TRUST_PROXY", false),
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		CloudWatch: CloudWatchConfig{
			MetricsEnabled:       getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			LogsEnabled:          getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			Region:               getEnv("CLOUDWATCH_REGION", region),
			Endpoint:             strings.TrimSpace(os.Getenv("CLOUDWATCH_ENDPOINT")),
			MetricsNamespace:     getEnv("CLOUDWATCH_NAMESPACE", "ImageGallery"),
			MetricsFlushInterval: metricsFlush,
			LogGroupName:         getEnv("CLOUDWATCH_LOG_GROUP", "/image-gallery/app"),
			LogStreamName:        getEnv("CLOUDWATCH_LOG_STREAM", hostnameOr("image-gallery")),
			LogsFlushInterval:    logsFlush,
		},
		StockChart: StockChartConfig{
			APIKey:       strings.TrimSpace(os.Getenv("ALPHA_VANTAGE_API_KEY")),
			BaseURL:      getEnv("ALPHA_VANTAGE_URL", "https://www.alphavantage.co/query"),
			Symbols:      splitList(getEnv("STOCK_SYMBOLS", "JPM,BAC,C,WFC,GS,MS,BLK,BX")),
			RequestPause: requestPause,
			LookbackDays: lookbackDays,
		},
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if cfg.Security.AuthEnabled && cfg.Security.AuthToken == "" {
		return nil, fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.ToUpper(strings.TrimSpace(part)); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func hostnameOr(fallback string) string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return fallback
	}
	return name
}
