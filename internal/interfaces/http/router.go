package http

import (
	"net/http"

	"github.com/dreschagin/image-gallery/internal/interfaces/http/handler"
	"github.com/dreschagin/image-gallery/internal/interfaces/http/middleware"
	"github.com/dreschagin/image-gallery/pkg/logger"
)

// HTTPMetrics is the subset of the Prometheus collectors used by the router.
type HTTPMetrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
	ObserveRateLimited()
}

// Router настраивает маршруты приложения
type Router struct {
	mux              *http.ServeMux
	galleryHandler   *handler.GalleryHandler
	imagesAPIHandler *handler.ImagesAPIHandler
	auth             middleware.AuthConfig
	rateLimiter      *middleware.IPRateLimiter
	metrics          HTTPMetrics
	logger           *logger.Logger
}

// NewRouter создает новый router. rateLimiter и metrics могут быть nil.
func NewRouter(
	galleryHandler *handler.GalleryHandler,
	imagesAPIHandler *handler.ImagesAPIHandler,
	auth middleware.AuthConfig,
	rateLimiter *middleware.IPRateLimiter,
	metrics HTTPMetrics,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		galleryHandler:   galleryHandler,
		imagesAPIHandler: imagesAPIHandler,
		auth:             auth,
		rateLimiter:      rateLimiter,
		metrics:          metrics,
		logger:           logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Health endpoints are unauthenticated.
	rt.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if rt.metrics != nil {
		rt.mux.Handle("/metrics", rt.metrics.Handler())
	}

	authMiddleware := middleware.Auth(rt.auth, rt.logger)

	// Gallery page
	rt.mux.Handle("/", authMiddleware(middleware.Compression(http.HandlerFunc(rt.galleryHandler.ShowGallery))))

	// API endpoints
	var api http.Handler = authMiddleware(middleware.Compression(http.HandlerFunc(rt.imagesAPIHandler.HandleImages)))
	if rt.rateLimiter != nil {
		var onLimited func()
		if rt.metrics != nil {
			onLimited = rt.metrics.ObserveRateLimited
		}
		api = middleware.RateLimit(rt.rateLimiter, onLimited)(api)
	}
	rt.mux.Handle("/api/v1/images", api)

	// Применяем middleware
	var handler http.Handler = rt.mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = middleware.Recovery(rt.logger)(handler)
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
