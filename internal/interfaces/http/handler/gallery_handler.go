package handler

import (
	"net/http"

	"github.com/dreschagin/image-gallery/internal/application/usecase"
	"github.com/dreschagin/image-gallery/internal/interfaces/view"
	"github.com/dreschagin/image-gallery/pkg/logger"
)

// GalleryHandler обрабатывает запросы к странице галереи
type GalleryHandler struct {
	fetchImagesUC *usecase.FetchImagesUseCase
	bucket        string
	logger        *logger.Logger
}

// NewGalleryHandler создает новый handler
func NewGalleryHandler(
	fetchImagesUC *usecase.FetchImagesUseCase,
	bucket string,
	logger *logger.Logger,
) *GalleryHandler {
	return &GalleryHandler{
		fetchImagesUC: fetchImagesUC,
		bucket:        bucket,
		logger:        logger,
	}
}

// ShowGallery отображает главную страницу
func (h *GalleryHandler) ShowGallery(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	// Пустой список при ошибке листинга: страница все равно рендерится
	images := h.fetchImagesUC.FetchImages(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := view.Gallery(view.GalleryPage{
		Bucket: h.bucket,
		Images: images,
	}).Render(r.Context(), w); err != nil {
		h.logger.Error("Failed to render gallery", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
}
