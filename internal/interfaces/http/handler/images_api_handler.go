package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dreschagin/image-gallery/internal/application/usecase"
	"github.com/dreschagin/image-gallery/internal/interfaces/http/middleware"
	"github.com/dreschagin/image-gallery/pkg/logger"
)

// ImagesAPIHandler обслуживает JSON листинг изображений и загрузку.
type ImagesAPIHandler struct {
	fetchImagesUC   *usecase.FetchImagesUseCase
	uploadImageUC   *usecase.UploadImageUseCase
	authConfig      middleware.AuthConfig
	logger          *logger.Logger
	maxPayloadBytes int64
	maxImageBytes   int
}

type imageItem struct {
	URL          string    `json:"url"`
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
}

type listImagesResponse struct {
	Items []imageItem `json:"items"`
	Count int         `json:"count"`
}

type uploadImageRequest struct {
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	DataBase64  string    `json:"data_base64"`
	CapturedAt  time.Time `json:"captured_at"`
}

type uploadImageResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func NewImagesAPIHandler(
	fetchImagesUC *usecase.FetchImagesUseCase,
	uploadImageUC *usecase.UploadImageUseCase,
	authConfig middleware.AuthConfig,
	maxPayloadBytes int64,
	maxImageBytes int,
	log *logger.Logger,
) *ImagesAPIHandler {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = 20 * 1024 * 1024
	}
	if maxImageBytes <= 0 {
		maxImageBytes = 10 * 1024 * 1024
	}

	return &ImagesAPIHandler{
		fetchImagesUC:   fetchImagesUC,
		uploadImageUC:   uploadImageUC,
		authConfig:      authConfig,
		logger:          log,
		maxPayloadBytes: maxPayloadBytes,
		maxImageBytes:   maxImageBytes,
	}
}

// HandleImages распределяет GET и POST для /api/v1/images.
func (h *ImagesAPIHandler) HandleImages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListImages(w, r)
	case http.MethodPost:
		h.UploadImage(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ListImages всегда отвечает 200, при ошибке листинга список пуст.
func (h *ImagesAPIHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	images := h.fetchImagesUC.FetchImages(r.Context())

	items := make([]imageItem, 0, len(images))
	for _, image := range images {
		items = append(items, imageItem{
			URL:          image.URL,
			Key:          image.Key,
			LastModified: image.LastModified,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, listImagesResponse{
		Items: items,
		Count: len(items),
	})
}

func (h *ImagesAPIHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := middleware.ValidateRequestAuth(r, h.authConfig); err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer realm="image-gallery"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxPayloadBytes)
	defer r.Body.Close()

	var req uploadImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	data, err := decodeBase64Image(req.DataBase64)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid image: %v", err), http.StatusBadRequest)
		return
	}
	if len(data) > h.maxImageBytes {
		http.Error(w, "Image too large", http.StatusRequestEntityTooLarge)
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/png"
	}

	result, err := h.uploadImageUC.Execute(r.Context(), usecase.UploadImageCommand{
		Name:        req.Name,
		ContentType: contentType,
		Data:        data,
		CapturedAt:  req.CapturedAt,
	})
	if err != nil {
		h.logger.Error("Failed to upload image", err,
			"name", req.Name,
			"request_id", middleware.RequestIDFromRequest(r),
		)
		status := uploadErrorStatus(err)
		http.Error(w, uploadErrorMessage(err, status), status)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, uploadImageResponse{
		Key: result.Key,
		URL: result.URL,
	})
}

func uploadErrorStatus(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInvalidUpload):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrUploaderNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// uploadErrorMessage раскрывает клиенту только ошибки валидации.
func uploadErrorMessage(err error, status int) string {
	switch status {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusServiceUnavailable:
		return "Image storage is not configured"
	default:
		return "Failed to upload image"
	}
}

func decodeBase64Image(raw string) ([]byte, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, fmt.Errorf("empty data_base64")
	}

	value = strings.TrimPrefix(value, "data:image/png;base64,")

	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid base64")
	}

	return decoded, nil
}
