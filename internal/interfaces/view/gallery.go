package view

import (
	"strconv"
	"time"

	"github.com/dreschagin/image-gallery/internal/domain/entity"
)

const defaultTitle = "Image Gallery"

// GalleryPage describes the data rendered on the gallery page.
type GalleryPage struct {
	Title  string
	Bucket string
	Images []entity.ImageDescriptor
}

func pageTitle(title string) string {
	if title == "" {
		return defaultTitle
	}
	return title
}

func imageCount(n int) string {
	if n == 1 {
		return "1 image"
	}
	return strconv.Itoa(n) + " images"
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
