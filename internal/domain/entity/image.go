package entity

import (
	"sort"
	"time"
)

// ImageDescriptor описывает один объект бакета для отображения.
// Создается заново при каждом листинге и не изменяется после создания.
type ImageDescriptor struct {
	URL          string
	Key          string
	LastModified time.Time
}

// SortByRecency сортирует дескрипторы по LastModified, новые первыми.
// Порядок при равных LastModified не гарантируется.
func SortByRecency(images []ImageDescriptor) {
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].LastModified.After(images[j].LastModified)
	})
}
