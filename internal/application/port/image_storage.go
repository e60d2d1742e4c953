package port

import (
	"context"
	"time"
)

// StoredObject: одна запись страницы листинга бакета.
type StoredObject struct {
	Key          string
	LastModified time.Time
}

// ObjectLister возвращает одну страницу листинга бакета.
// Продолжение по continuation token не выполняется.
type ObjectLister interface {
	ListObjects(ctx context.Context) ([]StoredObject, error)
}

// ObjectUploader загружает объект в бакет.
type ObjectUploader interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
}
