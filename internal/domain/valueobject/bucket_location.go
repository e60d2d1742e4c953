package valueobject

import (
	"errors"
	"strings"
)

// BucketLocation связывает имя бакета и регион (Value Object)
type BucketLocation struct {
	bucket string
	region string
}

// NewBucketLocation создает BucketLocation с валидацией
func NewBucketLocation(bucket, region string) (BucketLocation, error) {
	bucket = strings.TrimSpace(bucket)
	region = strings.TrimSpace(region)

	if bucket == "" {
		return BucketLocation{}, errors.New("bucket name is required")
	}
	if region == "" {
		return BucketLocation{}, errors.New("region is required")
	}

	return BucketLocation{bucket: bucket, region: region}, nil
}

// Bucket возвращает имя бакета
func (b BucketLocation) Bucket() string {
	return b.bucket
}

// Region возвращает регион
func (b BucketLocation) Region() string {
	return b.region
}

// ObjectURL строит virtual-hosted URL объекта.
// Ключ подставляется как есть, без URL-экранирования.
func (b BucketLocation) ObjectURL(key string) string {
	return "https://" + b.bucket + ".s3." + b.region + ".amazonaws.com/" + key
}
