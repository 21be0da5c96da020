package storage

import (
	"context"
)

// LogoStore stores program logos and hands back their public URLs.
// This interface allows for easy mocking in tests
type LogoStore interface {
	UploadLogo(ctx context.Context, data []byte, originalFilename string) (*UploadResult, error)
	DeleteByURL(ctx context.Context, publicURL string) error
}

// Ensure S3Uploader implements LogoStore
var _ LogoStore = (*S3Uploader)(nil)
