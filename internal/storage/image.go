package storage

import (
	"errors"

	"github.com/gabriel-vasile/mimetype"
)

// MaxLogoSize is the largest accepted logo upload
const MaxLogoSize = 5 << 20

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds 5MB")
	ErrUnsupportedType = errors.New("file must be a JPEG, PNG, WebP or GIF image")
)

var logoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// DetectImage sniffs data and returns its content type and file extension. The
// declared content type and filename are ignored.
func DetectImage(data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", ErrEmptyFile
	}
	if len(data) > MaxLogoSize {
		return "", "", ErrFileTooLarge
	}

	mtype := mimetype.Detect(data)
	for candidate, extension := range logoTypes {
		if mtype.Is(candidate) {
			return candidate, extension, nil
		}
	}
	return "", "", ErrUnsupportedType
}
