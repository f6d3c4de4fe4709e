package validation

import (
	"fmt"
	"net/http"
)

// ImageConstraints defines validation rules for image payloads
type ImageConstraints struct {
	AllowedMimeTypes map[string]bool
	MaxSize          int64
}

// EmbeddedImageConstraints applies to images carried inline on a record
// (data URIs) rather than uploaded to the asset store.
var EmbeddedImageConstraints = ImageConstraints{
	AllowedMimeTypes: map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	},
	MaxSize: 5 << 20, // 5MB
}

// ValidateImageBytes validates a raw image payload against a constraint set.
// The content type is detected from the bytes themselves (magic numbers),
// not taken from the caller, so a mislabeled payload cannot slip through.
func ValidateImageBytes(data []byte, constraints ImageConstraints) error {
	if int64(len(data)) > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return fmt.Errorf("image too large: maximum size is %d MB", maxMB)
	}

	// http.DetectContentType reads max 512 bytes to determine MIME type
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	detectedType := http.DetectContentType(head)

	if !constraints.AllowedMimeTypes[detectedType] {
		return fmt.Errorf("invalid image type (detected: %s)", detectedType)
	}

	return nil
}
