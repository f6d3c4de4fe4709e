package imaging

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const dataURIPrefix = "data:image/"

// IsEmbedded reports whether a media reference value carries the image bytes
// inline as a base64 data URI instead of pointing at an asset store URL.
func IsEmbedded(value string) bool {
	return strings.HasPrefix(value, dataURIPrefix)
}

// DecodeEmbedded splits an image data URI into its media type and raw bytes.
func DecodeEmbedded(value string) (string, []byte, error) {
	if !IsEmbedded(value) {
		return "", nil, fmt.Errorf("not an image data URI")
	}
	head, payload, ok := strings.Cut(value, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI")
	}
	mediaType := strings.TrimSuffix(strings.TrimPrefix(head, "data:"), ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI payload: %w", err)
	}
	return mediaType, data, nil
}

// EncodeEmbedded builds an image data URI from raw bytes.
func EncodeEmbedded(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// CompressEmbedded compresses the image inside a data URI. Non-embedded
// values and undecodable payloads come back unchanged; a successfully
// compressed image is re-embedded as JPEG.
func CompressEmbedded(value string, maxDim, quality int) string {
	if !IsEmbedded(value) {
		return value
	}
	_, data, err := DecodeEmbedded(value)
	if err != nil {
		return value
	}
	shrunk := Compress(data, maxDim, quality)
	if len(shrunk) >= len(data) {
		return value
	}
	return EncodeEmbedded("image/jpeg", shrunk)
}
