// Package imaging shrinks embedded image payloads so a batch of records can
// fit the fallback store's size budget. Everything here is best-effort: a
// payload that cannot be decoded is passed through unchanged rather than
// failing the write that triggered compression.
package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	"log/slog"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Compress re-encodes an image so its longest side does not exceed maxDim
// pixels (aspect ratio preserved) at the given JPEG quality. If the input
// cannot be decoded or re-encoded, the original bytes come back unchanged.
func Compress(data []byte, maxDim, quality int) []byte {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Debug("image compression skipped, decode failed", "error", err)
		return data
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	nw, nh := fit(w, h, maxDim)
	var out image.Image = src
	if nw != w || nh != h {
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	err = jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality})
	if err != nil {
		slog.Debug("image compression skipped, encode failed", "error", err, "format", format)
		return data
	}

	// Re-encoding can backfire on already tiny inputs.
	if buf.Len() >= len(data) {
		return data
	}

	return buf.Bytes()
}

// fit scales (w, h) so the longest side is at most maxDim, keeping aspect
// ratio. Dimensions already within the limit come back unchanged.
func fit(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		nh := h * maxDim / w
		if nh < 1 {
			nh = 1
		}
		return maxDim, nh
	}
	nw := w * maxDim / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxDim
}
