package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noiseImage builds an incompressible test image so JPEG sizes behave
// predictably across quality levels.
func noiseImage(t *testing.T, w, h int) image.Image {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func noiseJPEG(t *testing.T, w, h, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	err := jpeg.Encode(&buf, noiseImage(t, w, h), &jpeg.Options{Quality: quality})
	require.NoError(t, err)
	return buf.Bytes()
}

func TestCompressShrinksOversizedImage(t *testing.T) {
	original := noiseJPEG(t, 1200, 800, 90)

	compressed := Compress(original, 600, 50)

	assert.Less(t, len(compressed), len(original))

	cfg, format, err := image.DecodeConfig(bytes.NewReader(compressed))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.LessOrEqual(t, cfg.Width, 600)
	assert.LessOrEqual(t, cfg.Height, 600)
	// Aspect ratio 3:2 preserved
	assert.Equal(t, 600, cfg.Width)
	assert.Equal(t, 400, cfg.Height)
}

func TestCompressHandlesPNGInput(t *testing.T) {
	var buf bytes.Buffer
	err := png.Encode(&buf, noiseImage(t, 900, 300))
	require.NoError(t, err)

	compressed := Compress(buf.Bytes(), 600, 50)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(compressed))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 600, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestCompressReturnsOriginalOnUndecodableInput(t *testing.T) {
	garbage := []byte("definitely not an image")

	got := Compress(garbage, 600, 50)

	assert.Equal(t, garbage, got)
}

func TestCompressKeepsSmallerOriginal(t *testing.T) {
	// A tiny, already heavily compressed image should come back unchanged
	// rather than growing through a pointless re-encode.
	original := noiseJPEG(t, 10, 10, 10)

	got := Compress(original, 600, 95)

	assert.Equal(t, original, got)
}

func TestFit(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		maxDim int
		wantW  int
		wantH  int
	}{
		{"landscape over limit", 1200, 800, 600, 600, 400},
		{"portrait over limit", 800, 1200, 600, 400, 600},
		{"within limit untouched", 500, 300, 600, 500, 300},
		{"square at limit", 600, 600, 600, 600, 600},
		{"extreme ratio keeps min 1px", 10000, 2, 600, 600, 1},
		{"zero maxDim untouched", 1200, 800, 0, 1200, 800},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fit(tt.w, tt.h, tt.maxDim)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}
