package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func solidPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func decodedSize(t *testing.T, dataURL string) (int, int) {
	t.Helper()
	raw, err := DecodeDataURL(dataURL)
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestNormalizeDataURL(t *testing.T) {
	in := "data:image/png;base64," + base64.StdEncoding.EncodeToString(solidPNG(120, 60))
	out, err := NormalizeDataURL(in)
	if err != nil {
		t.Fatalf("NormalizeDataURL: %v", err)
	}
	if !strings.HasPrefix(out, "data:image/jpeg;base64,") {
		t.Errorf("unexpected prefix in %.40s", out)
	}
	if w, h := decodedSize(t, out); w != 120 || h != 60 {
		t.Errorf("small image resized to %dx%d", w, h)
	}
}

func TestNormalizeDataURLDownscales(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{1600, 400, 800, 200},
		{300, 1200, 200, 800},
	}
	for _, tt := range tests {
		out, err := NormalizeDataURL(base64.StdEncoding.EncodeToString(solidPNG(tt.w, tt.h)))
		if err != nil {
			t.Fatalf("%dx%d: %v", tt.w, tt.h, err)
		}
		if w, h := decodedSize(t, out); w != tt.wantW || h != tt.wantH {
			t.Errorf("%dx%d: got %dx%d, want %dx%d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestNormalizeDataURLEmpty(t *testing.T) {
	out, err := NormalizeDataURL("  ")
	if err != nil || out != "" {
		t.Errorf("expected empty result, got %q, %v", out, err)
	}
}

func TestNormalizeDataURLRejects(t *testing.T) {
	tests := map[string]string{
		"not base64":    "data:image/png;base64,@@@",
		"not a picture": "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello world")),
		"url encoded":   "data:image/png,abc",
	}
	for name, in := range tests {
		if _, err := NormalizeDataURL(in); !errors.Is(err, ErrInvalidImage) {
			t.Errorf("%s: expected ErrInvalidImage, got %v", name, err)
		}
	}
}
