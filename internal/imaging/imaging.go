// Package imaging normalises the optional photo attached to a checkout.
// Photos travel inside movement records as data URLs, so they are kept small.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
)

// MaxDimension bounds the width and height of a stored photo.
const MaxDimension = 800

// JPEGQuality is used when re-encoding.
const JPEGQuality = 70

// MaxInputBytes rejects decoded payloads larger than this.
const MaxInputBytes = 10 << 20

// ErrInvalidImage wraps every rejection.
var ErrInvalidImage = errors.New("invalid image")

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// DecodeDataURL extracts the bytes of a base64 data URL. A bare base64
// string is accepted too.
func DecodeDataURL(s string) ([]byte, error) {
	payload := strings.TrimSpace(s)
	if strings.HasPrefix(payload, "data:") {
		meta, data, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, fmt.Errorf("%w: not a base64 data URL", ErrInvalidImage)
		}
		payload = data
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxInputBytes {
		return nil, fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxInputBytes)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return raw, nil
}

// Normalize sniffs raw, downscales it to MaxDimension and re-encodes it as
// JPEG.
func Normalize(raw []byte) ([]byte, error) {
	if mime := http.DetectContentType(raw); !allowedMIME[mime] {
		return nil, fmt.Errorf("%w: unsupported format %s", ErrInvalidImage, mime)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fit(img, MaxDimension), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizeDataURL returns s as a compact JPEG data URL. Empty input stays
// empty.
func NormalizeDataURL(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	raw, err := DecodeDataURL(s)
	if err != nil {
		return "", err
	}
	out, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(out), nil
}

func fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	nw, nh := maxDim, maxDim
	if w > h {
		nh = max(1, h*maxDim/w)
	} else {
		nw = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
