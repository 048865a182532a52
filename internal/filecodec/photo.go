package filecodec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	// png decoder for image.Decode
	_ "image/png"

	"golang.org/x/image/draw"
)

const maxPhotoDimension = 1280

var photoAttempts = []struct {
	scale   float64
	quality int
}{
	{1, 85},
	{1, 70},
	{0.75, 70},
	{0.5, 65},
	{0.35, 60},
	{0.25, 50},
	{0.15, 45},
}

// compressPhoto re-encodes data as JPEG, shrinking it step by step until its base64 form fits limit.
func compressPhoto(data []byte, limit int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode image: %v", ErrUnsupportedType, err)
	}

	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), maxPhotoDimension)

	var buf bytes.Buffer
	for _, a := range photoAttempts {
		tw, th := int(float64(w)*a.scale), int(float64(h)*a.scale)
		if tw < 1 || th < 1 {
			break
		}
		buf.Reset()
		if err := jpeg.Encode(&buf, resize(img, tw, th), &jpeg.Options{Quality: a.quality}); err != nil {
			return nil, fmt.Errorf("failed to encode photo: %w", err)
		}
		if base64.StdEncoding.EncodedLen(buf.Len()) <= limit {
			return buf.Bytes(), nil
		}
	}
	return nil, ErrEncodedTooLarge
}

func fitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		return max, h * max / w
	}
	return w * max / h, max
}

// resize scales src onto a w x h canvas with an approximate bilinear filter.
func resize(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
