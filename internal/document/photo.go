package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxPhotoPixels bounds decoding work for oversized uploads.
const maxPhotoPixels = 40_000_000

// The photo box in points. pdfcpu draws one image pixel per point and only
// ever scales an image down to fit its box.
var (
	photoBoxWidthPx  = int(math.Ceil(photoWidth * pointsPerMM))
	photoBoxHeightPx = int(math.Ceil(photoHeight * pointsPerMM))
)

// normalizePhoto decodes an uploaded photo in any registered format and
// re-encodes it as JPEG for embedding. Photos smaller than boxWidth x
// boxHeight are scaled up, keeping their aspect ratio, until they touch the
// box on one side.
func normalizePhoto(data []byte, boxWidth, boxHeight int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty photo")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read photo header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("photo has no pixels (%dx%d)", cfg.Width, cfg.Height)
	}
	if cfg.Width*cfg.Height > maxPhotoPixels {
		return nil, fmt.Errorf("photo too large: %dx%d", cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s photo: %w", format, err)
	}
	img = fitUp(img, boxWidth, boxHeight)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode photo as jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func fitUp(img image.Image, boxWidth, boxHeight int) image.Image {
	b := img.Bounds()
	scale := math.Min(float64(boxWidth)/float64(b.Dx()), float64(boxHeight)/float64(b.Dy()))
	if scale <= 1 {
		return img
	}
	w := int(math.Round(float64(b.Dx()) * scale))
	h := int(math.Round(float64(b.Dy()) * scale))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
