package attachment

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ThumbnailOptions bounds the derived thumbnail
type ThumbnailOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// DefaultThumbnailOptions matches the list view: 200x200 box, JPEG quality 70
var DefaultThumbnailOptions = ThumbnailOptions{MaxWidth: 200, MaxHeight: 200, Quality: 70}

func (o ThumbnailOptions) withDefaults() ThumbnailOptions {
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultThumbnailOptions.MaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = DefaultThumbnailOptions.MaxHeight
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultThumbnailOptions.Quality
	}
	return o
}

// Thumbnail decodes an image and re-encodes it as a JPEG data URL fitted inside the
// configured box, keeping aspect ratio. Images already inside the box are not enlarged.
func Thumbnail(content []byte, opts ThumbnailOptions) (string, error) {
	opts = opts.withDefaults()
	if len(content) == 0 {
		return "", fmt.Errorf("empty image")
	}

	img, err := imaging.Decode(bytes.NewReader(content), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	img = fit(img, opts.MaxWidth, opts.MaxHeight)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality)); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return DataURL("image/jpeg", buf.Bytes()), nil
}

func fit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return img
	}
	return imaging.Fit(img, maxW, maxH, imaging.Lanczos)
}
