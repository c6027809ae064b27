package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MaxWidth bounds the width of generated thumbnails.
	MaxWidth = 4096
	// MaxHeight bounds the height a thumbnail reaches through the source aspect ratio.
	MaxHeight = MaxWidth
	// maxSourcePixels bounds the raster size that is decoded in full.
	maxSourcePixels = 64 << 20
)

// ErrUndecodable is returned when the input is neither a supported raster
// format nor an SVG document.
var ErrUndecodable = errors.New("undecodable image")

// Generate renders imageData as a PNG of the given width, keeping the aspect ratio.
func Generate(imageData []byte, width int) ([]byte, error) {
	if width <= 0 || width > MaxWidth {
		return nil, fmt.Errorf("width must be between 1 and %d, got %d", MaxWidth, width)
	}

	var target image.Image
	if isSVGData(imageData) {
		rendered, err := renderSVG(imageData, width)
		if err != nil {
			return nil, err
		}
		target = rendered
	} else {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
		}
		if int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
			return nil, fmt.Errorf("%w: source of %dx%d pixels is too large", ErrUndecodable, cfg.Width, cfg.Height)
		}
		height, err := heightFor(float64(cfg.Width), float64(cfg.Height), width)
		if err != nil {
			return nil, err
		}

		img, format, err := image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
		}
		slog.Debug("thumbnail: decoded raster image",
			"format", format,
			"orig_width", img.Bounds().Dx(),
			"orig_height", img.Bounds().Dy())
		target = scale(img, width, height)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, target); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	slog.Debug("thumbnail: encoded", "width", width, "output_size_bytes", buf.Len())
	return buf.Bytes(), nil
}

func scale(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// heightFor keeps the aspect ratio of a w x h source at the target width.
// Sources taller than MaxHeight at that width are rejected.
func heightFor(w, h float64, width int) (int, error) {
	if w <= 0 || h <= 0 {
		return 0, fmt.Errorf("%w: empty source of %gx%g", ErrUndecodable, w, h)
	}
	height := math.Round(h * float64(width) / w)
	if height > MaxHeight {
		return 0, fmt.Errorf("%w: %gx%g source would be %.0f pixels high at width %d, limit is %d",
			ErrUndecodable, w, h, height, width, MaxHeight)
	}
	return max(int(height), 1), nil
}
