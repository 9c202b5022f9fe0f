package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"

	"timelapse/internal/logging"

	"github.com/disintegration/imaging"
)

const (
	// MaxImagePixels is the largest capture the fallback renderer will decode.
	// An 8MP camera frame needs ~32MB as RGBA; anything far above that is
	// not a camera frame and would starve a Raspberry Pi of memory.
	MaxImagePixels = 20_000_000
)

// FallbackRenderer builds a preview by decoding and downscaling the full
// capture. It is only used for images without an embedded thumbnail.
type FallbackRenderer struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// DefaultFallbackRenderer returns a renderer producing previews up to 320x240.
func DefaultFallbackRenderer() *FallbackRenderer {
	return &FallbackRenderer{MaxWidth: 320, MaxHeight: 240, Quality: 80}
}

// Render decodes the image at path and returns a downscaled JPEG.
func (r *FallbackRenderer) Render(path string) ([]byte, error) {
	dims, err := GetImageDimensions(path)
	if err != nil {
		return nil, fmt.Errorf("read image header: %w", err)
	}
	if dims.Width*dims.Height > MaxImagePixels {
		return nil, fmt.Errorf("image %dx%d exceeds %d pixels", dims.Width, dims.Height, MaxImagePixels)
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	thumb := imaging.Fit(img, r.MaxWidth, r.MaxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(r.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	logging.Debug("Rendered fallback preview for %s (%dx%d -> %dx%d)",
		path, dims.Width, dims.Height, thumb.Bounds().Dx(), thumb.Bounds().Dy())
	return buf.Bytes(), nil
}

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*ImageDimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &ImageDimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

type fallbackExtractor struct {
	primary  Extractor
	renderer *FallbackRenderer
}

// WithFallback returns an Extractor that renders a preview with renderer
// when primary finds no usable thumbnail metadata. Other failures
// (missing file, truncated data) are returned unchanged.
func WithFallback(primary Extractor, renderer *FallbackRenderer) Extractor {
	if renderer == nil {
		return primary
	}
	return &fallbackExtractor{primary: primary, renderer: renderer}
}

func (f *fallbackExtractor) Extract(path string) ([]byte, error) {
	thumb, err := f.primary.Extract(path)
	if err == nil || !errors.Is(err, ErrMetadata) {
		return thumb, err
	}

	logging.Debug("No embedded thumbnail in %s, rendering fallback preview", path)
	rendered, renderErr := f.renderer.Render(path)
	if renderErr != nil {
		return nil, fmt.Errorf("%w (fallback failed: %v)", err, renderErr)
	}
	return rendered, nil
}
