package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"timelapse/internal/filesystem"
	"timelapse/internal/logging"

	"github.com/dustin/go-humanize"
	"github.com/rwcarlsen/goexif/exif"
)

const (
	// ThumbnailOffsetCorrection is added to the EXIF thumbnail offset. The
	// descriptor counts from the TIFF header, which sits 12 bytes into a
	// JPEG written by raspistill (SOI, APP1 marker, length, "Exif\0\0").
	ThumbnailOffsetCorrection = 12

	// maxThumbnailLength bounds the read buffer. An APP1 segment cannot
	// exceed 64 KiB, so anything larger is a corrupt descriptor.
	maxThumbnailLength = 1 << 20
)

// ThumbnailExtractor copies the embedded EXIF thumbnail out of a JPEG.
type ThumbnailExtractor struct {
	retry filesystem.RetryConfig
}

// NewThumbnailExtractor creates an extractor using the default NFS retry policy.
func NewThumbnailExtractor() *ThumbnailExtractor {
	return &ThumbnailExtractor{retry: filesystem.DefaultRetryConfig()}
}

// Extract returns the embedded thumbnail of the image at path with its
// trailing zero padding removed. Any failure returns no data at all.
func (e *ThumbnailExtractor) Extract(path string) (thumb []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("EXIF parser panic on %s: %v", path, r)
			thumb, err = nil, fmt.Errorf("%w: %s: parser panic: %v", ErrMetadata, path, r)
		}
	}()

	f, err := filesystem.OpenWithRetry(path, e.retry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	offset, length, err := thumbnailDescriptor(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	thumb, err = readThumbnail(f, offset+ThumbnailOffsetCorrection, length)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logging.Debug("Extracted thumbnail from %s: %s at offset %d (%s padding stripped)",
		path, humanize.IBytes(uint64(len(thumb))), offset+ThumbnailOffsetCorrection,
		humanize.IBytes(uint64(length-len(thumb))))
	return thumb, nil
}

// thumbnailDescriptor parses the EXIF data of r and returns the nominal
// thumbnail offset and length from IFD1. Only the APP1 segment is read, and
// it is validated before the decoder sees it.
func thumbnailDescriptor(r io.Reader) (int64, int, error) {
	block, err := readExifSegment(r)
	if err != nil {
		return 0, 0, err
	}
	if err := validateTIFF(block); err != nil {
		return 0, 0, err
	}

	x, err := exif.Decode(bytes.NewReader(block))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return 0, 0, fmt.Errorf("%w: %v", ErrMetadata, err)
	}

	offset, err := intField(x, exif.ThumbJPEGInterchangeFormat)
	if err != nil {
		return 0, 0, err
	}
	length, err := intField(x, exif.ThumbJPEGInterchangeFormatLength)
	if err != nil {
		return 0, 0, err
	}

	if offset < 0 || length <= 0 || length > maxThumbnailLength {
		return 0, 0, fmt.Errorf("%w: invalid thumbnail descriptor offset=%d length=%d", ErrMetadata, offset, length)
	}
	return int64(offset), length, nil
}

func intField(x *exif.Exif, name exif.FieldName) (int, error) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMetadata, err)
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMetadata, name, err)
	}
	return v, nil
}

func readThumbnail(r io.ReaderAt, offset int64, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := r.ReadAt(buf, offset)
	if n < length {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: read %d of %d bytes at offset %d", ErrTruncated, n, length, offset)
		}
		return nil, fmt.Errorf("%w: read thumbnail: %v", ErrIO, err)
	}
	return StripPadding(buf), nil
}

// StripPadding removes trailing 0x00 bytes. The capture tool pads
// thumbnails to a fixed 24 KB block and the padding is not valid JPEG data.
func StripPadding(b []byte) []byte {
	return bytes.TrimRight(b, "\x00")
}

var _ Extractor = (*ThumbnailExtractor)(nil)
