package media

import "errors"

// Extraction failures. Callers match them with errors.Is.
var (
	// ErrIO reports a stat or read failure other than a missing file.
	ErrIO = errors.New("media: i/o error")
	// ErrNotFound reports that the image does not exist.
	ErrNotFound = errors.New("media: image not found")
	// ErrMetadata reports unparseable EXIF data or a missing thumbnail descriptor.
	ErrMetadata = errors.New("media: no usable thumbnail metadata")
	// ErrTruncated reports a file shorter than its thumbnail descriptor promises.
	ErrTruncated = errors.New("media: thumbnail data truncated")
)

// Extractor returns preview bytes for an image file.
type Extractor interface {
	Extract(path string) ([]byte, error)
}
