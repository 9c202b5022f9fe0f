// Package media reads preview data out of captured images.
//
// A timelapse capture tool writes every frame to latest.jpg with a small
// JPEG thumbnail embedded in the EXIF APP1 segment. [ThumbnailExtractor]
// copies that thumbnail straight out of the file, so the full-size picture
// is never decoded on the capture device. [FingerprintOf] detects whether
// the file changed since the last extraction.
//
// When a capture carries no embedded thumbnail, [FallbackRenderer] can
// downscale the full image instead. It is disabled unless configured.
package media
