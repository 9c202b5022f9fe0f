// Package mediatest builds capture files for tests: JPEG containers with an
// EXIF APP1 segment whose IFD1 points at an embedded thumbnail, laid out the
// way raspistill writes them.
package mediatest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"testing"
)

// Options control the generated file.
type Options struct {
	// PadTo appends zero bytes after the thumbnail up to this total length.
	PadTo int
	// ClaimedLength overrides the length written to the thumbnail descriptor.
	ClaimedLength int
	// OmitThumbnail writes IFD0 only, so no thumbnail descriptor exists.
	OmitThumbnail bool
	// OrientationCount overrides the value count of the IFD0 orientation
	// tag, which is 1 in a well-formed file.
	OrientationCount uint32
}

const (
	tagOrientation    = 0x0112
	tagThumbOffset    = 0x0201
	tagThumbLength    = 0x0202
	typeShort         = 3
	typeLong          = 4
	ifd0Offset        = 8
	ifd1Offset        = ifd0Offset + 2 + 12 + 4
	thumbnailStart    = ifd1Offset + 2 + 2*12 + 4
	exifHeaderPadding = "Exif\x00\x00"
)

// Thumbnail returns a small byte sequence shaped like a JPEG stream.
func Thumbnail(body string) []byte {
	out := []byte{0xFF, 0xD8, 0xFF, 0xDB}
	out = append(out, body...)
	return append(out, 0xFF, 0xD9)
}

// JPEG returns a file image with thumb embedded in the EXIF segment.
// The thumbnail sits thumbnailStart bytes after the TIFF header, which is
// itself 12 bytes into the file.
func JPEG(thumb []byte, opts Options) []byte {
	data := append([]byte{}, thumb...)
	for len(data) < opts.PadTo {
		data = append(data, 0)
	}

	var tiff bytes.Buffer
	le := binary.LittleEndian
	put16 := func(v uint16) { _ = binary.Write(&tiff, le, v) }
	put32 := func(v uint32) { _ = binary.Write(&tiff, le, v) }
	entry := func(tag, typ uint16, count, value uint32) {
		put16(tag)
		put16(typ)
		put32(count)
		put32(value)
	}

	tiff.WriteString("II")
	put16(42)
	put32(ifd0Offset)

	next := uint32(ifd1Offset)
	if opts.OmitThumbnail {
		next = 0
	}
	orientationCount := uint32(1)
	if opts.OrientationCount > 0 {
		orientationCount = opts.OrientationCount
	}
	put16(1)
	entry(tagOrientation, typeShort, orientationCount, 1)
	put32(next)

	if !opts.OmitThumbnail {
		length := len(data)
		if opts.ClaimedLength > 0 {
			length = opts.ClaimedLength
		}
		put16(2)
		entry(tagThumbOffset, typeLong, 1, thumbnailStart)
		entry(tagThumbLength, typeLong, 1, uint32(length))
		put32(0)
		tiff.Write(data)
	}

	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(2+len(exifHeaderPadding)+tiff.Len()))
	out.WriteString(exifHeaderPadding)
	out.Write(tiff.Bytes())
	out.Write([]byte{0xFF, 0xD9})
	return out.Bytes()
}

// WriteJPEG writes JPEG(thumb, opts) to path.
func WriteJPEG(t testing.TB, path string, thumb []byte, opts Options) {
	t.Helper()
	if err := os.WriteFile(path, JPEG(thumb, opts), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WritePlainJPEG writes a w x h baseline JPEG without any EXIF segment.
func WritePlainJPEG(t testing.TB, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
