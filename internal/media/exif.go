package media

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP1 = 0xE1

	// maxSegmentsScanned bounds the marker walk before the EXIF segment.
	maxSegmentsScanned = 32
	// maxIFDs bounds the number of directories followed in one TIFF block.
	maxIFDs = 16
)

var exifHeader = []byte("Exif\x00\x00")

// IFD pointer tags followed by the EXIF decoder.
var subIFDTags = map[uint16]bool{
	0x8769: true, // Exif
	0x8825: true, // GPS
	0xA005: true, // Interoperability
}

// tiffTypeSize holds the byte size of each TIFF field type.
var tiffTypeSize = map[uint16]uint64{
	1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8,
}

// readExifSegment returns the TIFF block of the first EXIF APP1 segment.
// A JPEG segment length is 16 bits, so the result never exceeds 64 KiB.
func readExifSegment(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)

	var soi [2]byte
	if _, err := io.ReadFull(br, soi[:]); err != nil || soi[0] != 0xFF || soi[1] != markerSOI {
		return nil, fmt.Errorf("%w: not a JPEG file", ErrMetadata)
	}

	for i := 0; i < maxSegmentsScanned; i++ {
		var hdr [4]byte
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			return nil, fmt.Errorf("%w: no EXIF segment: %v", ErrMetadata, err)
		}
		if hdr[0] != 0xFF {
			return nil, fmt.Errorf("%w: bad JPEG marker 0x%02X%02X", ErrMetadata, hdr[0], hdr[1])
		}
		marker := hdr[1]
		if marker == markerSOS || marker == markerEOI {
			break
		}

		length := int(binary.BigEndian.Uint16(hdr[2:]))
		if length < 2 {
			return nil, fmt.Errorf("%w: bad segment length %d", ErrMetadata, length)
		}
		body := make([]byte, length-2)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, fmt.Errorf("%w: short JPEG segment: %v", ErrMetadata, err)
		}

		if marker == markerAPP1 && bytes.HasPrefix(body, exifHeader) {
			return body[len(exifHeader):], nil
		}
	}
	return nil, fmt.Errorf("%w: no EXIF segment", ErrMetadata)
}

// validateTIFF walks every directory the EXIF decoder would visit and
// rejects entries whose value would not fit inside the block. The decoder
// trusts tag counts and allocates from them before checking bounds.
func validateTIFF(b []byte) error {
	if len(b) < 8 {
		return fmt.Errorf("%w: TIFF header truncated", ErrMetadata)
	}

	var order binary.ByteOrder
	switch string(b[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return fmt.Errorf("%w: unknown TIFF byte order", ErrMetadata)
	}
	if order.Uint16(b[2:]) != 42 {
		return fmt.Errorf("%w: bad TIFF magic", ErrMetadata)
	}

	// Only the main chain (IFD0, IFD1, ...) is followed through next
	// pointers; sub-IFDs are read as single directories.
	type ifdRef struct {
		off   uint64
		chain bool
	}

	size := uint64(len(b))
	pending := []ifdRef{{off: uint64(order.Uint32(b[4:])), chain: true}}
	seen := map[uint64]bool{}

	for len(pending) > 0 {
		ref := pending[0]
		pending = pending[1:]
		off := ref.off

		if seen[off] {
			return fmt.Errorf("%w: IFD loop at offset %d", ErrMetadata, off)
		}
		seen[off] = true
		if len(seen) > maxIFDs {
			return fmt.Errorf("%w: too many IFDs", ErrMetadata)
		}

		if off+2 > size {
			return fmt.Errorf("%w: IFD offset %d out of range", ErrMetadata, off)
		}
		n := uint64(order.Uint16(b[off:]))
		end := off + 2 + n*12
		if end+4 > size {
			return fmt.Errorf("%w: IFD at %d overruns EXIF block", ErrMetadata, off)
		}

		for e := off + 2; e < end; e += 12 {
			tag := order.Uint16(b[e:])
			typ := order.Uint16(b[e+2:])
			count := uint64(order.Uint32(b[e+4:]))

			unit, ok := tiffTypeSize[typ]
			if !ok {
				return fmt.Errorf("%w: tag 0x%04X has unknown type %d", ErrMetadata, tag, typ)
			}
			valueLen := unit * count
			if valueLen > size {
				return fmt.Errorf("%w: tag 0x%04X count %d exceeds EXIF block", ErrMetadata, tag, count)
			}
			if valueLen > 4 {
				if valueOff := uint64(order.Uint32(b[e+8:])); valueOff+valueLen > size {
					return fmt.Errorf("%w: tag 0x%04X value out of range", ErrMetadata, tag)
				}
			}
			if subIFDTags[tag] && valueLen > 0 && valueLen <= 4 {
				pending = append(pending, ifdRef{off: uint64(order.Uint32(b[e+8:]))})
			}
		}

		if next := uint64(order.Uint32(b[end:])); ref.chain && next != 0 {
			pending = append(pending, ifdRef{off: next, chain: true})
		}
	}
	return nil
}
