// Package jpegutil provides the JPEG marker-level parsing the RTP-JPEG
// packetizer needs: SOF0 dimension/sampling probe, DQT extraction in RFC
// 2435 zigzag order, DHT presence detection and canonical-table injection,
// and EOI trimming. JPEG compression/decompression itself stays out of
// scope; these functions only walk marker segments of an already-encoded
// byte stream.
package jpegutil

import (
	"errors"
	"fmt"
)

// JPEG marker bytes this package cares about.
const (
	markerSOI = 0xD8
	markerEOI = 0xD9
	markerSOF0 = 0xC0
	markerDHT = 0xC4
	markerDQT = 0xDB
	markerSOS = 0xDA
	markerRST0 = 0xD0
	markerRST7 = 0xD7
	markerMarkerPrefix = 0xFF
)

var (
	ErrNoSOI    = errors.New("jpegutil: missing start-of-image marker")
	ErrNoSOF0   = errors.New("jpegutil: missing baseline SOF0 marker")
	ErrNoEOI    = errors.New("jpegutil: missing end-of-image marker")
	ErrTruncated = errors.New("jpegutil: truncated marker segment")
)

// Component describes one SOF0 component's sampling factors.
type Component struct {
	ID int
	Hs int // horizontal sampling factor
	Vs int // vertical sampling factor
	Tq int // quantization table selector
}

// SOF0 holds the fields the packetizer needs from the frame header.
type SOF0 struct {
	Width      int
	Height     int
	Components []Component
}

// HasSOI reports whether data begins with the SOI marker, allowing for
// leading marker padding (0xFF fill bytes), matching the original decoder's
// resync tolerance.
func HasSOI(data []byte) bool {
	i := skipFill(data, 0)
	return i+1 < len(data) && data[i] == markerMarkerPrefix && data[i+1] == markerSOI
}

// skipFill advances past any 0xFF fill bytes starting at i.
func skipFill(data []byte, i int) int {
	for i < len(data) && data[i] == markerMarkerPrefix && i+1 < len(data) && data[i+1] == markerMarkerPrefix {
		i++
	}
	return i
}

// ParseSOF0 walks marker segments from the start of data looking for a
// baseline SOF0 marker, returning pixel dimensions and per-component
// sampling factors. It stops scanning at SOS, matching the header-probe
// step of the packetizer algorithm.
func ParseSOF0(data []byte) (SOF0, error) {
	if !HasSOI(data) {
		return SOF0{}, ErrNoSOI
	}

	i := 2
	for i+4 <= len(data) {
		if data[i] != markerMarkerPrefix {
			i++
			continue
		}
		marker := data[i+1]
		if marker == 0x00 || marker == markerMarkerPrefix {
			i++
			continue
		}
		if marker == markerSOS {
			break
		}
		// Markers without a length field.
		if marker == markerSOI || (marker >= markerRST0 && marker <= markerRST7) || marker == 0x01 {
			i += 2
			continue
		}

		if i+4 > len(data) {
			return SOF0{}, ErrTruncated
		}
		segLen := int(data[i+2])<<8 | int(data[i+3])
		if segLen < 2 || i+2+segLen > len(data) {
			return SOF0{}, ErrTruncated
		}
		payload := data[i+4 : i+2+segLen]

		if marker == markerSOF0 {
			return parseSOF0Payload(payload)
		}

		i += 2 + segLen
	}

	return SOF0{}, ErrNoSOF0
}

func parseSOF0Payload(payload []byte) (SOF0, error) {
	// precision(1) height(2) width(2) ncomponents(1) then 3 bytes/component
	if len(payload) < 6 {
		return SOF0{}, ErrTruncated
	}
	height := int(payload[1])<<8 | int(payload[2])
	width := int(payload[3])<<8 | int(payload[4])
	nComp := int(payload[5])
	if nComp < 1 || nComp > 4 {
		return SOF0{}, fmt.Errorf("jpegutil: unsupported component count %d", nComp)
	}
	if len(payload) < 6+3*nComp {
		return SOF0{}, ErrTruncated
	}

	comps := make([]Component, nComp)
	for c := 0; c < nComp; c++ {
		b := payload[6+3*c:]
		comps[c] = Component{
			ID: int(b[0]),
			Hs: int(b[1] >> 4),
			Vs: int(b[1] & 0x0F),
			Tq: int(b[2]),
		}
	}

	return SOF0{Width: width, Height: height, Components: comps}, nil
}

// HasDHT reports whether a DHT segment appears anywhere before SOS.
func HasDHT(data []byte) bool {
	return findMarkerBeforeSOS(data, markerDHT) >= 0
}

// findMarkerBeforeSOS returns the offset of the first occurrence of marker
// before SOS, or -1 if absent or the stream is malformed.
func findMarkerBeforeSOS(data []byte, want byte) int {
	if !HasSOI(data) {
		return -1
	}
	i := 2
	for i+4 <= len(data) {
		if data[i] != markerMarkerPrefix {
			i++
			continue
		}
		marker := data[i+1]
		if marker == 0x00 || marker == markerMarkerPrefix {
			i++
			continue
		}
		if marker == markerSOS {
			return -1
		}
		if marker == markerSOI || (marker >= markerRST0 && marker <= markerRST7) || marker == 0x01 {
			i += 2
			continue
		}
		if i+4 > len(data) {
			return -1
		}
		segLen := int(data[i+2])<<8 | int(data[i+3])
		if segLen < 2 || i+2+segLen > len(data) {
			return -1
		}
		if marker == want {
			return i
		}
		i += 2 + segLen
	}
	return -1
}

// LastEOI returns the byte offset one past the last FF D9 marker found in
// data (i.e. the trimmed length). It scans backward from the end of data
// for the byte pair FF D9; restart markers and byte-stuffed 0xFF00
// sequences are not interpreted.
func LastEOI(data []byte) (int, error) {
	for i := len(data) - 2; i >= 0; i-- {
		if data[i] != markerMarkerPrefix {
			continue
		}
		if data[i+1] != markerEOI {
			continue
		}
		// A stuffed 0xFF 0x00 can never match here since D9 != 0x00; the
		// first FF D9 pair found from the end is taken as the EOI.
		return i + 2, nil
	}
	return 0, ErrNoEOI
}

// TrimToEOI discards any trailing bytes beyond the last EOI marker.
func TrimToEOI(data []byte) ([]byte, error) {
	end, err := LastEOI(data)
	if err != nil {
		return nil, err
	}
	return data[:end], nil
}
