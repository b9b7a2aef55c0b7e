// Package rtpjpeg implements the RTP-JPEG Packetizer: a pure function that
// normalizes an arbitrary JPEG frame into RFC 2435-compliant RTP payload
// fragments. It holds no network state; the RTSP Stream Pump calls
// Packetize once per frame and dispatches the resulting fragments itself.
package rtpjpeg

import (
	"errors"
	"fmt"

	"mjpeg-core/internal/jpegutil"
)

// JPEGHeaderSize is the fixed size of the RTP/JPEG-specific header that
// precedes every fragment's payload (RFC 2435 Section 3.1).
const JPEGHeaderSize = 8

// Quality is the quantization quality embedded by the baseline
// normalization step. spec.md §4.3 step 3 mandates Q=75 with standard
// Huffman and quantization tables carried in the JPEG payload itself
// (the Q<128 "tables are in the payload" convention) rather than the
// Q>=128 inline-DQT path; see DESIGN.md for why both paths exist in this
// package but only this one is ever invoked by the Stream Pump.
const Quality = 75

var (
	ErrEmptyJPEG = errors.New("rtpjpeg: empty JPEG data")
)

// Frame is the ephemeral packetization context derived from one captured
// JPEG, matching spec.md §3's RtpJpegFrame.
type Frame struct {
	BaselineJPEG []byte
	Width        int
	Height       int
	Subsampling  int // jpegutil.Type422 / Type420 / Type444Gray
	TrimmedLen   int
}

// Fragment is one RTP payload fragment: the 8-byte RTP/JPEG header plus the
// corresponding slice of BaselineJPEG.
type Fragment struct {
	Header         [JPEGHeaderSize]byte
	Payload        []byte
	FragmentOffset uint32
	Marker         bool
}

// Packetize runs spec.md §4.3's full algorithm: header probe, subsampling
// classification, baseline+DHT normalization at Quality, EOI trim, and
// fragmentation at maxPayloadSize. Malformed input (no SOI, no SOF0,
// unsupported subsampling, zero-length) is rejected without emitting any
// fragment, matching the packetizer's failure semantics.
func Packetize(jpegData []byte, maxPayloadSize int) (Frame, []Fragment, error) {
	if len(jpegData) == 0 {
		return Frame{}, nil, ErrEmptyJPEG
	}
	if maxPayloadSize <= 0 {
		return Frame{}, nil, fmt.Errorf("rtpjpeg: maxPayloadSize must be positive, got %d", maxPayloadSize)
	}

	sof, err := jpegutil.ParseSOF0(jpegData)
	if err != nil {
		return Frame{}, nil, fmt.Errorf("rtpjpeg: header probe failed: %w", err)
	}
	if sof.Width%8 != 0 || sof.Height%8 != 0 {
		return Frame{}, nil, fmt.Errorf("rtpjpeg: dimensions %dx%d not divisible by 8", sof.Width, sof.Height)
	}

	subsampling, err := jpegutil.ClassifySubsampling(sof.Components)
	if err != nil {
		return Frame{}, nil, fmt.Errorf("rtpjpeg: %w", err)
	}

	normalized, err := jpegutil.Normalize(jpegData)
	if err != nil {
		return Frame{}, nil, fmt.Errorf("rtpjpeg: baseline normalization failed: %w", err)
	}

	trimmed, err := jpegutil.TrimToEOI(normalized)
	if err != nil {
		return Frame{}, nil, fmt.Errorf("rtpjpeg: EOI trim failed: %w", err)
	}

	frame := Frame{
		BaselineJPEG: trimmed,
		Width:        sof.Width,
		Height:       sof.Height,
		Subsampling:  subsampling,
		TrimmedLen:   len(trimmed),
	}

	fragments := fragment(trimmed, maxPayloadSize, byte(subsampling), byte(sof.Width/8), byte(sof.Height/8))
	return frame, fragments, nil
}

func fragment(payload []byte, maxPayloadSize int, jpegType, width8, height8 byte) []Fragment {
	n := (len(payload) + maxPayloadSize - 1) / maxPayloadSize
	if n == 0 {
		n = 1
	}
	fragments := make([]Fragment, 0, n)

	offset := 0
	fragOffset := uint32(0)
	for offset < len(payload) {
		size := maxPayloadSize
		if offset+size > len(payload) {
			size = len(payload) - offset
		}
		last := offset+size >= len(payload)

		var hdr [JPEGHeaderSize]byte
		hdr[0] = 0 // type-specific: 0, no restart markers
		hdr[1] = byte(fragOffset >> 16)
		hdr[2] = byte(fragOffset >> 8)
		hdr[3] = byte(fragOffset)
		hdr[4] = jpegType
		hdr[5] = Quality
		hdr[6] = width8
		hdr[7] = height8

		fragments = append(fragments, Fragment{
			Header:         hdr,
			Payload:        payload[offset : offset+size],
			FragmentOffset: fragOffset,
			Marker:         last,
		})

		fragOffset += uint32(size)
		offset += size
	}

	return fragments
}
