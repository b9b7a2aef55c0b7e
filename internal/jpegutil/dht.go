package jpegutil

// StandardDHT is the canonical JFIF Annex K Huffman table segment (DC/AC,
// luma/chroma), the same four tables effectively every baseline JPEG
// encoder emits. Capture devices that omit DHT (emitting "abbreviated"
// MJPEG relying on an implicit default) need exactly this segment spliced
// back in before the entropy-coded data can be decoded standalone, per
// spec.md §4.2's Huffman-injection requirement.
//
// The bytes are the marker-body content of a single DHT segment (excluding
// the 0xFFC4 marker and the 2-byte length field, which InjectDHT computes).
var StandardDHT = buildStandardDHT()

func buildStandardDHT() []byte {
	type table struct {
		class, id byte
		counts    [16]byte
		values    []byte
	}

	tables := []table{
		{ // DC luminance
			class: 0, id: 0,
			counts: [16]byte{0, 1, 5, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0},
			values: []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		},
		{ // DC chrominance
			class: 0, id: 1,
			counts: [16]byte{0, 3, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0},
			values: []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		},
		{ // AC luminance
			class: 1, id: 0,
			counts: [16]byte{0, 2, 1, 3, 3, 2, 4, 3, 5, 5, 4, 4, 0, 0, 1, 0x7d},
			values: []byte{
				0x01, 0x02, 0x03, 0x00, 0x04, 0x11, 0x05, 0x12,
				0x21, 0x31, 0x41, 0x06, 0x13, 0x51, 0x61, 0x07,
				0x22, 0x71, 0x14, 0x32, 0x81, 0x91, 0xa1, 0x08,
				0x23, 0x42, 0xb1, 0xc1, 0x15, 0x52, 0xd1, 0xf0,
				0x24, 0x33, 0x62, 0x72, 0x82, 0x09, 0x0a, 0x16,
				0x17, 0x18, 0x19, 0x1a, 0x25, 0x26, 0x27, 0x28,
				0x29, 0x2a, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39,
				0x3a, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48, 0x49,
				0x4a, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59,
				0x5a, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69,
				0x6a, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79,
				0x7a, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89,
				0x8a, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98,
				0x99, 0x9a, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7,
				0xa8, 0xa9, 0xaa, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6,
				0xb7, 0xb8, 0xb9, 0xba, 0xc2, 0xc3, 0xc4, 0xc5,
				0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xd2, 0xd3, 0xd4,
				0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda, 0xe1, 0xe2,
				0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0xea,
				0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
				0xf9, 0xfa,
			},
		},
		{ // AC chrominance
			class: 1, id: 1,
			counts: [16]byte{0, 2, 1, 2, 4, 4, 3, 4, 7, 5, 4, 4, 0, 1, 2, 0x77},
			values: []byte{
				0x00, 0x01, 0x02, 0x03, 0x11, 0x04, 0x05, 0x21,
				0x31, 0x06, 0x12, 0x41, 0x51, 0x07, 0x61, 0x71,
				0x13, 0x22, 0x32, 0x81, 0x08, 0x14, 0x42, 0x91,
				0xa1, 0xb1, 0xc1, 0x09, 0x23, 0x33, 0x52, 0xf0,
				0x15, 0x62, 0x72, 0xd1, 0x0a, 0x16, 0x24, 0x34,
				0xe1, 0x25, 0xf1, 0x17, 0x18, 0x19, 0x1a, 0x26,
				0x27, 0x28, 0x29, 0x2a, 0x35, 0x36, 0x37, 0x38,
				0x39, 0x3a, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48,
				0x49, 0x4a, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58,
				0x59, 0x5a, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68,
				0x69, 0x6a, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78,
				0x79, 0x7a, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87,
				0x88, 0x89, 0x8a, 0x92, 0x93, 0x94, 0x95, 0x96,
				0x97, 0x98, 0x99, 0x9a, 0xa2, 0xa3, 0xa4, 0xa5,
				0xa6, 0xa7, 0xa8, 0xa9, 0xaa, 0xb2, 0xb3, 0xb4,
				0xb5, 0xb6, 0xb7, 0xb8, 0xb9, 0xba, 0xc2, 0xc3,
				0xc4, 0xc5, 0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xd2,
				0xd3, 0xd4, 0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda,
				0xe2, 0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9,
				0xea, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
				0xf9, 0xfa,
			},
		},
	}

	var body []byte
	for _, t := range tables {
		body = append(body, t.class<<4|t.id)
		body = append(body, t.counts[:]...)
		body = append(body, t.values...)
	}
	return body
}

// InjectDHT splices StandardDHT as a new marker segment immediately before
// the SOF0 marker of data, if and only if data contains no DHT segment of
// its own. It returns data unchanged (same slice) when a DHT is already
// present.
func InjectDHT(data []byte) ([]byte, error) {
	if HasDHT(data) {
		return data, nil
	}

	sof0Offset, err := findSOF0Offset(data)
	if err != nil {
		return nil, err
	}

	segLen := len(StandardDHT) + 2
	dht := make([]byte, 0, 4+len(StandardDHT))
	dht = append(dht, markerMarkerPrefix, markerDHT, byte(segLen>>8), byte(segLen&0xFF))
	dht = append(dht, StandardDHT...)

	out := make([]byte, 0, len(data)+len(dht))
	out = append(out, data[:sof0Offset]...)
	out = append(out, dht...)
	out = append(out, data[sof0Offset:]...)
	return out, nil
}

// findSOF0Offset returns the byte offset of the 0xFF marker byte that
// begins the SOF0 segment.
func findSOF0Offset(data []byte) (int, error) {
	if !HasSOI(data) {
		return 0, ErrNoSOI
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
		if marker == markerSOF0 {
			return i, nil
		}
		if marker == markerSOI || (marker >= markerRST0 && marker <= markerRST7) || marker == 0x01 {
			i += 2
			continue
		}
		if i+4 > len(data) {
			return 0, ErrTruncated
		}
		segLen := int(data[i+2])<<8 | int(data[i+3])
		if segLen < 2 || i+2+segLen > len(data) {
			return 0, ErrTruncated
		}
		i += 2 + segLen
	}
	return 0, ErrNoSOF0
}
