package jpegutil

// Normalize rewrites the DQT segments of a baseline JPEG to the standard
// Q=75 luma/chroma tables and ensures a DHT segment is present, matching
// spec.md §4.3 step 3 ("normalize to baseline + standard DHT"). Segments
// other than DQT/DHT are passed through unchanged; this is a marker-level
// rewrite, not a re-compression, so pixel data is untouched and only valid
// when the source already used 8-bit quantization tables with the same
// table ids this function writes (table 0 = luma, table 1 = chroma).
func Normalize(data []byte) ([]byte, error) {
	if !HasSOI(data) {
		return nil, ErrNoSOI
	}

	luma := DefaultLumaQuant75()
	chroma := DefaultChromaQuant75()
	lumaZigZag := ToZigZag(luma)
	chromaZigZag := ToZigZag(chroma)

	out := make([]byte, 0, len(data)+256)
	i := 2
	out = append(out, data[:2]...)

	for i+4 <= len(data) {
		if data[i] != markerMarkerPrefix {
			out = append(out, data[i])
			i++
			continue
		}
		marker := data[i+1]
		if marker == 0x00 || marker == markerMarkerPrefix {
			out = append(out, data[i])
			i++
			continue
		}
		if marker == markerSOS {
			break
		}
		if marker == markerSOI || (marker >= markerRST0 && marker <= markerRST7) || marker == 0x01 {
			out = append(out, data[i], data[i+1])
			i += 2
			continue
		}
		if i+4 > len(data) {
			return nil, ErrTruncated
		}
		segLen := int(data[i+2])<<8 | int(data[i+3])
		if segLen < 2 || i+2+segLen > len(data) {
			return nil, ErrTruncated
		}

		if marker == markerDQT {
			out = append(out, dqtSegment(lumaZigZag, chromaZigZag)...)
			i += 2 + segLen
			continue
		}

		out = append(out, data[i:i+2+segLen]...)
		i += 2 + segLen
	}

	if !HasDHT(out) {
		var err error
		out, err = InjectDHT(out)
		if err != nil {
			return nil, err
		}
	}

	out = append(out, data[i:]...)
	return out, nil
}

func dqtSegment(luma, chroma [64]byte) []byte {
	segLen := 2 + (1+64)*2
	seg := make([]byte, 0, 4+130)
	seg = append(seg, markerMarkerPrefix, markerDQT, byte(segLen>>8), byte(segLen&0xFF))
	seg = append(seg, 0x00) // Pq=0, Tq=0 (luma)
	seg = append(seg, luma[:]...)
	seg = append(seg, 0x01) // Pq=0, Tq=1 (chroma)
	seg = append(seg, chroma[:]...)
	return seg
}
