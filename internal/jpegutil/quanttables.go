package jpegutil

// ZigZag is the standard 64-entry permutation from JPEG natural
// (row-major) order to RFC 2435 zigzag order: ZigZag[i] is the zigzag
// position of natural-order index i. It is used by the Q>=128 inline
// quantization-table path (spec.md §4.3, "Quantization-table cache").
var ZigZag = [64]int{
	0, 1, 5, 6, 14, 15, 27, 28,
	2, 4, 7, 13, 16, 26, 29, 42,
	3, 8, 12, 17, 25, 30, 41, 43,
	9, 11, 18, 24, 31, 40, 44, 53,
	10, 19, 23, 32, 39, 45, 52, 54,
	20, 22, 33, 38, 46, 51, 55, 60,
	21, 34, 37, 47, 50, 56, 59, 61,
	35, 36, 48, 49, 57, 58, 62, 63,
}

// stdLuminance and stdChrominance are the IJG baseline (quality-50)
// quantization tables in natural (row-major) order, scaled per quality
// by ScaleQuantTable. These stand in for the original's embedded
// default-quality-75 tables; deriving them by the standard scaling formula
// is equivalent and avoids baking in a second, undocumented magic table.
var stdLuminance = [64]int{
	16, 11, 10, 16, 24, 40, 51, 61,
	12, 12, 14, 19, 26, 58, 60, 55,
	14, 13, 16, 24, 40, 57, 69, 56,
	14, 17, 22, 29, 51, 87, 80, 62,
	18, 22, 37, 56, 68, 109, 103, 77,
	24, 35, 55, 64, 81, 104, 113, 92,
	49, 64, 78, 87, 103, 121, 120, 101,
	72, 92, 95, 98, 112, 100, 103, 99,
}

var stdChrominance = [64]int{
	17, 18, 24, 47, 99, 99, 99, 99,
	18, 21, 26, 66, 99, 99, 99, 99,
	24, 26, 56, 99, 99, 99, 99, 99,
	47, 66, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
}

// ScaleQuantTable derives an 8-bit quantization table for the requested
// JPEG quality (1-100) from the IJG baseline table, matching the standard
// libjpeg scaling formula: scale = quality<50 ? 5000/quality : 200-2*quality,
// entry = clamp((base*scale+50)/100, 1, 255).
func ScaleQuantTable(base [64]int, quality int) [64]byte {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	var scale int
	if quality < 50 {
		scale = 5000 / quality
	} else {
		scale = 200 - 2*quality
	}

	var out [64]byte
	for i, v := range base {
		scaled := (v*scale + 50) / 100
		if scaled < 1 {
			scaled = 1
		}
		if scaled > 255 {
			scaled = 255
		}
		out[i] = byte(scaled)
	}
	return out
}

// DefaultLumaQuant75 and DefaultChromaQuant75 are the tables the baseline
// normalization step (spec.md §4.3 step 3) embeds at Q=75.
func DefaultLumaQuant75() [64]byte   { return ScaleQuantTable(stdLuminance, 75) }
func DefaultChromaQuant75() [64]byte { return ScaleQuantTable(stdChrominance, 75) }

// To8Bit converts a 16-bit DQT table entry to the 8-bit form the RTP/JPEG
// Q>=128 inline-table path requires, per spec.md's round(v/256) rule with
// zero replaced by one (zero is invalid in a JPEG quantization table).
func To8Bit(v16 int) byte {
	v := (v16 + 0x80) >> 8
	if v <= 0 {
		return 1
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// ToZigZag reorders a natural-order 64-entry quantization table into RFC
// 2435 zigzag order.
func ToZigZag(natural [64]byte) [64]byte {
	var out [64]byte
	for nat, zz := range ZigZag {
		out[zz] = natural[nat]
	}
	return out
}

// FromZigZag is the inverse of ToZigZag (RL2: the conversion is its own
// inverse under the natural-order permutation).
func FromZigZag(zigzag [64]byte) [64]byte {
	var out [64]byte
	for nat, zz := range ZigZag {
		out[nat] = zigzag[zz]
	}
	return out
}

// DQTTables holds the two tables the RTP/JPEG profile cares about: luma
// (Tq=0) and chroma (Tq=1). Any additional table ids present in the JPEG
// are ignored, matching the profile's two-table model.
type DQTTables struct {
	Luma   [64]byte
	Chroma [64]byte
	HasLuma, HasChroma bool
}

// ExtractDQT walks DQT segments before SOS and caches the luma/chroma
// tables in zigzag order, converting 16-bit entries to 8-bit as needed.
// This feeds the Q>=128 inline-table path only; the default pump (Q=75,
// embedded standard tables) never calls it.
func ExtractDQT(data []byte) (DQTTables, error) {
	var tables DQTTables
	if !HasSOI(data) {
		return tables, ErrNoSOI
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
		if marker == markerSOI || (marker >= markerRST0 && marker <= markerRST7) || marker == 0x01 {
			i += 2
			continue
		}
		if i+4 > len(data) {
			return tables, ErrTruncated
		}
		segLen := int(data[i+2])<<8 | int(data[i+3])
		if segLen < 2 || i+2+segLen > len(data) {
			return tables, ErrTruncated
		}
		if marker == markerDQT {
			if err := parseDQTSegment(data[i+4:i+2+segLen], &tables); err != nil {
				return tables, err
			}
		}
		i += 2 + segLen
	}
	return tables, nil
}

func parseDQTSegment(payload []byte, tables *DQTTables) error {
	for len(payload) > 0 {
		pq := payload[0] >> 4
		tq := payload[0] & 0x0F
		payload = payload[1:]

		var natural [64]byte
		if pq == 0 {
			if len(payload) < 64 {
				return ErrTruncated
			}
			copy(natural[:], payload[:64])
			payload = payload[64:]
		} else {
			if len(payload) < 128 {
				return ErrTruncated
			}
			for k := 0; k < 64; k++ {
				v16 := int(payload[2*k])<<8 | int(payload[2*k+1])
				natural[k] = To8Bit(v16)
			}
			payload = payload[128:]
		}

		zz := ToZigZag(natural)
		switch tq {
		case 0:
			tables.Luma = zz
			tables.HasLuma = true
		case 1:
			tables.Chroma = zz
			tables.HasChroma = true
		}
	}
	return nil
}
