package jpegutil

import "testing"

func TestZigZagRoundTrip(t *testing.T) {
	// RL2: DQT->zigzag conversion is its own inverse under the natural-order
	// permutation.
	var natural [64]byte
	for i := range natural {
		natural[i] = byte(i + 1)
	}
	zz := ToZigZag(natural)
	back := FromZigZag(zz)
	if back != natural {
		t.Fatalf("round trip mismatch: got %v, want %v", back, natural)
	}
}

func TestTo8Bit(t *testing.T) {
	cases := []struct {
		in   int
		want byte
	}{
		{0, 1},
		{1, 1},
		{256, 1},
		{512, 2},
		{0xFFFF, 255},
	}
	for _, c := range cases {
		if got := To8Bit(c.in); got != c.want {
			t.Errorf("To8Bit(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestScaleQuantTableQuality75(t *testing.T) {
	luma := DefaultLumaQuant75()
	for _, v := range luma {
		if v == 0 {
			t.Fatal("quantization table entry must never be zero")
		}
	}
	chroma := DefaultChromaQuant75()
	for _, v := range chroma {
		if v == 0 {
			t.Fatal("quantization table entry must never be zero")
		}
	}
}

func TestExtractDQT(t *testing.T) {
	var natural [64]byte
	for i := range natural {
		natural[i] = byte(i + 10)
	}
	segLen := 2 + 2*65
	data := []byte{markerMarkerPrefix, markerSOI}
	data = append(data, markerMarkerPrefix, markerDQT, byte(segLen>>8), byte(segLen&0xFF))
	data = append(data, 0x00)
	data = append(data, natural[:]...)
	data = append(data, 0x01)
	data = append(data, natural[:]...)
	data = append(data, markerMarkerPrefix, markerSOS, 0x00, 0x02, 0xAA, 0xBB)

	tables, err := ExtractDQT(data)
	if err != nil {
		t.Fatalf("ExtractDQT: %v", err)
	}
	if !tables.HasLuma || !tables.HasChroma {
		t.Fatal("expected both luma and chroma tables to be found")
	}
	if tables.Luma != ToZigZag(natural) {
		t.Fatal("luma table not in expected zigzag order")
	}
}
