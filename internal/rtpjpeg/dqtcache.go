package rtpjpeg

import "mjpeg-core/internal/jpegutil"

// InlineTables holds the Q>=128 inline quantization-table payload that
// precedes fragment 0's JPEG data when the RTP/JPEG profile signals "tables
// follow in this packet" instead of "tables are the well-known Q<128 set".
// spec.md §4.3's quantization-table-cache paragraph requires this path to
// exist for implementations that choose it, but the default Stream Pump
// never calls CacheQuantTables — it always uses the embedded-tables path
// in Packetize. See DESIGN.md for why both paths are kept.
type InlineTables struct {
	MBZ       byte // must-be-zero
	Precision byte
	Length    uint16
	Luma      [64]byte
	Chroma    [64]byte
}

// CacheQuantTables extracts the DQT segments of a JPEG and returns them in
// the form an RTP/JPEG Q>=128 sender would prepend to its first fragment.
func CacheQuantTables(jpegData []byte) (InlineTables, error) {
	tables, err := jpegutil.ExtractDQT(jpegData)
	if err != nil {
		return InlineTables{}, err
	}
	return InlineTables{
		MBZ:       0,
		Precision: 0,
		Length:    128,
		Luma:      tables.Luma,
		Chroma:    tables.Chroma,
	}, nil
}

// Marshal renders the inline quantization header as it would appear on the
// wire: MBZ(1) Precision(1) Length(2-be) followed by Length bytes of
// concatenated luma+chroma tables.
func (t InlineTables) Marshal() []byte {
	out := make([]byte, 4, 4+int(t.Length))
	out[0] = t.MBZ
	out[1] = t.Precision
	out[2] = byte(t.Length >> 8)
	out[3] = byte(t.Length)
	out = append(out, t.Luma[:]...)
	out = append(out, t.Chroma[:]...)
	return out
}
