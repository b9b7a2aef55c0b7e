package jpegutil

import "errors"

// ErrUnsupportedSubsampling is returned when the component sampling
// factors cannot be expressed as an RFC 2435 Type without the restart
// markers extension.
var ErrUnsupportedSubsampling = errors.New("jpegutil: subsampling not representable in RFC 2435")

// RFC 2435 Type codes. Note: this numbering follows spec.md's explicit
// table (Type 0 = 4:2:2, Type 1 = 4:2:0), which is the reverse of the
// convention used by some reference decoders' internal classification
// helpers — see DESIGN.md for why spec.md's table is authoritative here.
const (
	Type422      = 0
	Type420      = 1
	Type444Gray  = 3
)

// ClassifySubsampling maps a SOF0 component list to an RFC 2435 Type code
// following spec.md §4.3 step 2.
func ClassifySubsampling(comps []Component) (int, error) {
	switch len(comps) {
	case 1:
		return Type444Gray, nil
	case 3:
		y, cb, cr := comps[0], comps[1], comps[2]
		if cb.Hs == 1 && cb.Vs == 1 && cr.Hs == 1 && cr.Vs == 1 {
			switch {
			case y.Hs == 2 && y.Vs == 1:
				return Type422, nil
			case y.Hs == 2 && y.Vs == 2:
				return Type420, nil
			case y.Hs == 1 && y.Vs == 1:
				return Type444Gray, nil
			}
		}
		return 0, ErrUnsupportedSubsampling
	default:
		return 0, ErrUnsupportedSubsampling
	}
}
