package rtsp

import "fmt"

// SDPParams is the set of values the fixed SDP template (spec.md §6)
// interpolates.
type SDPParams struct {
	PeerIP string
	Width  int
	Height int
	FPS    int
}

// BuildSDP renders the DESCRIBE response body. Width/Height/FPS should come
// from the most recently cached FS frame, or sensible defaults if none has
// been published yet (spec.md §4.4).
func BuildSDP(p SDPParams) string {
	const t = 0
	return fmt.Sprintf(
		"v=0\r\n"+
			"o=- %d %d IN IP4 %s\r\n"+
			"s=MJPG Stream\r\n"+
			"t=0 0\r\n"+
			"m=video 0 RTP/AVP 26\r\n"+
			"c=IN IP4 0.0.0.0\r\n"+
			"a=rtpmap:26 JPEG/90000\r\n"+
			"a=fmtp:26 width=%d;height=%d\r\n"+
			"a=framerate:%d\r\n",
		t, t, p.PeerIP, p.Width, p.Height, p.FPS)
}

// DefaultWidth/DefaultHeight are the fallback dimensions advertised when no
// frame has been published yet (scenario 4, width/height flicker guard).
const (
	DefaultWidth  = 640
	DefaultHeight = 480
	DefaultFPS    = 30
)
