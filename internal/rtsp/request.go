package rtsp

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// Request is a parsed RTSP request line plus the headers this server acts
// on (spec.md §4.5).
type Request struct {
	Method  Method
	URI     string
	Version string
	CSeq    int
	Headers map[string]string
}

// Header looks up a header by ASCII-case-insensitive key.
func (r Request) Header(key string) (string, bool) {
	v, ok := r.Headers[strings.ToLower(key)]
	return v, ok
}

// ReadRequest reads one RTSP request from r, stopping at the blank line
// that terminates the header block (spec.md §4.5: "Read until CRLF CRLF").
func ReadRequest(r *bufio.Reader) (Request, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return Request{}, fmt.Errorf("rtsp: reading request line: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")

	parts := strings.Fields(line)
	if len(parts) != 3 {
		return Request{}, fmt.Errorf("rtsp: malformed request line %q", line)
	}

	req := Request{
		Method:  Method(strings.ToUpper(parts[0])),
		URI:     parts[1],
		Version: parts[2],
		Headers: make(map[string]string),
	}

	for {
		hline, err := r.ReadString('\n')
		if err != nil {
			return Request{}, fmt.Errorf("rtsp: reading headers: %w", err)
		}
		hline = strings.TrimRight(hline, "\r\n")
		if hline == "" {
			break
		}
		idx := strings.IndexByte(hline, ':')
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(hline[:idx]))
		val := strings.TrimSpace(hline[idx+1:])
		req.Headers[key] = val
	}

	if v, ok := req.Header("CSeq"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			req.CSeq = n
		}
	}

	return req, nil
}

// IsHTTPRequestLine reports whether the first line of a freshly accepted
// connection looks like an HTTP request rather than RTSP, so the Server
// can branch to HTTP snapshot handling on the same port (spec.md §4.5).
func IsHTTPRequestLine(line string) bool {
	for _, verb := range []string{"GET ", "HEAD ", "POST "} {
		if strings.HasPrefix(line, verb) {
			return true
		}
	}
	return false
}

// InterleavedFrameHeader is the 4-byte `$`-prefixed framing preceding a
// binary RTP/RTCP frame embedded in the RTSP control stream (spec.md §6).
type InterleavedFrameHeader struct {
	Channel byte
	Length  uint16
}

// PeekInterleaved reports whether the next byte on the stream begins an
// interleaved binary frame, returning its header if so. The caller must
// then read and discard exactly Length bytes without attempting to parse
// them as RTSP (spec.md §4.5: "never mis-parse as RTSP").
func PeekInterleaved(r *bufio.Reader) (InterleavedFrameHeader, bool, error) {
	b, err := r.Peek(4)
	if err != nil {
		return InterleavedFrameHeader{}, false, nil
	}
	if b[0] != '$' {
		return InterleavedFrameHeader{}, false, nil
	}
	if _, err := r.Discard(4); err != nil {
		return InterleavedFrameHeader{}, false, err
	}
	return InterleavedFrameHeader{
		Channel: b[1],
		Length:  uint16(b[2])<<8 | uint16(b[3]),
	}, true, nil
}
