package rtsp

import (
	"bufio"
	"strings"
	"testing"
)

func TestReadRequestParsesLineAndHeaders(t *testing.T) {
	raw := "DESCRIBE rtsp://host/stream RTSP/1.0\r\nCSeq: 2\r\nAccept: application/sdp\r\n\r\n"
	req, err := ReadRequest(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if req.Method != MethodDescribe {
		t.Errorf("method = %v, want DESCRIBE", req.Method)
	}
	if req.CSeq != 2 {
		t.Errorf("CSeq = %d, want 2", req.CSeq)
	}
	if v, ok := req.Header("accept"); !ok || v != "application/sdp" {
		t.Errorf("Accept header = %q, %v", v, ok)
	}
}

func TestIsHTTPRequestLine(t *testing.T) {
	cases := map[string]bool{
		"GET /snapshot HTTP/1.0\r\n":  true,
		"HEAD /snapshot HTTP/1.0\r\n": true,
		"OPTIONS rtsp://x RTSP/1.0\r\n": false,
	}
	for line, want := range cases {
		if got := IsHTTPRequestLine(line); got != want {
			t.Errorf("IsHTTPRequestLine(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestPeekInterleavedDetectsDollarFrame(t *testing.T) {
	raw := string([]byte{'$', 0x00, 0x00, 0x05}) + "hello" + "OPTIONS * RTSP/1.0\r\n\r\n"
	r := bufio.NewReader(strings.NewReader(raw))

	hdr, ok, err := PeekInterleaved(r)
	if err != nil {
		t.Fatalf("PeekInterleaved: %v", err)
	}
	if !ok {
		t.Fatal("expected interleaved frame to be detected")
	}
	if hdr.Channel != 0 || hdr.Length != 5 {
		t.Fatalf("hdr = %+v, want channel 0 length 5", hdr)
	}

	payload := make([]byte, hdr.Length)
	if _, err := r.Read(payload); err != nil {
		t.Fatalf("reading payload: %v", err)
	}
	if string(payload) != "hello" {
		t.Fatalf("payload = %q, want %q", payload, "hello")
	}

	req, err := ReadRequest(r)
	if err != nil {
		t.Fatalf("ReadRequest after interleaved frame: %v", err)
	}
	if req.Method != MethodOptions {
		t.Fatalf("method = %v, want OPTIONS", req.Method)
	}
}

func TestPeekInterleavedFalseForRTSPLine(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("OPTIONS * RTSP/1.0\r\n\r\n"))
	_, ok, err := PeekInterleaved(r)
	if err != nil {
		t.Fatalf("PeekInterleaved: %v", err)
	}
	if ok {
		t.Fatal("expected no interleaved frame for a plain RTSP request")
	}
}
