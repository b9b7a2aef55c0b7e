package rtsp

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"
)

func readAllFromPipe(t *testing.T, conn net.Conn) string {
	t.Helper()
	buf := make([]byte, 4096)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	return string(buf[:n])
}

func TestWriteStatusIncludesCSeqAndServer(t *testing.T) {
	sess, client := newTestSession("1")
	defer client.Close()

	go WriteStatus(sess, 7, StatusOK)

	resp := readAllFromPipe(t, client)
	if !strings.HasPrefix(resp, "RTSP/1.0 200 OK\r\n") {
		t.Fatalf("response = %q", resp)
	}
	if !strings.Contains(resp, "CSeq: 7\r\n") {
		t.Fatalf("missing CSeq line: %q", resp)
	}
	if !strings.Contains(resp, "Server: "+ServerName) {
		t.Fatalf("missing Server line: %q", resp)
	}
	if !strings.HasSuffix(resp, "\r\n\r\n") {
		t.Fatalf("response must end with blank line: %q", resp)
	}
}

func TestWriteDescribeSetsContentLength(t *testing.T) {
	sess, client := newTestSession("1")
	defer client.Close()

	sdp := BuildSDP(SDPParams{PeerIP: "127.0.0.1", Width: 640, Height: 480, FPS: 30})
	go WriteDescribe(sess, 2, sdp)

	resp := readAllFromPipe(t, client)
	reader := bufio.NewReader(strings.NewReader(resp))
	line, _ := reader.ReadString('\n')
	if !strings.HasPrefix(line, "RTSP/1.0 200 OK") {
		t.Fatalf("status line = %q", line)
	}
	if !strings.Contains(resp, "Content-Type: application/sdp\r\n") {
		t.Fatalf("missing Content-Type: %q", resp)
	}
	if !strings.HasSuffix(resp, sdp) {
		t.Fatalf("response body does not end with SDP: %q", resp)
	}
}

func TestWriteSetupEchoesTransportAndSession(t *testing.T) {
	sess, client := newTestSession("1")
	defer client.Close()

	transport := Transport{Kind: TransportTCPInterleaved, ChannelRTP: 0, ChannelRTCP: 1}
	go WriteSetup(sess, 3, "42", transport)

	resp := readAllFromPipe(t, client)
	if !strings.Contains(resp, "Session: 42\r\n") {
		t.Fatalf("missing Session line: %q", resp)
	}
	if !strings.Contains(resp, "Transport: "+transport.String()) {
		t.Fatalf("missing Transport line: %q", resp)
	}
}

func TestWritePlayIncludesRTPInfo(t *testing.T) {
	sess, client := newTestSession("1")
	defer client.Close()
	sess.RTPSeq = 10
	sess.RTPTS = 9000

	go WritePlay(sess, 4, sess.ID, "rtsp://host/stream")

	resp := readAllFromPipe(t, client)
	if !strings.Contains(resp, "seq=10") || !strings.Contains(resp, "rtptime=9000") {
		t.Fatalf("RTP-Info missing expected fields: %q", resp)
	}
}
