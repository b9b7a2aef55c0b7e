package rtsp

import "fmt"

// ServerName is emitted in every RTSP response's Server header (spec.md §6).
const ServerName = "MJPG-Streamer-Core/1"

// WriteStatus writes a status-only response (no body), echoing CSeq.
func WriteStatus(s *Session, cseq int, code StatusCode, extraHeaders ...string) error {
	resp := fmt.Sprintf("RTSP/1.0 %d %s\r\nCSeq: %d\r\nServer: %s\r\n", code, code.Reason(), cseq, ServerName)
	for _, h := range extraHeaders {
		resp += h + "\r\n"
	}
	resp += "\r\n"
	_, err := s.WriteLocked([]byte(resp))
	return err
}

// WriteDescribe writes the DESCRIBE response carrying an SDP body.
func WriteDescribe(s *Session, cseq int, sdp string) error {
	resp := fmt.Sprintf(
		"RTSP/1.0 200 OK\r\nCSeq: %d\r\nServer: %s\r\nContent-Type: application/sdp\r\nContent-Length: %d\r\n\r\n%s",
		cseq, ServerName, len(sdp), sdp)
	_, err := s.WriteLocked([]byte(resp))
	return err
}

// WriteSetup writes the SETUP response carrying the bound transport and
// assigned session id.
func WriteSetup(s *Session, cseq int, sessionID string, transport Transport) error {
	resp := fmt.Sprintf(
		"RTSP/1.0 200 OK\r\nCSeq: %d\r\nServer: %s\r\nSession: %s\r\nTransport: %s\r\n\r\n",
		cseq, ServerName, sessionID, transport.String())
	_, err := s.WriteLocked([]byte(resp))
	return err
}

// WritePlay writes the PLAY response carrying RTP-Info.
func WritePlay(s *Session, cseq int, sessionID, rtpInfoURL string) error {
	resp := fmt.Sprintf(
		"RTSP/1.0 200 OK\r\nCSeq: %d\r\nServer: %s\r\nSession: %s\r\nRTP-Info: url=%s;seq=%d;rtptime=%d\r\n\r\n",
		cseq, ServerName, sessionID, rtpInfoURL, s.RTPSeq, s.RTPTS)
	_, err := s.WriteLocked([]byte(resp))
	return err
}
