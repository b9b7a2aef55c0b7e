package rtsp

import "testing"

func TestParseTransportHeaderTCPInterleaved(t *testing.T) {
	tr, err := ParseTransportHeader("RTP/AVP/TCP;interleaved=0-1")
	if err != nil {
		t.Fatalf("ParseTransportHeader: %v", err)
	}
	if tr.Kind != TransportTCPInterleaved {
		t.Fatalf("kind = %v, want TCP interleaved", tr.Kind)
	}
	if tr.ChannelRTP != 0 || tr.ChannelRTCP != 1 {
		t.Fatalf("channels = %d-%d, want 0-1", tr.ChannelRTP, tr.ChannelRTCP)
	}
}

func TestParseTransportHeaderUDPUnicast(t *testing.T) {
	tr, err := ParseTransportHeader("RTP/AVP;unicast;client_port=5004-5005")
	if err != nil {
		t.Fatalf("ParseTransportHeader: %v", err)
	}
	if tr.Kind != TransportUDPUnicast {
		t.Fatalf("kind = %v, want UDP unicast", tr.Kind)
	}
	if tr.RTPPort != 5004 || tr.RTCPPort != 5005 {
		t.Fatalf("ports = %d-%d, want 5004-5005", tr.RTPPort, tr.RTCPPort)
	}
}

func TestParseTransportHeaderUnsupported(t *testing.T) {
	if _, err := ParseTransportHeader("RTP/AVP/UDP;multicast"); err == nil {
		t.Fatal("expected error for multicast-only transport")
	}
}

func TestTransportStringRoundTrip(t *testing.T) {
	tr := Transport{Kind: TransportUDPUnicast, RTPPort: 5004, RTCPPort: 5005}
	reparsed, err := ParseTransportHeader(tr.String())
	if err != nil {
		t.Fatalf("ParseTransportHeader(%q): %v", tr.String(), err)
	}
	if reparsed != tr {
		t.Fatalf("round trip mismatch: %+v != %+v", reparsed, tr)
	}
}
