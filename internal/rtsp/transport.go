package rtsp

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTransportHeader parses the RTSP Transport: header value (spec.md
// §4.4). Only the two forms the spec names are recognized; anything else
// is reported as unsupported so the caller can respond 461.
func ParseTransportHeader(value string) (Transport, error) {
	fields := strings.Split(value, ";")
	if len(fields) == 0 {
		return Transport{}, fmt.Errorf("rtsp: empty Transport header")
	}

	isTCP := strings.EqualFold(strings.TrimSpace(fields[0]), "RTP/AVP/TCP")
	isUDP := strings.EqualFold(strings.TrimSpace(fields[0]), "RTP/AVP") || strings.EqualFold(strings.TrimSpace(fields[0]), "RTP/AVP/UDP")

	if isTCP {
		for _, f := range fields[1:] {
			f = strings.TrimSpace(f)
			if strings.HasPrefix(f, "interleaved=") {
				chans := strings.TrimPrefix(f, "interleaved=")
				parts := strings.SplitN(chans, "-", 2)
				rtpCh, err := strconv.Atoi(parts[0])
				if err != nil {
					return Transport{}, fmt.Errorf("rtsp: invalid interleaved channel: %w", err)
				}
				rtcpCh := rtpCh + 1
				if len(parts) == 2 {
					if v, err := strconv.Atoi(parts[1]); err == nil {
						rtcpCh = v
					}
				}
				return Transport{
					Kind:        TransportTCPInterleaved,
					ChannelRTP:  byte(rtpCh),
					ChannelRTCP: byte(rtcpCh),
				}, nil
			}
		}
		return Transport{}, fmt.Errorf("rtsp: TCP transport missing interleaved parameter")
	}

	if isUDP {
		for _, f := range fields[1:] {
			f = strings.TrimSpace(f)
			if strings.HasPrefix(f, "client_port=") {
				ports := strings.TrimPrefix(f, "client_port=")
				parts := strings.SplitN(ports, "-", 2)
				rtpPort, err := strconv.Atoi(parts[0])
				if err != nil {
					return Transport{}, fmt.Errorf("rtsp: invalid client_port: %w", err)
				}
				rtcpPort := rtpPort + 1
				if len(parts) == 2 {
					if v, err := strconv.Atoi(parts[1]); err == nil {
						rtcpPort = v
					}
				}
				return Transport{
					Kind:     TransportUDPUnicast,
					RTPPort:  rtpPort,
					RTCPPort: rtcpPort,
				}, nil
			}
		}
		return Transport{}, fmt.Errorf("rtsp: UDP transport missing client_port parameter")
	}

	return Transport{}, fmt.Errorf("rtsp: unrecognized transport specifier %q", fields[0])
}

// String renders the Transport header this session's SETUP response
// should echo back.
func (t Transport) String() string {
	switch t.Kind {
	case TransportTCPInterleaved:
		return fmt.Sprintf("RTP/AVP/TCP;interleaved=%d-%d", t.ChannelRTP, t.ChannelRTCP)
	case TransportUDPUnicast:
		return fmt.Sprintf("RTP/AVP;unicast;client_port=%d-%d", t.RTPPort, t.RTCPPort)
	default:
		return ""
	}
}
