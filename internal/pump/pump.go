// Package pump implements the Stream Pump (SP): the per-cycle loop that
// waits for a fresh frame, packetizes it once, and dispatches the resulting
// RTP fragments to every PLAYING session — UDP unicast or TCP interleaved —
// without ever holding the client table lock during I/O.
package pump

import (
	"fmt"
	"net"

	"github.com/pion/rtp"
	"go.uber.org/zap"

	"mjpeg-core/internal/frame"
	"mjpeg-core/internal/rtpjpeg"
	"mjpeg-core/internal/rtsp"
)

const (
	payloadTypeJPEG = 26
	rtpClockRate    = 90000
	maxJPEGPayload  = 1400 // leaves room under a 1500-byte Ethernet MTU
)

// Config configures pump cadence and fragmentation size.
type Config struct {
	MaxPayloadSize int
	FPSHint        int
}

// DefaultConfig matches spec.md §4.6's stated defaults.
func DefaultConfig(fpsHint int) Config {
	if fpsHint < 1 {
		fpsHint = 30
	}
	return Config{MaxPayloadSize: maxJPEGPayload, FPSHint: fpsHint}
}

// Pump drives the wait-fresh / packetize-once / fan-out cycle against a
// Frame Slot and a Server's client table.
type Pump struct {
	cfg    Config
	slot   *frame.Slot
	table  *rtsp.ClientTable
	logger *zap.Logger

	udpConn *net.UDPConn
	lastSeq uint32
}

// New constructs a Pump. udpConn is the server's outbound UDP socket used
// for unicast delivery; it may be shared across all sessions since each
// WriteToUDP call names its own destination.
func New(cfg Config, slot *frame.Slot, table *rtsp.ClientTable, udpConn *net.UDPConn, logger *zap.Logger) *Pump {
	return &Pump{cfg: cfg, slot: slot, table: table, udpConn: udpConn, logger: logger, lastSeq: frame.NeverSeen()}
}

// Run blocks, executing the pump cycle until the Frame Slot shuts down.
func (p *Pump) Run() {
	for {
		fr, seq, kind := p.slot.WaitFresh(p.lastSeq, 0)
		switch kind {
		case frame.Shutdown:
			p.logger.Info("stream pump stopping: frame slot shut down")
			return
		case frame.Timeout:
			continue
		}
		p.lastSeq = seq
		p.cycle(fr)
	}
}

// cycle executes one full per-frame dispatch (spec.md §4.6 steps 2-7).
func (p *Pump) cycle(fr frame.Frame) {
	rtpFrame, fragments, err := rtpjpeg.Packetize(fr.Payload, p.cfg.MaxPayloadSize)
	if err != nil {
		p.logger.Warn("dropping frame: packetize failed", zap.Error(err))
		return
	}

	sessions := p.table.SnapshotPlaying()
	if len(sessions) == 0 {
		return
	}

	tsIncrement := uint32(rtpClockRate / p.cfg.FPSHint)
	width8, height8 := byte(rtpFrame.Width/8), byte(rtpFrame.Height/8)

	for _, sess := range sessions {
		if sess.Failed() {
			continue
		}
		sent := p.dispatch(sess, fragments, width8, height8)
		p.table.AdvanceDelivered(sess.ID, sent, tsIncrement)
	}
}

// dispatch sends every fragment of one frame to a single session over its
// bound transport, returning how many fragments transmitted successfully.
// A write failure marks the session failed and stops further fragments to
// it for this frame, per spec.md §4.6's at-most-once-per-frame guarantee.
//
// Per spec.md §4.4, header bytes 6-7 (width/height in 8-pixel blocks) are
// pinned to the session's DESCRIBE-time CachedWidth8/CachedHeight8 rather
// than the live frame's dimensions, so a mid-stream resolution change never
// flickers a session's advertised size until it re-DESCRIBEs. fallbackWidth8/
// fallbackHeight8 (the live frame's dimensions) cover a session that somehow
// reached PLAYING without ever DESCRIBE-ing.
func (p *Pump) dispatch(sess *rtsp.Session, fragments []rtpjpeg.Fragment, fallbackWidth8, fallbackHeight8 byte) int {
	width8, height8 := sess.CachedWidth8, sess.CachedHeight8
	if width8 == 0 {
		width8 = fallbackWidth8
	}
	if height8 == 0 {
		height8 = fallbackHeight8
	}

	sent := 0
	for _, frag := range fragments {
		hdr := frag.Header
		hdr[6] = width8
		hdr[7] = height8

		packet := rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				Marker:         frag.Marker,
				PayloadType:    payloadTypeJPEG,
				SequenceNumber: sess.RTPSeq + uint16(sent),
				Timestamp:      sess.RTPTS,
				SSRC:           sess.SSRC,
			},
			Payload: append(append([]byte{}, hdr[:]...), frag.Payload...),
		}

		raw, err := packet.Marshal()
		if err != nil {
			p.logger.Error("marshal RTP packet failed", zap.Error(err))
			sess.MarkFailed()
			return sent
		}

		if err := p.send(sess, raw); err != nil {
			p.logger.Debug("session write failed, marking for removal",
				zap.String("session", sess.ID), zap.Error(err))
			sess.MarkFailed()
			return sent
		}
		sent++
	}
	return sent
}

// send writes one RTP packet to sess's bound transport: a plain UDP
// datagram for unicast sessions, or a `$`-framed write over the shared
// control connection for TCP-interleaved sessions (spec.md §4.6).
func (p *Pump) send(sess *rtsp.Session, raw []byte) error {
	switch sess.Transport.Kind {
	case rtsp.TransportUDPUnicast:
		host, _, err := net.SplitHostPort(sess.PeerAddr.String())
		if err != nil {
			return fmt.Errorf("pump: bad peer address %q: %w", sess.PeerAddr, err)
		}
		dst := &net.UDPAddr{IP: net.ParseIP(host), Port: sess.Transport.RTPPort}
		_, err = p.udpConn.WriteToUDP(raw, dst)
		return err

	case rtsp.TransportTCPInterleaved:
		header := []byte{'$', sess.Transport.ChannelRTP, byte(len(raw) >> 8), byte(len(raw))}
		_, err := sess.WriteLocked(append(header, raw...))
		return err

	default:
		return fmt.Errorf("pump: session %s has no bound transport", sess.ID)
	}
}
