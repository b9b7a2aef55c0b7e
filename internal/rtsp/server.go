package rtsp

import (
	"bufio"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"mjpeg-core/internal/frame"
)

// Config configures the RTSP Server / Accept Loop.
type Config struct {
	ListenAddr     string
	ReadTimeout    time.Duration // control-read inactivity timeout (spec.md §5)
	SendBufferSize int           // minimum SO_SNDBUF (spec.md §4.5)
	FPSHint        int           // used to derive rtp_ts increment on first PLAY
}

// DefaultConfig matches spec.md §4.5/§5's stated defaults.
func DefaultConfig(addr string) Config {
	return Config{
		ListenAddr:     addr,
		ReadTimeout:    5 * time.Second,
		SendBufferSize: 256 * 1024,
		FPSHint:        30,
	}
}

const rtpClockRate = 90000

// Server is the RTSP Server / Accept Loop (spec.md §4.5): it listens on a
// TCP port, accepts clients, and for each drives the Session Machine,
// optionally branching HTTP snapshot requests to httpFallback.
type Server struct {
	cfg          Config
	slot         *frame.Slot
	table        *ClientTable
	logger       *zap.Logger
	httpFallback http.Handler

	listener net.Listener
	nextID   uint64

	shutdown atomic.Bool
}

// NewServer constructs a Server bound to slot, dispatching any HTTP
// request that lands on the RTSP port to httpFallback (nil disables the
// convenience multiplex).
func NewServer(cfg Config, slot *frame.Slot, table *ClientTable, httpFallback http.Handler, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, slot: slot, table: table, httpFallback: httpFallback, logger: logger}
}

// Table returns the server's client table, for the Stream Pump to read.
func (srv *Server) Table() *ClientTable { return srv.table }

// Addr returns the server's bound listen address. Valid only after Serve
// has started listening; used by tests to discover an ephemeral port.
func (srv *Server) Addr() net.Addr {
	if srv.listener == nil {
		return nil
	}
	return srv.listener.Addr()
}

// Serve runs the accept loop until Close is called or listening fails.
func (srv *Server) Serve() error {
	ln, err := net.Listen("tcp", srv.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("rtsp: listen %s: %w", srv.cfg.ListenAddr, err)
	}
	srv.listener = ln
	srv.logger.Info("RTSP server listening", zap.String("addr", srv.cfg.ListenAddr))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if srv.shutdown.Load() {
				return nil
			}
			return fmt.Errorf("rtsp: accept: %w", err)
		}
		go srv.handleConnection(conn)
	}
}

// Close stops the accept loop and closes the control connection of every
// session in the client table. Connections that have not completed SETUP
// are not in the table and end on their own read timeout.
func (srv *Server) Close() error {
	srv.shutdown.Store(true)
	if srv.listener != nil {
		srv.listener.Close()
	}
	srv.table.mu.RLock()
	conns := make([]net.Conn, 0, len(srv.table.sessions))
	for _, s := range srv.table.sessions {
		if s.Conn != nil {
			conns = append(conns, s.Conn)
		}
	}
	srv.table.mu.RUnlock()
	for _, c := range conns {
		c.Close()
	}
	return nil
}

func (srv *Server) handleConnection(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
		tc.SetWriteBuffer(srv.cfg.SendBufferSize)
	}

	sessionID := strconv.FormatUint(atomic.AddUint64(&srv.nextID, 1), 10)
	sess := &Session{
		ID:       sessionID,
		Conn:     conn,
		PeerAddr: conn.RemoteAddr(),
		State:    StateInit,
	}

	reader := bufio.NewReader(conn)
	defer func() {
		srv.table.Remove(sessionID)
		conn.Close()
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(srv.cfg.ReadTimeout))

		peek, err := reader.Peek(8)
		if err != nil {
			return
		}

		if hdr, isInterleaved, err := PeekInterleaved(reader); err != nil {
			return
		} else if isInterleaved {
			if err := discardInterleaved(reader, hdr); err != nil {
				return
			}
			continue
		}

		if IsHTTPRequestLine(string(peek)) {
			srv.serveHTTPFallback(conn)
			return
		}

		req, err := ReadRequest(reader)
		if err != nil {
			return
		}

		if !srv.handleRequest(sess, req) {
			return
		}
	}
}

// discardInterleaved reads and drops exactly hdr.Length bytes, per spec.md
// §4.5's instruction to consume inbound interleaved frames without ever
// misparsing them as RTSP.
func discardInterleaved(r *bufio.Reader, hdr InterleavedFrameHeader) error {
	remaining := int(hdr.Length)
	buf := make([]byte, 4096)
	for remaining > 0 {
		n := len(buf)
		if remaining < n {
			n = remaining
		}
		read, err := r.Read(buf[:n])
		if err != nil {
			return err
		}
		remaining -= read
	}
	return nil
}

// handleRequest dispatches one parsed RTSP request through the session
// state machine. It returns false when the connection should close
// (TEARDOWN or an unrecoverable framing-level error).
func (srv *Server) handleRequest(sess *Session, req Request) bool {
	if sessionHdr, ok := req.Header("Session"); ok && sess.State != StateInit {
		if sessionHdr != sess.ID {
			WriteStatus(sess, req.CSeq, StatusSessionNotFound)
			return true
		}
	}

	next, status, handled := transition(sess.State, req.Method)
	if !handled && status == StatusNotImplemented {
		WriteStatus(sess, req.CSeq, StatusNotImplemented)
		return true
	}

	switch req.Method {
	case MethodOptions:
		WriteStatus(sess, req.CSeq, StatusOK, "Public: OPTIONS, DESCRIBE, SETUP, PLAY, PAUSE, TEARDOWN")
		return true

	case MethodDescribe:
		width, height := DefaultWidth, DefaultHeight
		if fr, ok := srv.slot.Snapshot(); ok {
			width, height = fr.Width, fr.Height
		}
		sess.CachedWidth8 = byte(width / 8)
		sess.CachedHeight8 = byte(height / 8)
		peerIP := hostOf(sess.PeerAddr)
		sdp := BuildSDP(SDPParams{PeerIP: peerIP, Width: width, Height: height, FPS: DefaultFPS})
		WriteDescribe(sess, req.CSeq, sdp)
		return true

	case MethodSetup:
		transportHdr, ok := req.Header("Transport")
		if !ok {
			WriteStatus(sess, req.CSeq, StatusUnsupportedTransport)
			return true
		}
		transport, err := ParseTransportHeader(transportHdr)
		if err != nil {
			WriteStatus(sess, req.CSeq, StatusUnsupportedTransport)
			return true
		}
		if sess.Transport.Kind != TransportNone && sess.State != StateReady {
			WriteStatus(sess, req.CSeq, StatusBadRequest)
			return true
		}
		sess.Transport = transport
		if sess.SSRC == 0 {
			sess.SSRC = rand.Uint32()
		}
		fpsHint := srv.cfg.FPSHint
		if fpsHint < 1 {
			fpsHint = 1
		}
		sess.TSIncrement = rtpClockRate / uint32(fpsHint)
		srv.table.Add(sess)
		srv.table.UpdateState(sess.ID, next)
		WriteSetup(sess, req.CSeq, sess.ID, transport)
		return true

	case MethodPlay:
		if !handled {
			WriteStatus(sess, req.CSeq, status)
			return true
		}
		if sess.State != StatePlaying && sess.RTPTS == 0 {
			sess.RTPTS = sess.TSIncrement
		}
		srv.table.UpdateState(sess.ID, next)
		url := fmt.Sprintf("rtsp://%s%s/stream", hostOf(sess.PeerAddr), "")
		WritePlay(sess, req.CSeq, sess.ID, url)
		return true

	case MethodPause:
		if !handled {
			WriteStatus(sess, req.CSeq, status)
			return true
		}
		srv.table.UpdateState(sess.ID, next)
		WriteStatus(sess, req.CSeq, StatusOK, fmt.Sprintf("Session: %s", sess.ID))
		return true

	case MethodTeardown:
		WriteStatus(sess, req.CSeq, StatusOK, fmt.Sprintf("Session: %s", sess.ID))
		srv.table.Remove(sess.ID)
		return false

	default:
		WriteStatus(sess, req.CSeq, StatusNotImplemented)
		return true
	}
}

func (srv *Server) serveHTTPFallback(conn net.Conn) {
	if srv.httpFallback == nil {
		conn.Close()
		return
	}
	// Serving a single HTTP request over a raw accepted connection reuses
	// the connection via a minimal one-shot http.Server, matching the
	// "some implementations multiplex HTTP /snapshot on the same port"
	// convenience note in spec.md §4.5.
	oneShot := &http.Server{Handler: srv.httpFallback}
	oneShot.Serve(&singleConnListener{conn: conn})
}

func hostOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// singleConnListener adapts one already-accepted net.Conn into a
// net.Listener that yields it exactly once, letting http.Server.Serve
// drive a single request/response cycle over it.
type singleConnListener struct {
	conn net.Conn
	used bool
}

func (l *singleConnListener) Accept() (net.Conn, error) {
	if l.used {
		return nil, fmt.Errorf("rtsp: single connection already consumed")
	}
	l.used = true
	return l.conn, nil
}
func (l *singleConnListener) Close() error   { return nil }
func (l *singleConnListener) Addr() net.Addr { return l.conn.LocalAddr() }
