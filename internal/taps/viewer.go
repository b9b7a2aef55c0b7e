package taps

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mjpeg-core/internal/frame"
)

// ViewerConfig configures the Viewer Tap's websocket push, grounded on
// original_source/src/plugins/output_viewer/output_viewer.c's "loopback
// frame sink" role, re-targeted from an SDL window to a browser.
type ViewerConfig struct {
	AllowedOrigins []string
	SendBufferSize int
}

// Viewer is the Viewer Tap: it pulls fresh frames and fans each one out to
// every connected websocket client as a binary JPEG message, skipping the
// frame for any client whose send buffer is full rather than blocking the
// fan-out.
type Viewer struct {
	cfg      ViewerConfig
	slot     *frame.Slot
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*viewerClient
	nextID  uint64
}

type viewerClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewViewer constructs a Viewer tap reading from slot.
func NewViewer(cfg ViewerConfig, slot *frame.Slot, logger *zap.Logger) *Viewer {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 8
	}
	v := &Viewer{cfg: cfg, slot: slot, logger: logger, clients: make(map[string]*viewerClient)}
	v.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     v.checkOrigin,
	}
	return v
}

func (v *Viewer) checkOrigin(r *http.Request) bool {
	for _, allowed := range v.cfg.AllowedOrigins {
		if allowed == "*" {
			return true
		}
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range v.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// HandleWebSocket upgrades a connection and registers it for the frame
// fan-out.
func (v *Viewer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := v.upgrader.Upgrade(w, r, nil)
	if err != nil {
		v.logger.Error("viewer websocket upgrade failed", zap.Error(err))
		return
	}

	v.mu.Lock()
	v.nextID++
	id := strconv.FormatUint(v.nextID, 10)
	client := &viewerClient{conn: conn, send: make(chan []byte, v.cfg.SendBufferSize)}
	v.clients[id] = client
	v.mu.Unlock()

	go v.writePump(id, client)
	go v.readPump(id, client)
}

func (v *Viewer) writePump(id string, c *viewerClient) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			v.remove(id)
			return
		}
	}
}

// readPump only exists to drain and detect close frames; the Viewer Tap
// never accepts commands from the browser.
func (v *Viewer) readPump(id string, c *viewerClient) {
	defer v.remove(id)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (v *Viewer) remove(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.clients[id]; ok {
		close(c.send)
		delete(v.clients, id)
	}
}

// Run blocks, fanning out fresh frames to every connected viewer until ctx
// is canceled or the slot shuts down.
func (v *Viewer) Run(ctx context.Context) {
	lastSeq := frame.NeverSeen()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fr, seq, kind := v.slot.WaitFresh(lastSeq, time.Second)
		switch kind {
		case frame.Shutdown:
			return
		case frame.Timeout:
			continue
		}
		lastSeq = seq
		v.broadcast(fr.Payload)
	}
}

func (v *Viewer) broadcast(payload []byte) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for id, c := range v.clients {
		select {
		case c.send <- payload:
		default:
			v.logger.Debug("dropping frame for slow viewer client", zap.String("client", id))
		}
	}
}
