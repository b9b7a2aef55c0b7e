// Package httpstream implements the HTTP Stream Sink (HS): the plain-HTTP
// /snapshot and /stream endpoints that serve the Frame Slot's contents to
// browsers and curl alike, without any RTSP/RTP involved.
package httpstream

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mjpeg-core/internal/frame"
)

const boundary = "mjpegcoreboundary"

// Handler serves /snapshot and /stream from a Frame Slot.
type Handler struct {
	slot   *frame.Slot
	logger *zap.Logger
}

// New constructs a Handler reading from slot.
func New(slot *frame.Slot, logger *zap.Logger) *Handler {
	return &Handler{slot: slot, logger: logger}
}

// Register wires /snapshot and /stream onto mux, matching the teacher's
// handler-registration idiom in web/server.go.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/snapshot", h.HandleSnapshot)
	mux.HandleFunc("/stream", h.HandleStream)
}

// HandleSnapshot serves the single most recent frame as one JPEG image,
// grounded on original_source's send_snapshot: no-cache headers, a single
// Content-Type: image/jpeg body, connection closed after one response.
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	fr, ok := h.slot.Snapshot()
	if !ok {
		http.Error(w, "no frame available yet", http.StatusServiceUnavailable)
		return
	}

	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Cache-Control", "no-store, no-cache, must-revalidate, pre-check=0, post-check=0, max-age=0")
	header.Set("Pragma", "no-cache")
	header.Set("Content-Type", "image/jpeg")
	header.Set("Connection", "close")
	header.Set("X-Timestamp", fmt.Sprintf("%d.%06d", fr.CaptureTimestamp.Unix(), fr.CaptureTimestamp.Nanosecond()/1000))
	w.WriteHeader(http.StatusOK)
	w.Write(fr.Payload)
}

// HandleStream serves an indefinite multipart/x-mixed-replace MJPEG
// stream, one boundary-delimited part per fresh frame, grounded on
// original_source's send_stream loop.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Cache-Control", "no-store, no-cache, must-revalidate, pre-check=0, post-check=0, max-age=0")
	header.Set("Pragma", "no-cache")
	header.Set("Content-Type", "multipart/x-mixed-replace;boundary="+boundary)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "--%s\r\n", boundary)
	flusher.Flush()

	ctx := r.Context()
	lastSeq := frame.NeverSeen()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fr, seq, kind := h.slot.WaitFresh(lastSeq, time.Second)
		switch kind {
		case frame.Shutdown:
			return
		case frame.Timeout:
			continue
		}
		lastSeq = seq

		partHeader := fmt.Sprintf(
			"Content-Type: image/jpeg\r\nContent-Length: %d\r\nX-Timestamp: %d.%06d\r\n\r\n",
			len(fr.Payload), fr.CaptureTimestamp.Unix(), fr.CaptureTimestamp.Nanosecond()/1000)
		if _, err := w.Write([]byte(partHeader)); err != nil {
			return
		}
		if _, err := w.Write(fr.Payload); err != nil {
			return
		}
		if _, err := fmt.Fprintf(w, "\r\n--%s\r\n", boundary); err != nil {
			return
		}
		flusher.Flush()
	}
}
