package httpstream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"mjpeg-core/internal/frame"
)

func TestHandleSnapshotWithoutFrameReturns503(t *testing.T) {
	h := New(frame.NewSlot(30), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	rec := httptest.NewRecorder()

	h.HandleSnapshot(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestHandleSnapshotServesLatestFrame(t *testing.T) {
	slot := frame.NewSlot(30)
	slot.Publish(frame.Frame{Payload: []byte{0xFF, 0xD8, 0xFF, 0xD9}, CaptureTimestamp: time.Now()})

	h := New(slot, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/snapshot", nil)
	rec := httptest.NewRecorder()

	h.HandleSnapshot(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("Content-Type = %q, want image/jpeg", rec.Header().Get("Content-Type"))
	}
	if rec.Body.String() != "\xff\xd8\xff\xd9" {
		t.Fatalf("body = % x, want the published payload", rec.Body.Bytes())
	}
}

func TestHandleStreamWritesMultipartBoundaryAndFrame(t *testing.T) {
	slot := frame.NewSlot(30)
	slot.Publish(frame.Frame{Payload: []byte{0xFF, 0xD8, 0xFF, 0xD9}, CaptureTimestamp: time.Now()})

	h := New(slot, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)

	done := make(chan struct{})
	rec := httptest.NewRecorder()
	go func() {
		h.HandleStream(rec, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	slot.Shutdown()
	<-done

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace;boundary=") {
		t.Fatalf("Content-Type = %q, want multipart/x-mixed-replace", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, boundary) {
		t.Fatalf("body missing boundary marker: %q", body)
	}
	if !strings.Contains(body, "Content-Type: image/jpeg") {
		t.Fatalf("body missing per-part Content-Type: %q", body)
	}
}
