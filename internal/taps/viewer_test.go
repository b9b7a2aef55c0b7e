package taps

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"mjpeg-core/internal/frame"
)

func TestCheckOriginWildcardAllowsAny(t *testing.T) {
	v := NewViewer(ViewerConfig{AllowedOrigins: []string{"*"}}, frame.NewSlot(30), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/viewer", nil)
	req.Header.Set("Origin", "https://anything.example")
	if !v.checkOrigin(req) {
		t.Fatal("wildcard origin list must allow any origin")
	}
}

func TestCheckOriginRejectsUnlisted(t *testing.T) {
	v := NewViewer(ViewerConfig{AllowedOrigins: []string{"https://allowed.example"}}, frame.NewSlot(30), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/viewer", nil)
	req.Header.Set("Origin", "https://not-allowed.example")
	if v.checkOrigin(req) {
		t.Fatal("expected origin not in the allow-list to be rejected")
	}
}

func TestCheckOriginAllowsNoOriginHeader(t *testing.T) {
	v := NewViewer(ViewerConfig{AllowedOrigins: []string{"https://allowed.example"}}, frame.NewSlot(30), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/viewer", nil)
	if !v.checkOrigin(req) {
		t.Fatal("a missing Origin header (non-browser client) should be allowed")
	}
}

func TestBroadcastDropsOnFullBuffer(t *testing.T) {
	v := NewViewer(ViewerConfig{SendBufferSize: 1}, frame.NewSlot(30), zap.NewNop())
	client := &viewerClient{send: make(chan []byte, 1)}
	v.mu.Lock()
	v.clients["1"] = client
	v.mu.Unlock()

	v.broadcast([]byte("frame-a"))
	v.broadcast([]byte("frame-b")) // buffer full: must not block

	if len(client.send) != 1 {
		t.Fatalf("send channel length = %d, want 1", len(client.send))
	}
}
