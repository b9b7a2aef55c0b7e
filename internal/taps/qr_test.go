package taps

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"mjpeg-core/internal/frame"
)

type fakeDecoder struct {
	calls int32
}

func (d *fakeDecoder) Decode(jpeg []byte) (string, bool, error) {
	atomic.AddInt32(&d.calls, 1)
	return "payload", true, nil
}

// TestQRBacksOffAfterDecode confirms that a successful decode suppresses
// scanning for ScanIntervals subsequent cycles, per the backoff-in-scan-
// cycles design documented in DESIGN.md.
func TestQRBacksOffAfterDecode(t *testing.T) {
	slot := frame.NewSlot(100)
	decoder := &fakeDecoder{}
	qr := NewQR(QRConfig{ScanIntervals: 2, MaxBackoff: 10}, slot, decoder, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		qr.Run(ctx)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		slot.Publish(frame.Frame{Payload: []byte{0xFF, 0xD8, 0xFF, 0xD9}})
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	// 5 frames published; decode on frame 1, skip frames 2-3 (backoff=2),
	// decode again on frame 4, skip frame 5: expect 2 decode calls.
	if got := atomic.LoadInt32(&decoder.calls); got != 2 {
		t.Fatalf("decode calls = %d, want 2", got)
	}
}

func TestQRConfigClampsNegativeScanIntervals(t *testing.T) {
	qr := NewQR(QRConfig{ScanIntervals: -5}, frame.NewSlot(30), &fakeDecoder{}, zap.NewNop())
	if qr.cfg.ScanIntervals != 0 {
		t.Fatalf("ScanIntervals = %d, want clamped to 0", qr.cfg.ScanIntervals)
	}
}
