// Package taps implements the three "external action actor" consumers
// spec.md §9/SPEC_FULL.md §10 describe as supplemented features: Motion,
// QR, and Viewer. Each is a standalone goroutine pulling fresh frames from
// a Frame Slot via WaitFresh and reacting independently — none of them sit
// on the RTSP/RTP hot path.
package taps

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mjpeg-core/internal/frame"
)

// MotionConfig configures the Motion Tap's size-delta heuristic, grounded
// on original_source/src/plugins/output_motion/output_motion.c's
// is_jpeg_size_changed percentage-change test (a cheap proxy for pixel-level
// motion estimation that avoids decoding every frame).
type MotionConfig struct {
	WebhookURL      string
	ThresholdPct    float64 // minimum fractional JPEG-size change to report motion, e.g. 0.08 = 8%
	Cooldown        time.Duration
}

// Motion is the Motion Tap: it flags likely motion by JPEG size delta and
// POSTs a small JSON payload to WebhookURL, no more often than Cooldown.
type Motion struct {
	cfg    MotionConfig
	slot   *frame.Slot
	client *http.Client
	logger *zap.Logger
}

// NewMotion constructs a Motion tap reading from slot.
func NewMotion(cfg MotionConfig, slot *frame.Slot, logger *zap.Logger) *Motion {
	return &Motion{cfg: cfg, slot: slot, client: &http.Client{Timeout: 5 * time.Second}, logger: logger}
}

// Run blocks, watching for motion until ctx is canceled or the slot shuts
// down.
func (m *Motion) Run(ctx context.Context) {
	lastSeq := frame.NeverSeen()
	prevSize := -1
	var lastFired time.Time

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fr, seq, kind := m.slot.WaitFresh(lastSeq, time.Second)
		switch kind {
		case frame.Shutdown:
			return
		case frame.Timeout:
			continue
		}
		lastSeq = seq

		size := fr.Size
		if size == 0 {
			size = len(fr.Payload)
		}

		if prevSize > 0 && sizeChangedBeyond(size, prevSize, m.cfg.ThresholdPct) {
			if time.Since(lastFired) >= m.cfg.Cooldown {
				lastFired = time.Now()
				m.notify(fr, size, prevSize)
			}
		}
		prevSize = size
	}
}

// sizeChangedBeyond reports whether the fractional change between current
// and previous JPEG sizes meets or exceeds thresholdPct, matching the
// original's threshold_percent comparison.
func sizeChangedBeyond(current, previous int, thresholdPct float64) bool {
	if previous == 0 {
		return false
	}
	delta := current - previous
	if delta < 0 {
		delta = -delta
	}
	return float64(delta)/float64(previous) >= thresholdPct
}

func (m *Motion) notify(fr frame.Frame, size, prevSize int) {
	if m.cfg.WebhookURL == "" {
		return
	}
	body := fmt.Sprintf(
		`{"event":"motion","timestamp":"%s","frame_size":%d,"previous_size":%d}`,
		fr.CaptureTimestamp.UTC().Format(time.RFC3339), size, prevSize)

	resp, err := m.client.Post(m.cfg.WebhookURL, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		m.logger.Warn("motion webhook delivery failed", zap.Error(err))
		return
	}
	resp.Body.Close()
}
