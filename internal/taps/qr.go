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

// Decoder abstracts a QR/barcode decoder so the tap stays independent of
// any specific decoding library (none of the retrieved examples pull in a
// QR decoder; this interface lets one be wired in without touching the
// tap's scan-cadence/backoff logic).
type Decoder interface {
	Decode(jpeg []byte) (string, bool, error)
}

// QRConfig configures the QR Tap's scan cadence and post-decode backoff.
// ScanIntervals counts scan cycles (not wall-clock time) to skip after a
// successful decode, per original_source's output_qrscanner.c "-b" option,
// which the spec's §9 Open Question resolves this implementation's way
// (see DESIGN.md).
type QRConfig struct {
	WebhookURL    string
	ScanIntervals int
	MaxBackoff    int
}

// QR is the QR Tap: it decodes one frame per scan cycle and, on success,
// POSTs the decoded payload to WebhookURL, then backs off for
// ScanIntervals cycles before scanning again.
type QR struct {
	cfg     QRConfig
	slot    *frame.Slot
	decoder Decoder
	client  *http.Client
	logger  *zap.Logger
}

// NewQR constructs a QR tap using decoder to extract payloads from frames.
func NewQR(cfg QRConfig, slot *frame.Slot, decoder Decoder, logger *zap.Logger) *QR {
	if cfg.ScanIntervals < 0 {
		cfg.ScanIntervals = 0
	}
	return &QR{cfg: cfg, slot: slot, decoder: decoder, client: &http.Client{Timeout: 5 * time.Second}, logger: logger}
}

// Run blocks, scanning frames until ctx is canceled or the slot shuts down.
func (q *QR) Run(ctx context.Context) {
	lastSeq := frame.NeverSeen()
	remainingBackoff := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fr, seq, kind := q.slot.WaitFresh(lastSeq, time.Second)
		switch kind {
		case frame.Shutdown:
			return
		case frame.Timeout:
			continue
		}
		lastSeq = seq

		if remainingBackoff > 0 {
			remainingBackoff--
			continue
		}

		payload, ok, err := q.decoder.Decode(fr.Payload)
		if err != nil {
			q.logger.Debug("QR decode error", zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		q.notify(payload)
		remainingBackoff = q.cfg.ScanIntervals
		if remainingBackoff > q.cfg.MaxBackoff && q.cfg.MaxBackoff > 0 {
			remainingBackoff = q.cfg.MaxBackoff
		}
	}
}

func (q *QR) notify(payload string) {
	if q.cfg.WebhookURL == "" {
		return
	}
	body := fmt.Sprintf(`{"event":"qr_decoded","payload":%q}`, payload)
	resp, err := q.client.Post(q.cfg.WebhookURL, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		q.logger.Warn("QR webhook delivery failed", zap.Error(err))
		return
	}
	resp.Body.Close()
}
