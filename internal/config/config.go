// Package config loads mjpeg-core's application configuration: capture
// parameters, the RTSP/HTTP server surfaces, the optional action taps, and
// logging, following the teacher's defaults-struct-literal-then-decode
// pattern.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the root application configuration (spec.md §3's Config,
// expanded per SPEC_FULL.md §3 with the ambient/domain sections a complete
// deployment needs).
type Config struct {
	Capture CaptureConfig `toml:"capture"`
	RTSP    RTSPConfig    `toml:"rtsp"`
	HTTP    HTTPConfig    `toml:"http"`
	Motion  MotionConfig  `toml:"motion"`
	QR      QRConfig      `toml:"qr"`
	Viewer  ViewerConfig  `toml:"viewer"`
	Logging LoggingConfig `toml:"logging"`
}

// CaptureConfig configures the Capture Producer.
type CaptureConfig struct {
	Device     string `toml:"device"`
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	FPS        int    `toml:"fps"`
	Quality    int    `toml:"quality"`
	FlipMethod string `toml:"flip_method"`
}

// RTSPConfig configures the RTSP Server / Session Machine / Stream Pump.
type RTSPConfig struct {
	ListenAddr     string `toml:"listen_addr"`
	ReadTimeoutSec int    `toml:"read_timeout_seconds"`
	SendBufferSize int    `toml:"send_buffer_size"`
	MaxPayloadSize int    `toml:"max_payload_size"`
}

// HTTPConfig configures the plain-HTTP Stream Sink and admin surface.
type HTTPConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// MotionConfig configures the Motion Tap.
type MotionConfig struct {
	Enabled       bool    `toml:"enabled"`
	WebhookURL    string  `toml:"webhook_url"`
	Threshold     float64 `toml:"threshold"`
	CooldownSec   int     `toml:"cooldown_seconds"`
}

// QRConfig configures the QR Tap.
type QRConfig struct {
	Enabled       bool `toml:"enabled"`
	WebhookURL    string `toml:"webhook_url"`
	ScanIntervals int  `toml:"scan_intervals"` // base backoff unit, in scan cycles (see DESIGN.md)
	MaxBackoff    int  `toml:"max_backoff_intervals"`
}

// ViewerConfig configures the Viewer Tap's websocket push.
type ViewerConfig struct {
	Enabled    bool `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `toml:"level"`
	LogFilePath string `toml:"log_file_path"`
	MaxLogFiles int    `toml:"max_log_files"`
}

// Load reads configuration from path, falling back to defaults for any
// section the file omits and leaving defaults untouched entirely when path
// does not exist, matching the teacher's "decode over a defaults literal"
// pattern.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if _, err := os.Stat(path); err != nil {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Capture: CaptureConfig{
			Device:     "/base/axi/pcie@1000120000/rp1/i2c@88000/imx219@10",
			Width:      640,
			Height:     480,
			FPS:        30,
			Quality:    75,
			FlipMethod: "",
		},
		RTSP: RTSPConfig{
			ListenAddr:     "0.0.0.0:8554",
			ReadTimeoutSec: 5,
			SendBufferSize: 256 * 1024,
			MaxPayloadSize: 1400,
		},
		HTTP: HTTPConfig{
			ListenAddr: "0.0.0.0:8080",
		},
		Motion: MotionConfig{
			Enabled:     false,
			Threshold:   0.08,
			CooldownSec: 10,
		},
		QR: QRConfig{
			Enabled:       false,
			ScanIntervals: 1,
			MaxBackoff:    30,
		},
		Viewer: ViewerConfig{
			Enabled:    false,
			ListenAddr: "0.0.0.0:8081",
		},
		Logging: LoggingConfig{
			Level:       "info",
			LogFilePath: "mjpeg-core.log",
			MaxLogFiles: 20,
		},
	}
}

// Save writes cfg back out as TOML, mirroring the teacher's SaveConfig.
func Save(cfg *Config, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return nil
}
