package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mjpeg-core/internal/admin"
	"mjpeg-core/internal/capture"
	"mjpeg-core/internal/config"
	"mjpeg-core/internal/frame"
	"mjpeg-core/internal/httpstream"
	"mjpeg-core/internal/pump"
	"mjpeg-core/internal/rtsp"
	"mjpeg-core/internal/taps"
)

const (
	DefaultConfigPath = "config.toml"
	AppName           = "mjpeg-core"
	AppVersion        = "1.0.0"
)

// Application wires every component described in SPEC_FULL.md into one
// running process, following the teacher's main.go Application idiom.
type Application struct {
	config *config.Config
	logger *zap.Logger

	slot       *frame.Slot
	producer   *capture.Producer
	rtspSrv    *rtsp.Server
	streamPump *pump.Pump
	httpSrv    *http.Server

	motion *taps.Motion
	viewer *taps.Viewer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func main() {
	var (
		configPath = flag.String("config", DefaultConfigPath, "Path to configuration file")
		logLevel   = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		version    = flag.Bool("version", false, "Show version information")
		help       = flag.Bool("help", false, "Show help information")
	)
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	if *help {
		fmt.Printf("%s v%s\n\n", AppName, AppVersion)
		fmt.Println("An RTSP/RTP-JPEG and HTTP MJPEG streaming service")
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := createLogger(*logLevel, cfg.Logging)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting mjpeg-core",
		zap.String("version", AppVersion),
		zap.String("go_version", runtime.Version()),
		zap.String("platform", runtime.GOOS+"/"+runtime.GOARCH),
		zap.String("config", *configPath))

	app := NewApplication(cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	if err := app.Start(ctx); err != nil {
		logger.Fatal("failed to start application", zap.Error(err))
	}

	select {
	case sig := <-signalCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	logger.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// NewApplication constructs an Application from cfg. No component is
// started yet; Start wires and launches everything.
func NewApplication(cfg *config.Config, logger *zap.Logger) *Application {
	ctx, cancel := context.WithCancel(context.Background())
	return &Application{config: cfg, logger: logger, ctx: ctx, cancel: cancel}
}

// Start initializes and launches every configured component.
func (a *Application) Start(ctx context.Context) error {
	a.logger.Info("initializing components")

	a.slot = frame.NewSlot(a.config.Capture.FPS)

	if err := a.startCapture(); err != nil {
		return fmt.Errorf("failed to start capture producer: %w", err)
	}

	if err := a.startRTSP(); err != nil {
		return fmt.Errorf("failed to start rtsp server: %w", err)
	}

	a.startStreamPump()

	if err := a.startHTTP(); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	a.startTaps()

	a.logger.Info("mjpeg-core started",
		zap.String("rtsp_addr", a.config.RTSP.ListenAddr),
		zap.String("http_addr", a.config.HTTP.ListenAddr))

	return nil
}

func (a *Application) startCapture() error {
	capCfg := capture.Config{
		Device:     a.config.Capture.Device,
		Width:      a.config.Capture.Width,
		Height:     a.config.Capture.Height,
		FPS:        a.config.Capture.FPS,
		Quality:    a.config.Capture.Quality,
		FlipMethod: a.config.Capture.FlipMethod,
	}
	a.producer = capture.NewProducer(capCfg, a.slot, a.logger)
	return a.producer.Start(a.ctx)
}

func (a *Application) startRTSP() error {
	rtspCfg := rtsp.Config{
		ListenAddr:     a.config.RTSP.ListenAddr,
		ReadTimeout:    time.Duration(a.config.RTSP.ReadTimeoutSec) * time.Second,
		SendBufferSize: a.config.RTSP.SendBufferSize,
		FPSHint:        a.config.Capture.FPS,
	}
	table := rtsp.NewClientTable()

	hs := httpstream.New(a.slot, a.logger)
	fallbackMux := http.NewServeMux()
	hs.Register(fallbackMux)

	a.rtspSrv = rtsp.NewServer(rtspCfg, a.slot, table, fallbackMux, a.logger)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.rtspSrv.Serve(); err != nil {
			a.logger.Error("rtsp server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (a *Application) startStreamPump() {
	pumpCfg := pump.DefaultConfig(a.config.Capture.FPS)
	pumpCfg.MaxPayloadSize = a.config.RTSP.MaxPayloadSize

	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		a.logger.Warn("failed to open shared UDP socket for RTP unicast delivery, TCP-interleaved delivery only", zap.Error(err))
	}

	a.streamPump = pump.New(pumpCfg, a.slot, a.rtspSrv.Table(), udpConn, a.logger)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.streamPump.Run()
	}()
}

func (a *Application) startHTTP() error {
	mux := http.NewServeMux()

	hs := httpstream.New(a.slot, a.logger)
	hs.Register(mux)

	adm := admin.New(a.producer, a.rtspSrv.Table(), a.logger)
	adm.Register(mux)

	if a.config.Viewer.Enabled {
		a.viewer = taps.NewViewer(taps.ViewerConfig{AllowedOrigins: []string{"*"}}, a.slot, a.logger)
		mux.HandleFunc("/viewer/ws", a.viewer.HandleWebSocket)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.viewer.Run(a.ctx)
		}()
	}

	a.httpSrv = &http.Server{
		Addr:    a.config.HTTP.ListenAddr,
		Handler: mux,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("http server stopped", zap.Error(err))
		}
	}()
	return nil
}

func (a *Application) startTaps() {
	if a.config.Motion.Enabled {
		a.motion = taps.NewMotion(taps.MotionConfig{
			WebhookURL:   a.config.Motion.WebhookURL,
			ThresholdPct: a.config.Motion.Threshold,
			Cooldown:     time.Duration(a.config.Motion.CooldownSec) * time.Second,
		}, a.slot, a.logger)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.motion.Run(a.ctx)
		}()
	}

	if a.config.QR.Enabled {
		a.logger.Warn("qr tap enabled but no Decoder implementation is wired; skipping")
	}
}

// Stop gracefully stops every running component.
func (a *Application) Stop(ctx context.Context) error {
	a.cancel()

	if a.producer != nil {
		if err := a.producer.Stop(); err != nil {
			a.logger.Error("error stopping capture producer", zap.Error(err))
		}
	}

	if a.rtspSrv != nil {
		if err := a.rtspSrv.Close(); err != nil {
			a.logger.Error("error stopping rtsp server", zap.Error(err))
		}
	}

	if a.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("error stopping http server", zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("all components stopped gracefully")
	case <-ctx.Done():
		a.logger.Warn("shutdown timeout reached, forcing exit")
	}

	return nil
}

// createLogger builds the structured logger, following the teacher's
// console-encoder / dual stdout+file-sink / rotation-by-count pattern.
func createLogger(level string, logCfg config.LoggingConfig) (*zap.Logger, error) {
	if level == "" {
		level = logCfg.Level
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	const logDir = "logs"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	base := logCfg.LogFilePath
	if base == "" {
		base = "mjpeg-core.log"
	}
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]

	logFile := filepath.Join(logDir, fmt.Sprintf("%s-%s%s", stem, time.Now().Format("20060102-150405"), ext))

	maxFiles := logCfg.MaxLogFiles
	if maxFiles <= 0 {
		maxFiles = 20
	}
	files, _ := filepath.Glob(filepath.Join(logDir, stem+"-*"+ext))
	if len(files) > maxFiles {
		sort.Strings(files)
		for _, f := range files[:len(files)-maxFiles] {
			_ = os.Remove(f)
		}
	}

	zapCfg := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout", logFile},
		ErrorOutputPaths: []string{"stderr", logFile},
	}

	return zapCfg.Build()
}
