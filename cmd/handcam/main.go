// handcam is the device daemon: a perception loop that pulls frames
// from the camera, localizes hands and reports classified gestures.
//
// Usage:
//
//	handcam [-config handcam.yaml] [-log-level info]
//
// Camera initialization failure aborts the process; every failure
// after that is absorbed by the loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-handcam/internal/config"
	"github.com/teslashibe/go-handcam/internal/log"
	"github.com/teslashibe/go-handcam/pkg/camera"
	"github.com/teslashibe/go-handcam/pkg/detect"
	"github.com/teslashibe/go-handcam/pkg/gesture"
	"github.com/teslashibe/go-handcam/pkg/imaging"
	"github.com/teslashibe/go-handcam/pkg/mempool"
	"github.com/teslashibe/go-handcam/pkg/pipeline"
	"github.com/teslashibe/go-handcam/pkg/web"
)

// Pool budgets when the config leaves them zero. The fast tier holds
// a handful of frames in flight; the slow tier is the general heap.
const defaultFastPoolBytes = 4 << 20

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	logLevel := flag.String("log-level", "", "override log level")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	log.Init(cfg.LogLevel)
	logger := log.Component("handcam")

	fastBudget := cfg.Pipeline.FastPoolBytes
	if fastBudget == 0 {
		fastBudget = defaultFastPoolBytes
	}
	alloc := mempool.NewDefault(fastBudget, cfg.Pipeline.SlowPoolBytes)

	// Camera startup is the only fatal path: without frames the loop
	// can never do anything.
	src, err := openSource(cfg.Camera, alloc)
	if err != nil {
		logger.Error("camera init failed", "error", err)
		os.Exit(1)
	}
	defer src.Close()
	logger.Info("camera ready", "source", cfg.Camera.Source)

	detector, err := openDetector(cfg.Detect)
	if err != nil {
		logger.Error("hand detector init failed", "error", err)
		os.Exit(1)
	}
	defer detector.Close()

	recognizer, err := openRecognizer(cfg.Gesture, alloc)
	if err != nil {
		logger.Error("gesture recognizer init failed", "error", err)
		os.Exit(1)
	}
	defer recognizer.Close()

	var decoder imaging.Decoder = imaging.NewGoCVDecoder(alloc)
	if cfg.Camera.Source == "mock" {
		decoder = newSyntheticDecoder(alloc)
	}

	pipeCfg := pipelineConfig(cfg.Pipeline)
	pipe, err := pipeline.New(src, decoder, detector,
		recognizer, alloc, nil, pipeCfg)
	if err != nil {
		logger.Error("pipeline init failed", "error", err)
		os.Exit(1)
	}

	if cfg.Web.Enabled {
		srv := web.NewServer(cfg.Web.Addr, pipe.Stats())
		srv.Config = cfg
		srv.StartAsync()
		defer srv.Shutdown()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := pipe.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("pipeline stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}

func openSource(cfg config.CameraConfig, alloc mempool.Allocator) (camera.Source, error) {
	camCfg := camera.DefaultConfig()
	if cfg.Preset != "" {
		if preset := camera.GetPreset(cfg.Preset); preset != nil {
			camCfg = *preset
		} else {
			return nil, fmt.Errorf("unknown camera preset %q", cfg.Preset)
		}
	}
	if cfg.Width > 0 {
		camCfg.Width = cfg.Width
	}
	if cfg.Height > 0 {
		camCfg.Height = cfg.Height
	}
	if cfg.Quality > 0 {
		camCfg.Quality = cfg.Quality
	}

	switch cfg.Source {
	case "webcam":
		return camera.OpenWebcam(cfg.Device, camCfg, alloc)
	case "wscam":
		return camera.DialWSCam(cfg.URL, alloc)
	case "mock":
		return camera.NewMock([]byte("synthetic")), nil
	}
	return nil, fmt.Errorf("unknown camera source %q", cfg.Source)
}

// newSyntheticDecoder pairs with the mock camera source: it ignores
// the frame payload and fabricates a gradient image from the pool, so
// the full loop runs on hardware with no camera attached.
func newSyntheticDecoder(alloc mempool.Allocator) imaging.Decoder {
	const w, h = 320, 240
	return &imaging.MockDecoder{
		DecodeFunc: func(_ *camera.Frame) (*imaging.RawImage, error) {
			buf, err := alloc.Alloc(w * h * imaging.Channels)
			if err != nil {
				return nil, err
			}
			for i := range buf {
				buf[i] = byte(i)
			}
			return imaging.NewRawImage(w, h, buf, alloc), nil
		},
	}
}

func openDetector(cfg config.InferenceConfig) (detect.Detector, error) {
	switch cfg.Backend {
	case "dnn":
		dc := detect.DefaultConfig()
		dc.ModelPath = cfg.ModelPath
		if cfg.ConfidenceThresh > 0 {
			dc.ConfidenceThresh = cfg.ConfidenceThresh
		}
		return detect.NewDNN(dc)
	case "remote":
		thresh := cfg.ConfidenceThresh
		if thresh == 0 {
			thresh = detect.DefaultConfig().ConfidenceThresh
		}
		return detect.NewRemote(cfg.URL, thresh), nil
	case "mock":
		return &detect.Mock{}, nil
	}
	return nil, fmt.Errorf("unknown detect backend %q", cfg.Backend)
}

func openRecognizer(cfg config.InferenceConfig, alloc mempool.Allocator) (gesture.Recognizer, error) {
	switch cfg.Backend {
	case "dnn":
		gc := gesture.DefaultConfig()
		gc.ModelPath = cfg.ModelPath
		return gesture.NewDNN(gc, alloc)
	case "remote":
		return gesture.NewRemote(cfg.URL), nil
	case "mock":
		return &gesture.Mock{Result: gesture.Result{Label: "mock", Score: 1}}, nil
	}
	return nil, fmt.Errorf("unknown gesture backend %q", cfg.Backend)
}

func pipelineConfig(cfg config.PipelineConfig) pipeline.Config {
	pc := pipeline.DefaultConfig()
	if cfg.Preset == "responsive" {
		pc = pipeline.ResponsiveConfig()
	}
	if cfg.FrameDelayMs > 0 {
		pc.FrameDelay = time.Duration(cfg.FrameDelayMs) * time.Millisecond
	}
	if cfg.EmptyDelayMs > 0 {
		pc.EmptyDelay = time.Duration(cfg.EmptyDelayMs) * time.Millisecond
	}
	if cfg.RetryDelayMs > 0 {
		pc.RetryDelay = time.Duration(cfg.RetryDelayMs) * time.Millisecond
	}
	if cfg.WarmupFrames > 0 {
		pc.WarmupFrames = cfg.WarmupFrames
	}
	if cfg.WarmupDelayMs > 0 {
		pc.WarmupDelay = time.Duration(cfg.WarmupDelayMs) * time.Millisecond
	}
	return pc
}
