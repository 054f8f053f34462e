// camcheck is a capture smoke test. It opens the configured camera,
// runs the warm-up discard, grabs a few frames, decodes and
// normalizes one, and prints sizes and timings.
//
//	camcheck [-config handcam.yaml] [-frames 10]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/teslashibe/go-handcam/internal/config"
	"github.com/teslashibe/go-handcam/internal/log"
	"github.com/teslashibe/go-handcam/pkg/camera"
	"github.com/teslashibe/go-handcam/pkg/imaging"
	"github.com/teslashibe/go-handcam/pkg/mempool"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	frames := flag.Int("frames", 10, "frames to grab after warm-up")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.LogLevel)

	alloc := mempool.NewDefault(4<<20, 0)

	var src camera.Source
	switch cfg.Camera.Source {
	case "wscam":
		src, err = camera.DialWSCam(cfg.Camera.URL, alloc)
	default:
		src, err = camera.OpenWebcam(cfg.Camera.Device, camera.DefaultConfig(), alloc)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "camera: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	ctx := context.Background()
	fmt.Println("warming up...")
	if err := camera.Warmup(ctx, src, 5, 50*time.Millisecond); err != nil {
		fmt.Fprintf(os.Stderr, "warmup: %v\n", err)
		os.Exit(1)
	}

	decoder := imaging.NewGoCVDecoder(alloc)
	start := time.Now()
	var bytesTotal int
	for i := 0; i < *frames; i++ {
		frame, err := src.Acquire(ctx)
		if err != nil {
			fmt.Printf("frame %d: acquire failed: %v\n", i, err)
			continue
		}
		jpegBytes := len(frame.Data)
		bytesTotal += jpegBytes

		raw, err := decoder.Decode(frame)
		frame.Release()
		if err != nil {
			fmt.Printf("frame %d: decode failed: %v\n", i, err)
			continue
		}

		norm, err := imaging.Normalize(raw, imaging.TargetSide, alloc)
		raw.Free()
		if err != nil {
			fmt.Printf("frame %d: normalize failed: %v\n", i, err)
			continue
		}
		fmt.Printf("frame %d: %d jpeg bytes, %dx%d decoded, %dx%d normalized\n",
			i, jpegBytes, raw.Width, raw.Height, norm.Side, norm.Side)
		norm.Free()
	}
	elapsed := time.Since(start)

	stats := alloc.Stats()
	fmt.Printf("\n%d frames in %v (%.1f fps, %d bytes jpeg)\n",
		*frames, elapsed.Round(time.Millisecond),
		float64(*frames)/elapsed.Seconds(), bytesTotal)
	fmt.Printf("pool: %d fast allocs, %d fallbacks, %d failures\n",
		stats.FastAllocs, stats.Fallbacks, stats.Failures)
}
