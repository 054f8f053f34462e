package camera

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-handcam/internal/log"
	"github.com/teslashibe/go-handcam/pkg/mempool"
)

// Webcam captures JPEG frames from a local V4L2 device through OpenCV.
// Frame payloads live in pool-backed buffers; Release returns them to
// the allocator.
type Webcam struct {
	cfg   Config
	alloc mempool.Allocator

	mu          sync.Mutex
	cap         *gocv.VideoCapture
	img         gocv.Mat
	seq         uint64
	outstanding int
	closed      bool
}

// OpenWebcam opens capture device and applies the config. Failure
// here is the caller's fatal startup path; everything after is
// recoverable per frame.
func OpenWebcam(device int, cfg Config, alloc mempool.Allocator) (*Webcam, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cap, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open capture device %d: %w", device, err)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	return &Webcam{
		cfg:   cfg,
		alloc: alloc,
		cap:   cap,
		img:   gocv.NewMat(),
	}, nil
}

// Acquire grabs one frame and encodes it to JPEG in a pool buffer.
func (w *Webcam) Acquire(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if ok := w.cap.Read(&w.img); !ok || w.img.Empty() {
		return nil, ErrNoFrame
	}

	enc, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, w.img,
		[]int{gocv.IMWriteJpegQuality, w.cfg.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer enc.Close()

	raw := enc.GetBytes()
	buf, err := w.alloc.Alloc(len(raw))
	if err != nil {
		return nil, fmt.Errorf("frame buffer: %w", err)
	}
	copy(buf, raw)

	w.seq++
	w.outstanding++
	return newFrame(buf, w.seq, w.releaseBuf), nil
}

func (w *Webcam) releaseBuf(f *Frame) {
	w.alloc.Free(f.Data)
	w.mu.Lock()
	w.outstanding--
	w.mu.Unlock()
}

// Outstanding reports frames acquired but not yet released.
func (w *Webcam) Outstanding() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.outstanding
}

// Close releases the capture device. Outstanding frames keep their
// buffers until released.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.outstanding > 0 {
		log.Component("camera").Warn("closing with frames outstanding", "count", w.outstanding)
	}
	w.img.Close()
	return w.cap.Close()
}
