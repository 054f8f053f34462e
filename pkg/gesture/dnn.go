package gesture

import (
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-handcam/pkg/detect"
	"github.com/teslashibe/go-handcam/pkg/imaging"
	"github.com/teslashibe/go-handcam/pkg/mempool"
)

// DNNRecognizer classifies hand crops through OpenCV's DNN module.
// For each detection it cuts the region out of the normalized frame,
// renormalizes it to the classifier input size and runs a forward
// pass; the output logits go through softmax.
type DNNRecognizer struct {
	net   gocv.Net
	cfg   Config
	alloc mempool.Allocator
	mu    sync.Mutex // protects inference
}

// NewDNN loads the ONNX model at cfg.ModelPath. Crop buffers come
// from alloc and are freed before Recognize returns.
func NewDNN(cfg Config, alloc mempool.Allocator) (*DNNRecognizer, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if len(cfg.Labels) == 0 {
		return nil, fmt.Errorf("gesture: empty label table")
	}
	if cfg.InputSide <= 0 {
		return nil, fmt.Errorf("gesture: invalid input side %d", cfg.InputSide)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("load model %s: empty network", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &DNNRecognizer{net: net, cfg: cfg, alloc: alloc}, nil
}

// Recognize classifies each detection. A failure on one crop skips
// that detection rather than failing the frame.
func (g *DNNRecognizer) Recognize(img *imaging.NormalizedImage, dets []detect.Detection) ([]Result, error) {
	if !img.Valid() {
		return nil, fmt.Errorf("gesture: invalid input image")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	results := make([]Result, 0, len(dets))
	for _, det := range dets {
		res, err := g.classifyOne(img, det)
		if err != nil {
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

func (g *DNNRecognizer) classifyOne(img *imaging.NormalizedImage, det detect.Detection) (Result, error) {
	x0, y0, w, h := det.PixelRect(img.Side)
	crop, err := imaging.CropRegion(img, x0, y0, w, h, g.alloc)
	if err != nil {
		return Result{}, err
	}
	defer crop.Free()

	input, err := imaging.Normalize(crop, g.cfg.InputSide, g.alloc)
	if err != nil {
		return Result{}, err
	}
	defer input.Free()

	mat, err := gocv.NewMatFromBytes(input.Side, input.Side, gocv.MatTypeCV8UC3, input.Pix)
	if err != nil {
		return Result{}, err
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0,
		image.Pt(input.Side, input.Side),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	g.net.SetInput(blob, "")
	out := g.net.Forward("")
	defer out.Close()

	logits := make([]float64, 0, len(g.cfg.Labels))
	flat := out.Reshape(1, 1)
	defer flat.Close()
	for i := 0; i < flat.Cols() && i < len(g.cfg.Labels); i++ {
		logits = append(logits, float64(flat.GetFloatAt(0, i)))
	}

	idx, score := argmaxSoftmax(logits)
	if idx < 0 {
		return Result{}, fmt.Errorf("gesture: empty model output")
	}
	return Result{Label: g.cfg.Labels[idx], Score: clamp01(score)}, nil
}

// Close releases the network.
func (g *DNNRecognizer) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.net.Close()
}

// argmaxSoftmax returns the index of the largest logit and its
// softmax probability.
func argmaxSoftmax(logits []float64) (int, float64) {
	if len(logits) == 0 {
		return -1, 0
	}

	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}

	// shift by max for numerical stability
	var sum float64
	for _, v := range logits {
		sum += math.Exp(v - logits[best])
	}
	return best, 1.0 / sum
}
