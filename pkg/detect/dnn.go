package detect

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-handcam/pkg/imaging"
)

// DNNDetector runs the hand localization model through OpenCV's DNN
// module. The model takes the normalized RGB input and emits rows of
// [cx, cy, w, h, score] in normalized coordinates.
type DNNDetector struct {
	net gocv.Net
	cfg Config
	mu  sync.Mutex // protects inference
}

// NewDNN loads the ONNX model at cfg.ModelPath.
func NewDNN(cfg Config) (*DNNDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("load model %s: empty network", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &DNNDetector{net: net, cfg: cfg}, nil
}

// Detect runs the localizer on a normalized image. The image is
// borrowed for the duration of the call.
func (d *DNNDetector) Detect(img *imaging.NormalizedImage) ([]Detection, error) {
	if !img.Valid() {
		return nil, fmt.Errorf("detect: invalid input image")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	mat, err := gocv.NewMatFromBytes(img.Side, img.Side, gocv.MatTypeCV8UC3, img.Pix)
	if err != nil {
		return nil, fmt.Errorf("detect: wrap input: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0,
		image.Pt(img.Side, img.Side),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	return d.decodeBoxes(out), nil
}

// decodeBoxes converts the output tensor to thresholded detections.
func (d *DNNDetector) decodeBoxes(out gocv.Mat) []Detection {
	flat := out.Reshape(1, out.Total()/5)
	defer flat.Close()

	var dets []Detection
	for r := 0; r < flat.Rows(); r++ {
		score := float64(flat.GetFloatAt(r, 4))
		if score < d.cfg.ConfidenceThresh {
			continue
		}
		cx := float64(flat.GetFloatAt(r, 0))
		cy := float64(flat.GetFloatAt(r, 1))
		w := float64(flat.GetFloatAt(r, 2))
		h := float64(flat.GetFloatAt(r, 3))

		dets = append(dets, Detection{
			X:          clamp01(cx - w/2),
			Y:          clamp01(cy - h/2),
			W:          clamp01(w),
			H:          clamp01(h),
			Confidence: clamp01(score),
		})
		if d.cfg.MaxDetections > 0 && len(dets) >= d.cfg.MaxDetections {
			break
		}
	}
	return dets
}

// Close releases the network.
func (d *DNNDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
