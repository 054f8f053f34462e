package detect

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-handcam/pkg/imaging"
	"github.com/teslashibe/go-handcam/pkg/mempool"
)

func TestDetection_Center(t *testing.T) {
	tests := []struct {
		name    string
		det     Detection
		expectX float64
		expectY float64
	}{
		{
			name:    "center of image",
			det:     Detection{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
			expectX: 0.5,
			expectY: 0.5,
		},
		{
			name:    "top left corner",
			det:     Detection{X: 0, Y: 0, W: 0.2, H: 0.2},
			expectX: 0.1,
			expectY: 0.1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := tc.det.Center()
			if x != tc.expectX || y != tc.expectY {
				t.Errorf("Center: got (%.2f, %.2f), want (%.2f, %.2f)",
					x, y, tc.expectX, tc.expectY)
			}
		})
	}
}

func TestDetection_PixelRect(t *testing.T) {
	d := Detection{X: 0.25, Y: 0.5, W: 0.5, H: 0.25}
	x0, y0, w, h := d.PixelRect(224)
	if x0 != 56 || y0 != 112 || w != 112 || h != 56 {
		t.Errorf("PixelRect: got (%d,%d,%d,%d), want (56,112,112,56)", x0, y0, w, h)
	}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name       string
		detections []Detection
		expectNil  bool
		expectIdx  int
	}{
		{
			name:       "empty list",
			detections: []Detection{},
			expectNil:  true,
		},
		{
			name: "single detection",
			detections: []Detection{
				{X: 0.4, Y: 0.4, W: 0.2, H: 0.2, Confidence: 0.9},
			},
			expectIdx: 0,
		},
		{
			name: "high confidence beats larger area",
			detections: []Detection{
				{X: 0, Y: 0, W: 0.4, H: 0.4, Confidence: 0.5},
				{X: 0.3, Y: 0.3, W: 0.2, H: 0.2, Confidence: 0.95},
			},
			expectIdx: 1,
		},
		{
			name: "similar confidence picks larger",
			detections: []Detection{
				{X: 0, Y: 0, W: 0.5, H: 0.5, Confidence: 0.8},
				{X: 0.3, Y: 0.3, W: 0.1, H: 0.1, Confidence: 0.8},
			},
			expectIdx: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			best := SelectBest(tc.detections)
			if tc.expectNil {
				if best != nil {
					t.Errorf("expected nil, got %+v", best)
				}
				return
			}
			if best == nil {
				t.Fatal("expected non-nil")
			}
			want := &tc.detections[tc.expectIdx]
			if best.Confidence != want.Confidence || best.X != want.X {
				t.Errorf("got %+v, want %+v", best, want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ModelPath == "" {
		t.Error("ModelPath should not be empty")
	}
	if cfg.ConfidenceThresh <= 0 || cfg.ConfidenceThresh > 1 {
		t.Errorf("ConfidenceThresh should be in (0,1], got %f", cfg.ConfidenceThresh)
	}
	if cfg.MaxDetections <= 0 {
		t.Errorf("MaxDetections should be positive, got %d", cfg.MaxDetections)
	}
}

func testImage(t *testing.T, side int) *imaging.NormalizedImage {
	t.Helper()
	alloc := mempool.NewPool("test", 0)
	src := imaging.NewRawImage(side, side, mustAlloc(t, alloc, side*side*imaging.Channels), alloc)
	img, err := imaging.Normalize(src, side, alloc)
	if err != nil {
		t.Fatalf("build test image: %v", err)
	}
	src.Free()
	return img
}

func mustAlloc(t *testing.T, a *mempool.Pool, n int) []byte {
	t.Helper()
	buf, err := a.Alloc(n)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	return buf
}

func TestRemote_Detect(t *testing.T) {
	img := testImage(t, 8)
	defer img.Free()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Side != 8 {
			t.Errorf("side: got %d, want 8", req.Side)
		}
		raw, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil || len(raw) != 8*8*imaging.Channels {
			t.Errorf("image payload: len=%d err=%v", len(raw), err)
		}
		json.NewEncoder(w).Encode(remoteResponse{
			Detections: []remoteBox{
				{X: 0.1, Y: 0.2, W: 0.3, H: 0.3, Confidence: 0.9},
				{X: 0.5, Y: 0.5, W: 0.1, H: 0.1, Confidence: 0.2}, // below threshold
			},
		})
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, 0.5)
	dets, err := r.Detect(img)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(dets) != 1 {
		t.Fatalf("detections: got %d, want 1", len(dets))
	}
	if dets[0].Confidence != 0.9 {
		t.Errorf("confidence: got %f, want 0.9", dets[0].Confidence)
	}
}

func TestRemote_SidecarError(t *testing.T) {
	img := testImage(t, 8)
	defer img.Free()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, 0.5)
	if _, err := r.Detect(img); err == nil {
		t.Fatal("expected error on sidecar failure")
	}
}

func TestNewDNN_MissingModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")
	if _, err := NewDNN(cfg); err == nil {
		t.Fatal("NewDNN() with missing model should error")
	}
}
