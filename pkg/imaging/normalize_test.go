package imaging

import (
	"bytes"
	"testing"

	"github.com/teslashibe/go-handcam/pkg/mempool"
)

// gradientImage builds a RawImage whose pixel values encode their
// coordinates, so resampling results can be checked exactly.
func gradientImage(t *testing.T, w, h int, alloc mempool.Allocator) *RawImage {
	t.Helper()
	buf, err := alloc.Alloc(w * h * Channels)
	if err != nil {
		t.Fatalf("alloc source: %v", err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * Channels
			buf[i] = byte(x)
			buf[i+1] = byte(y)
			buf[i+2] = byte(x + y)
		}
	}
	return NewRawImage(w, h, buf, alloc)
}

func TestNormalize_OutputGeometry(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{name: "landscape 320x240", w: 320, h: 240},
		{name: "portrait 240x320", w: 240, h: 320},
		{name: "square smaller than target", w: 100, h: 100},
		{name: "square larger than target", w: 500, h: 500},
		{name: "extreme aspect", w: 1000, h: 8},
		{name: "single row", w: 640, h: 1},
	}

	alloc := mempool.NewPool("test", 0)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := gradientImage(t, tc.w, tc.h, alloc)
			defer src.Free()

			dst, err := Normalize(src, TargetSide, alloc)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			defer dst.Free()

			if dst.Side != TargetSide {
				t.Errorf("side: got %d, want %d", dst.Side, TargetSide)
			}
			if len(dst.Pix) != TargetSide*TargetSide*Channels {
				t.Errorf("buffer: got %d bytes, want %d",
					len(dst.Pix), TargetSide*TargetSide*Channels)
			}
		})
	}
}

func TestNormalize_CropContainedInSource(t *testing.T) {
	// The sampled source coordinate for every destination pixel must
	// stay inside the source bounds. Encoding coordinates in channel
	// values makes any out-of-crop sample visible.
	alloc := mempool.NewPool("test", 0)
	src := gradientImage(t, 64, 48, alloc)
	defer src.Free()

	dst, err := Normalize(src, 32, alloc)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	defer dst.Free()

	// crop = 48, x0 = 8, y0 = 0
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			r, g, _ := dst.RGBAt(x, y)
			sx, sy := int(r), int(g)
			if sx < 8 || sx >= 8+48 {
				t.Fatalf("pixel (%d,%d) sampled sx=%d outside crop [8,56)", x, y, sx)
			}
			if sy < 0 || sy >= 48 {
				t.Fatalf("pixel (%d,%d) sampled sy=%d outside crop [0,48)", x, y, sy)
			}
			wantSx := 8 + x*48/32
			wantSy := y * 48 / 32
			if sx != wantSx || sy != wantSy {
				t.Fatalf("pixel (%d,%d): sampled (%d,%d), want (%d,%d)",
					x, y, sx, sy, wantSx, wantSy)
			}
		}
	}
}

func TestNormalize_IdentityForTargetSizedInput(t *testing.T) {
	alloc := mempool.NewPool("test", 0)
	src := gradientImage(t, TargetSide, TargetSide, alloc)
	defer src.Free()

	dst, err := Normalize(src, TargetSide, alloc)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	defer dst.Free()

	if !bytes.Equal(dst.Pix, src.Pix) {
		t.Fatal("target-sized input must pass through byte-identical")
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	alloc := mempool.NewPool("test", 0)
	src := gradientImage(t, 320, 240, alloc)
	defer src.Free()

	a, err := Normalize(src, TargetSide, alloc)
	if err != nil {
		t.Fatalf("first normalize: %v", err)
	}
	defer a.Free()
	b, err := Normalize(src, TargetSide, alloc)
	if err != nil {
		t.Fatalf("second normalize: %v", err)
	}
	defer b.Free()

	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("identical input must produce byte-identical output")
	}
}

func TestNormalize_AllocatorFallback(t *testing.T) {
	need := TargetSide * TargetSide * Channels
	src := gradientImage(t, 320, 240, mempool.NewPool("src", 0))
	defer src.Free()

	t.Run("fast pool exhausted uses slow pool", func(t *testing.T) {
		alloc := mempool.NewDefault(need/2, 0)
		dst, err := Normalize(src, TargetSide, alloc)
		if err != nil {
			t.Fatalf("normalize with fallback: %v", err)
		}
		defer dst.Free()
		if alloc.Stats().Fallbacks != 1 {
			t.Errorf("fallbacks: got %d, want 1", alloc.Stats().Fallbacks)
		}
	})

	t.Run("both pools exhausted fails without crash", func(t *testing.T) {
		alloc := mempool.NewDefault(need/2, need/2)
		dst, err := Normalize(src, TargetSide, alloc)
		if err == nil {
			dst.Free()
			t.Fatal("expected allocation failure")
		}
		if dst != nil {
			t.Fatal("failed normalize must not return an image")
		}
	})
}

func TestNormalize_InvalidSource(t *testing.T) {
	alloc := mempool.NewPool("test", 0)

	if _, err := Normalize(nil, TargetSide, alloc); err == nil {
		t.Error("nil source must fail")
	}
	if _, err := Normalize(&RawImage{Width: 10, Height: 10}, TargetSide, alloc); err == nil {
		t.Error("source without pixels must fail")
	}

	src := gradientImage(t, 10, 10, alloc)
	defer src.Free()
	if _, err := Normalize(src, 0, alloc); err == nil {
		t.Error("non-positive target must fail")
	}
}

func TestCropRegion_ClampsToBounds(t *testing.T) {
	alloc := mempool.NewPool("test", 0)
	src := gradientImage(t, 32, 32, alloc)
	defer src.Free()
	norm, err := Normalize(src, 32, alloc)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	defer norm.Free()

	tests := []struct {
		name           string
		x0, y0, w, h   int
		wantW, wantH   int
		wantErr        bool
	}{
		{name: "interior", x0: 4, y0: 4, w: 8, h: 8, wantW: 8, wantH: 8},
		{name: "overflows right and bottom", x0: 28, y0: 28, w: 10, h: 10, wantW: 4, wantH: 4},
		{name: "negative origin", x0: -4, y0: -4, w: 10, h: 10, wantW: 6, wantH: 6},
		{name: "fully outside", x0: 40, y0: 40, w: 8, h: 8, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			crop, err := CropRegion(norm, tc.x0, tc.y0, tc.w, tc.h, alloc)
			if tc.wantErr {
				if err == nil {
					crop.Free()
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("crop: %v", err)
			}
			defer crop.Free()
			if crop.Width != tc.wantW || crop.Height != tc.wantH {
				t.Errorf("size: got %dx%d, want %dx%d",
					crop.Width, crop.Height, tc.wantW, tc.wantH)
			}
		})
	}
}

func TestImageFree_Idempotent(t *testing.T) {
	pool := mempool.NewPool("test", 1000)
	buf, _ := pool.Alloc(300)
	img := NewRawImage(10, 10, buf, pool)

	img.Free()
	img.Free()
	if pool.InUse() != 0 {
		t.Fatalf("pool in use after double free: %d", pool.InUse())
	}
	if img.Valid() {
		t.Fatal("freed image must not be valid")
	}
}
