package imaging

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-handcam/pkg/camera"
	"github.com/teslashibe/go-handcam/pkg/mempool"
)

// ErrDecode marks a malformed or truncated compressed frame. The
// pipeline drops the frame and moves on.
var ErrDecode = errors.New("imaging: decode failed")

// Decoder converts one compressed frame into a RawImage. It never
// takes ownership of the input frame; the output buffer belongs to
// the caller until freed or handed off.
type Decoder interface {
	Decode(frame *camera.Frame) (*RawImage, error)
}

// GoCVDecoder decodes JPEG frames through OpenCV into interleaved
// RGB pool buffers.
type GoCVDecoder struct {
	alloc mempool.Allocator
}

// NewGoCVDecoder creates a decoder allocating output buffers from alloc.
func NewGoCVDecoder(alloc mempool.Allocator) *GoCVDecoder {
	return &GoCVDecoder{alloc: alloc}
}

// Decode is a pure, synchronous transform. Malformed input yields
// ErrDecode, never a partial image.
func (d *GoCVDecoder) Decode(frame *camera.Frame) (*RawImage, error) {
	if frame == nil || len(frame.Data) == 0 {
		return nil, ErrDecode
	}

	mat, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer mat.Close()
	if mat.Empty() || mat.Cols() <= 0 || mat.Rows() <= 0 {
		return nil, ErrDecode
	}

	// OpenCV decodes to BGR; the models want RGB.
	rgb := gocv.NewMat()
	defer rgb.Close()
	gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)

	w, h := rgb.Cols(), rgb.Rows()
	buf, err := d.alloc.Alloc(w * h * Channels)
	if err != nil {
		return nil, fmt.Errorf("decode buffer: %w", err)
	}
	copy(buf, rgb.ToBytes())

	return NewRawImage(w, h, buf, d.alloc), nil
}

// MockDecoder implements Decoder for testing.
type MockDecoder struct {
	// DecodeFunc is called for each Decode. When nil, Decode returns
	// Image unchanged.
	DecodeFunc func(frame *camera.Frame) (*RawImage, error)

	// Image is returned by the default DecodeFunc.
	Image *RawImage

	Calls int
}

// Decode returns the scripted result.
func (m *MockDecoder) Decode(frame *camera.Frame) (*RawImage, error) {
	m.Calls++
	if m.DecodeFunc != nil {
		return m.DecodeFunc(frame)
	}
	if m.Image == nil {
		return nil, ErrDecode
	}
	return m.Image, nil
}
