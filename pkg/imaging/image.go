// Package imaging provides the pixel representations of the
// perception loop and the deterministic geometry between them:
// decoded frames of arbitrary aspect and the fixed square model
// input derived by center-crop plus nearest-neighbor resize.
//
// Every image owns exactly one pool-backed buffer. Free returns the
// buffer to the allocator that produced it and is safe to call more
// than once; only the first call has an effect.
package imaging

import (
	"sync/atomic"

	"github.com/teslashibe/go-handcam/pkg/mempool"
)

// Channels is the fixed pixel layout: interleaved 8-bit RGB.
const Channels = 3

// RawImage is a decoded frame in its native capture aspect ratio.
type RawImage struct {
	Width  int
	Height int
	// Pix holds Width*Height*Channels interleaved RGB bytes.
	Pix []byte

	alloc mempool.Allocator
	freed atomic.Bool
}

// NewRawImage wraps a buffer owned by alloc. The buffer length must
// be w*h*Channels.
func NewRawImage(w, h int, pix []byte, alloc mempool.Allocator) *RawImage {
	return &RawImage{Width: w, Height: h, Pix: pix, alloc: alloc}
}

// Valid reports whether the image carries usable pixel data.
func (i *RawImage) Valid() bool {
	return i != nil && len(i.Pix) > 0 && i.Width > 0 && i.Height > 0
}

// Free returns the pixel buffer to its allocator. Idempotent.
func (i *RawImage) Free() {
	if i == nil || !i.freed.CompareAndSwap(false, true) {
		return
	}
	if i.alloc != nil {
		i.alloc.Free(i.Pix)
	}
	i.Pix = nil
}

// NormalizedImage is the square, fixed-layout model input.
type NormalizedImage struct {
	// Side is the square edge length in pixels.
	Side int
	// Pix holds Side*Side*Channels interleaved RGB bytes.
	Pix []byte

	alloc mempool.Allocator
	freed atomic.Bool
}

// Valid reports whether the image carries usable pixel data.
func (n *NormalizedImage) Valid() bool {
	return n != nil && len(n.Pix) > 0 && n.Side > 0
}

// Free returns the pixel buffer to its allocator. Idempotent.
func (n *NormalizedImage) Free() {
	if n == nil || !n.freed.CompareAndSwap(false, true) {
		return
	}
	if n.alloc != nil {
		n.alloc.Free(n.Pix)
	}
	n.Pix = nil
}

// RGBAt returns the pixel at (x, y). Callers pass coordinates inside
// the image; out-of-range access panics like a slice would.
func (n *NormalizedImage) RGBAt(x, y int) (r, g, b byte) {
	i := (y*n.Side + x) * Channels
	return n.Pix[i], n.Pix[i+1], n.Pix[i+2]
}
