package imaging

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-handcam/pkg/mempool"
)

// TargetSide is the input edge length the inference models expect.
const TargetSide = 224

var errInvalidSource = errors.New("imaging: invalid source image")

// Normalize converts an arbitrary-aspect RawImage into a target×target
// square by center-cropping the largest fitting square and resampling
// it nearest-neighbor. No interpolation and no color conversion: each
// destination pixel copies the three channel bytes of the single
// nearest source pixel. The destination buffer comes from alloc; an
// allocation failure is returned to the caller, who drops the frame.
func Normalize(src *RawImage, target int, alloc mempool.Allocator) (*NormalizedImage, error) {
	if !src.Valid() {
		return nil, errInvalidSource
	}
	if target <= 0 {
		return nil, fmt.Errorf("imaging: invalid target side %d", target)
	}

	buf, err := alloc.Alloc(target * target * Channels)
	if err != nil {
		return nil, fmt.Errorf("normalize buffer: %w", err)
	}
	dst := &NormalizedImage{Side: target, Pix: buf, alloc: alloc}

	// Already the right geometry: straight copy.
	if src.Width == target && src.Height == target {
		copy(dst.Pix, src.Pix)
		return dst, nil
	}

	crop := src.Width
	if src.Height < crop {
		crop = src.Height
	}
	x0 := (src.Width - crop) / 2
	y0 := (src.Height - crop) / 2

	for y := 0; y < target; y++ {
		sy := y0 + y*crop/target
		srcRow := sy * src.Width
		dstRow := y * target
		for x := 0; x < target; x++ {
			sx := x0 + x*crop/target
			si := (srcRow + sx) * Channels
			di := (dstRow + x) * Channels
			dst.Pix[di] = src.Pix[si]
			dst.Pix[di+1] = src.Pix[si+1]
			dst.Pix[di+2] = src.Pix[si+2]
		}
	}
	return dst, nil
}

// CropRegion extracts a pixel-coordinate region of a normalized image
// into a new RawImage, clamping the rectangle to the image bounds.
// The classifier uses this to cut a detection out of the model input.
func CropRegion(src *NormalizedImage, x0, y0, w, h int, alloc mempool.Allocator) (*RawImage, error) {
	if !src.Valid() {
		return nil, errInvalidSource
	}

	if x0 < 0 {
		w += x0
		x0 = 0
	}
	if y0 < 0 {
		h += y0
		y0 = 0
	}
	if x0+w > src.Side {
		w = src.Side - x0
	}
	if y0+h > src.Side {
		h = src.Side - y0
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("imaging: empty crop region")
	}

	buf, err := alloc.Alloc(w * h * Channels)
	if err != nil {
		return nil, fmt.Errorf("crop buffer: %w", err)
	}
	for y := 0; y < h; y++ {
		si := ((y0+y)*src.Side + x0) * Channels
		di := y * w * Channels
		copy(buf[di:di+w*Channels], src.Pix[si:si+w*Channels])
	}
	return NewRawImage(w, h, buf, alloc), nil
}
