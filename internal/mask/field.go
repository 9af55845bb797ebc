package mask

import (
	"fmt"
	"image"

	"content-aware-fill/internal/raster"

	"github.com/disintegration/gift"
)

// DefaultThreshold marks a pixel for filling when its channel value exceeds 128.
const DefaultThreshold = 128

// Options controls how an RGBA mask buffer is turned into a Field.
type Options struct {
	Channel   int   // 0=R 1=G 2=B 3=A
	Threshold uint8 // fill iff value > Threshold
	Dilate    int   // grow the fill region by this many pixels
}

// DefaultOptions returns red-channel thresholding at 128 with no dilation.
func DefaultOptions() Options {
	return Options{Channel: 0, Threshold: DefaultThreshold}
}

// Field marks the pixels to be synthesized. Immutable after construction.
type Field struct {
	width  int
	height int
	fill   []bool
	count  int
}

// FromRGBA thresholds one channel of an interleaved RGBA mask buffer.
func FromRGBA(rgba []uint8, w, h int, opts Options) (*Field, error) {
	n, err := raster.BufferSize(w, h)
	if err != nil {
		return nil, err
	}
	if len(rgba) != n {
		return nil, fmt.Errorf("mask: RGBA length %d, want %d for %dx%d: %w", len(rgba), n, w, h, raster.ErrOutOfBounds)
	}
	if opts.Channel < 0 || opts.Channel > 3 {
		return nil, fmt.Errorf("mask: channel %d: %w", opts.Channel, raster.ErrOutOfBounds)
	}
	if opts.Dilate < 0 {
		return nil, fmt.Errorf("mask: dilate %d: %w", opts.Dilate, raster.ErrOutOfBounds)
	}

	fill := make([]bool, w*h)
	for i := range fill {
		fill[i] = rgba[i*4+opts.Channel] > opts.Threshold
	}
	if opts.Dilate > 0 {
		fill = dilate(fill, w, h, opts.Dilate)
	}
	return newField(w, h, fill), nil
}

// FromBools builds a field from a row-major fill slice of length w*h.
func FromBools(fill []bool, w, h int) (*Field, error) {
	if w <= 0 || h <= 0 || len(fill) != w*h {
		return nil, fmt.Errorf("mask: %d cells for %dx%d: %w", len(fill), w, h, raster.ErrOutOfBounds)
	}
	cp := make([]bool, len(fill))
	copy(cp, fill)
	return newField(w, h, cp), nil
}

func newField(w, h int, fill []bool) *Field {
	count := 0
	for _, f := range fill {
		if f {
			count++
		}
	}
	return &Field{width: w, height: h, fill: fill, count: count}
}

// dilate grows the fill region with a disk-shaped maximum filter of radius r.
func dilate(fill []bool, w, h, r int) []bool {
	src := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if fill[y*w+x] {
				src.Pix[y*src.Stride+x] = 255
			}
		}
	}

	g := gift.New(gift.Maximum(2*r+1, true))
	dst := image.NewGray(g.Bounds(src.Bounds()))
	g.Draw(dst, src)

	out := make([]bool, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = dst.Pix[y*dst.Stride+x] > 0
		}
	}
	return out
}

// Width returns the field width.
func (f *Field) Width() int { return f.width }

// Height returns the field height.
func (f *Field) Height() int { return f.height }

// Count returns the number of fill pixels.
func (f *Field) Count() int { return f.count }

// Coverage returns the fill fraction in [0, 1].
func (f *Field) Coverage() float64 {
	return float64(f.count) / float64(len(f.fill))
}

// Fill reports whether (x, y) is marked for synthesis.
// Coordinates outside the field are never fill.
func (f *Field) Fill(x, y int) bool {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return false
	}
	return f.fill[y*f.width+x]
}

// FillAt reports whether row-major index i is marked. i must be in range.
func (f *Field) FillAt(i int) bool { return f.fill[i] }
