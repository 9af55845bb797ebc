package raster

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOutOfBounds reports a coordinate, channel or dimension outside the raster.
	ErrOutOfBounds = errors.New("out of bounds")
	// ErrAllocationFailure reports a buffer size that cannot be represented or allocated.
	ErrAllocationFailure = errors.New("allocation failure")
)

// MaxBufferSize is the largest RGBA transfer buffer accepted, in bytes.
// Kept at the 32-bit addressable limit so sizes are portable between hosts.
const MaxBufferSize = math.MaxInt32

// ColorChannels is the number of color planes extracted from RGBA input.
const ColorChannels = 3

// BufferSize returns width*height*4, the byte length of an RGBA buffer.
func BufferSize(width, height int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("raster: dimensions %dx%d: %w", width, height, ErrOutOfBounds)
	}
	if width > MaxBufferSize/4/height {
		return 0, fmt.Errorf("raster: %dx%d RGBA exceeds %d bytes: %w", width, height, MaxBufferSize, ErrAllocationFailure)
	}
	return width * height * 4, nil
}

// PixelBuffer holds a planar multi-channel raster.
// Plane c occupies Pix[c*W*H : (c+1)*W*H], each plane row-major.
type PixelBuffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8 // len = W*H*C
}

// NewPixelBuffer allocates a zeroed planar buffer.
func NewPixelBuffer(w, h, c int) (*PixelBuffer, error) {
	if c <= 0 {
		return nil, fmt.Errorf("raster: %d channels: %w", c, ErrOutOfBounds)
	}
	if _, err := BufferSize(w, h); err != nil {
		return nil, err
	}
	return &PixelBuffer{
		Width:    w,
		Height:   h,
		Channels: c,
		Pix:      make([]uint8, w*h*c),
	}, nil
}

// FromRGBA extracts the three color channels of an interleaved RGBA slice.
// Alpha is not copied; callers keep the source slice for it.
func FromRGBA(rgba []uint8, w, h int) (*PixelBuffer, error) {
	n, err := BufferSize(w, h)
	if err != nil {
		return nil, err
	}
	if len(rgba) != n {
		return nil, fmt.Errorf("raster: RGBA length %d, want %d for %dx%d: %w", len(rgba), n, w, h, ErrOutOfBounds)
	}
	pb, err := NewPixelBuffer(w, h, ColorChannels)
	if err != nil {
		return nil, err
	}
	r, g, bl := pb.Plane(0), pb.Plane(1), pb.Plane(2)
	for i := range r {
		src := i * 4
		r[i] = rgba[src]
		g[i] = rgba[src+1]
		bl[i] = rgba[src+2]
	}
	return pb, nil
}

// WriteRGBA interleaves the color planes into dst, leaving every fourth byte (alpha) as is.
func (pb *PixelBuffer) WriteRGBA(dst []uint8) error {
	if pb.Channels != ColorChannels {
		return fmt.Errorf("raster: write RGBA from %d channels: %w", pb.Channels, ErrOutOfBounds)
	}
	plane := pb.Width * pb.Height
	if len(dst) != plane*4 {
		return fmt.Errorf("raster: RGBA length %d, want %d: %w", len(dst), plane*4, ErrOutOfBounds)
	}
	r, g, b := pb.Plane(0), pb.Plane(1), pb.Plane(2)
	for i := range r {
		d := i * 4
		dst[d] = r[i]
		dst[d+1] = g[i]
		dst[d+2] = b[i]
	}
	return nil
}

// In reports whether (x, y) lies inside the raster.
func (pb *PixelBuffer) In(x, y int) bool {
	return x >= 0 && x < pb.Width && y >= 0 && y < pb.Height
}

// Plane returns the slice backing channel c.
func (pb *PixelBuffer) Plane(c int) []uint8 {
	n := pb.Width * pb.Height
	return pb.Pix[c*n : (c+1)*n]
}

// At returns channel c of pixel (x, y).
func (pb *PixelBuffer) At(x, y, c int) (uint8, error) {
	if !pb.In(x, y) || c < 0 || c >= pb.Channels {
		return 0, fmt.Errorf("raster: at (%d,%d,%d) in %dx%dx%d: %w", x, y, c, pb.Width, pb.Height, pb.Channels, ErrOutOfBounds)
	}
	return pb.Pix[c*pb.Width*pb.Height+y*pb.Width+x], nil
}

// Set stores v in channel c of pixel (x, y).
func (pb *PixelBuffer) Set(x, y, c int, v uint8) error {
	if !pb.In(x, y) || c < 0 || c >= pb.Channels {
		return fmt.Errorf("raster: set (%d,%d,%d) in %dx%dx%d: %w", x, y, c, pb.Width, pb.Height, pb.Channels, ErrOutOfBounds)
	}
	pb.Pix[c*pb.Width*pb.Height+y*pb.Width+x] = v
	return nil
}

// Clamp8 rounds v to the nearest integer in [0, 255].
func Clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
