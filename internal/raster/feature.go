package raster

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Space selects the color space patch distances are measured in.
type Space string

const (
	SpaceRGB Space = "rgb"
	SpaceLab Space = "lab"
)

// ParseSpace accepts "rgb" or "lab"; empty means rgb.
func ParseSpace(s string) (Space, error) {
	switch Space(s) {
	case "", SpaceRGB:
		return SpaceRGB, nil
	case SpaceLab:
		return SpaceLab, nil
	}
	return "", fmt.Errorf("raster: unknown color space %q", s)
}

// FeatureBuffer is a float32 planar copy of a PixelBuffer used for patch comparison.
// Same layout as PixelBuffer.
type FeatureBuffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []float32
}

// NewFeatureBuffer converts the color planes of pb into the given space.
// go-colorful reports L in [0,1] and a, b in about [-1,1]; they are scaled to
// 0..255 and -100..100 so scores stay comparable with the rgb space.
func NewFeatureBuffer(pb *PixelBuffer, space Space) (*FeatureBuffer, error) {
	fb := &FeatureBuffer{
		Width:    pb.Width,
		Height:   pb.Height,
		Channels: pb.Channels,
		Pix:      make([]float32, len(pb.Pix)),
	}

	switch space {
	case "", SpaceRGB:
		for i, v := range pb.Pix {
			fb.Pix[i] = float32(v)
		}
	case SpaceLab:
		if pb.Channels != ColorChannels {
			return nil, fmt.Errorf("raster: lab needs %d channels, have %d: %w", ColorChannels, pb.Channels, ErrOutOfBounds)
		}
		plane := pb.Width * pb.Height
		for i := 0; i < plane; i++ {
			c := colorful.Color{
				R: float64(pb.Pix[i]) / 255.0,
				G: float64(pb.Pix[plane+i]) / 255.0,
				B: float64(pb.Pix[2*plane+i]) / 255.0,
			}
			l, a, b := c.Lab()
			fb.Pix[i] = float32(l * 255.0)
			fb.Pix[plane+i] = float32(a * 100.0)
			fb.Pix[2*plane+i] = float32(b * 100.0)
		}
	default:
		return nil, fmt.Errorf("raster: unknown color space %q", space)
	}
	return fb, nil
}

// Plane returns the slice backing channel c.
func (fb *FeatureBuffer) Plane(c int) []float32 {
	n := fb.Width * fb.Height
	return fb.Pix[c*n : (c+1)*n]
}

// Clone returns a deep copy.
func (fb *FeatureBuffer) Clone() *FeatureBuffer {
	out := *fb
	out.Pix = make([]float32, len(fb.Pix))
	copy(out.Pix, fb.Pix)
	return &out
}
