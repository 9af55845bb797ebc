package inpaint

import (
	"fmt"
	"log/slog"

	"content-aware-fill/internal/mask"
	"content-aware-fill/internal/raster"
	"content-aware-fill/internal/synth"
)

// Space selects the color space patches are compared in.
type Space = raster.Space

const (
	SpaceRGB = raster.SpaceRGB
	SpaceLab = raster.SpaceLab
)

// Options tunes one Inpaint call. Start from DefaultOptions.
type Options struct {
	PatchRadius int    // patch side is 2*PatchRadius+1
	Iterations  int    // propagate/search passes, 3-5 is usually enough
	Seed        uint64 // fixed seed gives byte-identical output

	MaskChannel   int   // 0=R 1=G 2=B 3=A
	MaskThreshold uint8 // pixel is filled iff mask channel > MaskThreshold
	DilateMask    int   // grow the fill region by this many pixels

	Blend bool  // blend the best TopK overlapping candidates instead of copying one
	TopK  int   // candidates blended per pixel
	Space Space // color space for patch distances

	// Logger overrides the package logger for this call.
	Logger *slog.Logger
}

// DefaultOptions returns the recommended settings.
func DefaultOptions() Options {
	return Options{
		PatchRadius:   3,
		Iterations:    5,
		Seed:          1,
		MaskChannel:   0,
		MaskThreshold: mask.DefaultThreshold,
		Blend:         true,
		TopK:          synth.DefaultTopK,
		Space:         SpaceRGB,
	}
}

// Validate checks option ranges. Errors wrap ErrOutOfBounds.
func (o Options) Validate() error {
	switch {
	case o.PatchRadius < 1:
		return fmt.Errorf("inpaint: patch radius %d, need >= 1: %w", o.PatchRadius, ErrOutOfBounds)
	case o.Iterations < 1:
		return fmt.Errorf("inpaint: iterations %d, need >= 1: %w", o.Iterations, ErrOutOfBounds)
	case o.MaskChannel < 0 || o.MaskChannel > 3:
		return fmt.Errorf("inpaint: mask channel %d, need 0-3: %w", o.MaskChannel, ErrOutOfBounds)
	case o.DilateMask < 0:
		return fmt.Errorf("inpaint: mask dilation %d: %w", o.DilateMask, ErrOutOfBounds)
	case o.TopK < 0:
		return fmt.Errorf("inpaint: top-k %d: %w", o.TopK, ErrOutOfBounds)
	}
	if _, err := raster.ParseSpace(string(o.Space)); err != nil {
		return fmt.Errorf("inpaint: %v: %w", err, ErrOutOfBounds)
	}
	return nil
}

func (o Options) maskOptions() mask.Options {
	return mask.Options{
		Channel:   o.MaskChannel,
		Threshold: o.MaskThreshold,
		Dilate:    o.DilateMask,
	}
}
