// Package inpaint fills masked regions of RGBA images with PatchMatch
// texture synthesis.
//
// Buffers are interleaved RGBA, row-major, top to bottom, exactly
// width*height*4 bytes. A pixel is filled when its mask channel (red by
// default) exceeds the threshold (128 by default). Everything else,
// including the alpha channel of every pixel, is copied through unchanged.
//
//	out, err := inpaint.Inpaint(img, maskBuf, w, h, inpaint.DefaultOptions())
//	if errors.Is(err, inpaint.ErrInvalidMask) {
//	    // nothing left to copy from
//	}
package inpaint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"content-aware-fill/internal/mask"
	"content-aware-fill/internal/patchmatch"
	"content-aware-fill/internal/raster"
	"content-aware-fill/internal/synth"
)

// Error kinds. Returned errors wrap one of these; test with errors.Is.
var (
	ErrOutOfBounds       = raster.ErrOutOfBounds
	ErrInvalidMask       = patchmatch.ErrInvalidMask
	ErrAllocationFailure = raster.ErrAllocationFailure
)

// BufferSize returns width*height*4, the byte length of an RGBA transfer buffer.
func BufferSize(width, height int) (int, error) {
	return raster.BufferSize(width, height)
}

// Inpaint returns a copy of image with the masked pixels synthesized.
// Neither input slice is modified. On error the result is nil.
func Inpaint(image, maskBuf []byte, width, height int, opts Options) ([]byte, error) {
	return InpaintContext(context.Background(), image, maskBuf, width, height, opts)
}

// InpaintContext is Inpaint with a context checked between PatchMatch iterations.
func InpaintContext(ctx context.Context, image, maskBuf []byte, width, height int, opts Options) ([]byte, error) {
	log := opts.Logger
	if log == nil {
		log = Logger()
	}

	n, err := BufferSize(width, height)
	if err != nil {
		return nil, fmt.Errorf("inpaint: %w", err)
	}
	if len(image) != n {
		return nil, fmt.Errorf("inpaint: image is %d bytes, want %d for %dx%d: %w", len(image), n, width, height, ErrOutOfBounds)
	}
	if len(maskBuf) != n {
		return nil, fmt.Errorf("inpaint: mask is %d bytes, want %d for %dx%d: %w", len(maskBuf), n, width, height, ErrOutOfBounds)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	field, err := mask.FromRGBA(maskBuf, width, height, opts.maskOptions())
	if err != nil {
		return nil, fmt.Errorf("inpaint: mask: %w", err)
	}

	out := make([]byte, n)
	copy(out, image)
	if field.Count() == 0 {
		log.Debug("inpaint: empty mask, returning input", "width", width, "height", height)
		return out, nil
	}
	if log.Enabled(ctx, slog.LevelDebug) {
		for i, r := range mask.Regions(field) {
			log.Debug("inpaint: fill region", "region", i, "pixels", r.Size, "bounds", r.Bounds.String())
		}
	}

	start := time.Now()
	pb, err := raster.FromRGBA(image, width, height)
	if err != nil {
		return nil, fmt.Errorf("inpaint: image: %w", err)
	}
	feat, err := raster.NewFeatureBuffer(pb, opts.Space)
	if err != nil {
		return nil, fmt.Errorf("inpaint: features: %w", err)
	}

	engine, err := patchmatch.New(feat, field, patchmatch.Config{
		Radius:     opts.PatchRadius,
		Iterations: opts.Iterations,
		Seed:       opts.Seed,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("inpaint: %w", err)
	}
	offsets, err := engine.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("inpaint: %w", err)
	}

	err = synth.Apply(pb, field, offsets, engine.Targets(), synth.Options{
		Blend:  opts.Blend,
		TopK:   opts.TopK,
		Radius: opts.PatchRadius,
	})
	if err != nil {
		return nil, fmt.Errorf("inpaint: synthesize: %w", err)
	}
	if err := pb.WriteRGBA(out); err != nil {
		return nil, fmt.Errorf("inpaint: %w", err)
	}

	log.Info("inpaint: done",
		"width", width,
		"height", height,
		"filled", field.Count(),
		"coverage", field.Coverage(),
		"radius", opts.PatchRadius,
		"iterations", opts.Iterations,
		"elapsed", time.Since(start))
	return out, nil
}
