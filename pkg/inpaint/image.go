package inpaint

import (
	"context"
	"fmt"
	"image"

	"content-aware-fill/internal/imageio"
)

// InpaintImage runs Inpaint on decoded images. Both images must have the same size;
// the result starts at the origin.
func InpaintImage(img, maskImg image.Image, opts Options) (*image.NRGBA, error) {
	return InpaintImageContext(context.Background(), img, maskImg, opts)
}

// InpaintImageContext is InpaintImage with cancellation.
func InpaintImageContext(ctx context.Context, img, maskImg image.Image, opts Options) (*image.NRGBA, error) {
	b, mb := img.Bounds(), maskImg.Bounds()
	if b.Dx() != mb.Dx() || b.Dy() != mb.Dy() {
		return nil, fmt.Errorf("inpaint: image %dx%d, mask %dx%d: %w", b.Dx(), b.Dy(), mb.Dx(), mb.Dy(), ErrOutOfBounds)
	}

	src := imageio.ToNRGBA(img)
	m := imageio.ToNRGBA(maskImg)
	out, err := InpaintContext(ctx, src.Pix, m.Pix, b.Dx(), b.Dy(), opts)
	if err != nil {
		return nil, err
	}
	return &image.NRGBA{Pix: out, Stride: b.Dx() * 4, Rect: image.Rect(0, 0, b.Dx(), b.Dy())}, nil
}
