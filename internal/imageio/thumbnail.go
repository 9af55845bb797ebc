package imageio

import (
	"image"
	"path/filepath"
	"strings"

	"content-aware-fill/internal/raster"

	"golang.org/x/image/draw"
)

// Thumbnail scales img so its longer side is maxSide, keeping the aspect
// ratio. Filtering happens on premultiplied alpha so transparent edges do
// not darken. Images already small enough are returned as is.
func Thumbnail(img *image.NRGBA, maxSide int) *image.NRGBA {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}
	w, h := maxSide, maxSide
	if b.Dx() >= b.Dy() {
		h = max(1, (b.Dy()*maxSide+b.Dx()/2)/b.Dx())
	} else {
		w = max(1, (b.Dx()*maxSide+b.Dy()/2)/b.Dy())
	}

	// Premultiply alpha
	premul := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := img.PixOffset(x, y)
			di := premul.PixOffset(x, y)
			a := float64(img.Pix[si+3]) / 255.0
			premul.Pix[di] = uint8(float64(img.Pix[si])*a + 0.5)
			premul.Pix[di+1] = uint8(float64(img.Pix[si+1])*a + 0.5)
			premul.Pix[di+2] = uint8(float64(img.Pix[si+2])*a + 0.5)
			premul.Pix[di+3] = img.Pix[si+3]
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	// Unpremultiply alpha
	result := image.NewNRGBA(dst.Bounds())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			si := dst.PixOffset(x, y)
			di := result.PixOffset(x, y)
			a := float64(dst.Pix[si+3])
			if a > 1 {
				inv := 255.0 / a
				result.Pix[di] = raster.Clamp8(float64(dst.Pix[si]) * inv)
				result.Pix[di+1] = raster.Clamp8(float64(dst.Pix[si+1]) * inv)
				result.Pix[di+2] = raster.Clamp8(float64(dst.Pix[si+2]) * inv)
			}
			result.Pix[di+3] = dst.Pix[si+3]
		}
	}
	return result
}

// ThumbnailPath returns the sibling path used for a thumbnail of out.
func ThumbnailPath(out string) string {
	ext := filepath.Ext(out)
	return strings.TrimSuffix(out, ext) + ".thumb" + ext
}
