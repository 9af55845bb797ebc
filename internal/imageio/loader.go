package imageio

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// DefaultJPEGQuality is used when Save writes .jpg without an explicit quality.
const DefaultJPEGQuality = 90

// Load reads and decodes an image file into NRGBA with origin (0, 0).
// The decoder is chosen by extension; unknown extensions are sniffed.
func Load(path string) (*image.NRGBA, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("imageio: read %s: %w", path, err)
	}
	img, err := Decode(bytes.NewReader(raw), filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("imageio: decode %s: %w", path, err)
	}
	return img, nil
}

// Decode decodes PNG, JPEG, GIF, BMP, TIFF, TGA or WebP data named by ext.
func Decode(r io.Reader, ext string) (*image.NRGBA, error) {
	var (
		img image.Image
		err error
	)
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "png":
		img, err = png.Decode(r)
	case "jpg", "jpeg":
		img, err = jpeg.Decode(r)
	case "gif":
		img, err = gif.Decode(r)
	case "bmp":
		img, err = bmp.Decode(r)
	case "tif", "tiff":
		img, err = tiff.Decode(r)
	case "tga":
		// TGA has no magic number, so it is never sniffed.
		img, err = tga.Decode(r)
	case "webp":
		img, err = nativewebp.Decode(r)
	default:
		img, _, err = image.Decode(r)
	}
	if err != nil {
		return nil, err
	}
	return ToNRGBA(img), nil
}

// ToNRGBA converts any image to an origin-based NRGBA whose Pix holds exactly
// Dx*Dy pixels with a tight stride. Images without alpha come out fully opaque.
// A conforming *image.NRGBA is returned as is.
func ToNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) &&
		n.Stride == b.Dx()*4 && len(n.Pix) == b.Dx()*b.Dy()*4 {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Save encodes img by the extension of path: .png, .webp, .jpg/.jpeg, .bmp, .tif/.tiff.
// jpegQuality <= 0 selects DefaultJPEGQuality.
func Save(path string, img image.Image, jpegQuality int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("imageio: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: %w", err)
	}
	defer f.Close()

	if err := Encode(f, img, filepath.Ext(path), jpegQuality); err != nil {
		return fmt.Errorf("imageio: encode %s: %w", path, err)
	}
	return f.Close()
}

// Encode writes img in the format named by ext (with or without the dot).
func Encode(w io.Writer, img image.Image, ext string, jpegQuality int) error {
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "png":
		return png.Encode(w, img)
	case "webp":
		return nativewebp.Encode(w, img, nil)
	case "jpg", "jpeg":
		if jpegQuality <= 0 {
			jpegQuality = DefaultJPEGQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case "bmp":
		return bmp.Encode(w, img)
	case "tif", "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("unsupported output format %q", ext)
}
