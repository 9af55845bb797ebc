package imageio

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 128, A: 255}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestSaveLoadLossless(t *testing.T) {
	src := checker(5, 4)
	dir := t.TempDir()

	for _, ext := range []string{".png", ".bmp", ".tiff", ".webp"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(dir, "out"+ext)
			if err := Save(path, src, 0); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if diff := cmp.Diff(src.Pix, got.Pix); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeWebPAndJPEG(t *testing.T) {
	src := checker(8, 8)
	for _, ext := range []string{"webp", ".jpg"} {
		var buf bytes.Buffer
		if err := Encode(&buf, src, ext, 0); err != nil {
			t.Fatalf("Encode(%s): %v", ext, err)
		}
		if buf.Len() == 0 {
			t.Errorf("Encode(%s) wrote nothing", ext)
		}
	}
	if err := Encode(&bytes.Buffer{}, src, ".xcf", 0); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestToNRGBAOffsetBounds(t *testing.T) {
	g := image.NewGray(image.Rect(3, 3, 5, 5))
	g.SetGray(3, 3, color.Gray{Y: 200})

	n := ToNRGBA(g)
	if n.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Fatalf("bounds = %v", n.Bounds())
	}
	if got := n.NRGBAAt(0, 0); got != (color.NRGBA{200, 200, 200, 255}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestToNRGBASubImage(t *testing.T) {
	full := checker(8, 8)
	tests := []struct {
		name string
		rect image.Rectangle
	}{
		{"top rows", image.Rect(0, 0, 8, 4)},
		{"left columns", image.Rect(0, 0, 4, 8)},
		{"inner", image.Rect(2, 3, 6, 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := ToNRGBA(full.SubImage(tt.rect))
			w, h := tt.rect.Dx(), tt.rect.Dy()
			if n.Bounds() != image.Rect(0, 0, w, h) {
				t.Fatalf("bounds = %v", n.Bounds())
			}
			if len(n.Pix) != w*h*4 || n.Stride != w*4 {
				t.Fatalf("len(Pix) = %d, stride %d; want %d, %d", len(n.Pix), n.Stride, w*h*4, w*4)
			}
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					want := full.NRGBAAt(tt.rect.Min.X+x, tt.rect.Min.Y+y)
					if got := n.NRGBAAt(x, y); got != want {
						t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
					}
				}
			}
		})
	}

	if n := ToNRGBA(full); n != full {
		t.Error("tight NRGBA should be returned as is")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Error("expected error")
	}
}

func TestBuildIndex(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Photo.jpg", "photo.png", "notes.txt", filepath.Join("nested", "wall.BMP")} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	idx, err := BuildIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 2 {
		t.Errorf("Len = %d, want 2", idx.Len())
	}
	if diff := cmp.Diff([]string{"photo", "wall"}, idx.Stems()); diff != "" {
		t.Errorf("Stems mismatch (-want +got):\n%s", diff)
	}
	path, ok := idx.ResolvePath(`some\dir\PHOTO.webp`)
	if !ok || filepath.Base(path) != "photo.png" {
		t.Errorf("ResolvePath = %q, %v; want photo.png", path, ok)
	}
	if _, ok := idx.ResolvePath("missing"); ok {
		t.Error("ResolvePath(missing) should fail")
	}
}

func TestThumbnail(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 20))
	for i := range src.Pix {
		src.Pix[i] = 255
	}

	th := Thumbnail(src, 10)
	if th.Bounds() != image.Rect(0, 0, 10, 5) {
		t.Fatalf("bounds = %v, want 10x5", th.Bounds())
	}
	if got := th.NRGBAAt(5, 2); got.R < 250 || got.A < 250 {
		t.Errorf("center = %v, want near opaque white", got)
	}
	if Thumbnail(src, 64) != src {
		t.Error("small image should be returned unchanged")
	}
	if got := ThumbnailPath(filepath.Join("out", "a.webp")); got != filepath.Join("out", "a.thumb.webp") {
		t.Errorf("ThumbnailPath = %q", got)
	}
}
