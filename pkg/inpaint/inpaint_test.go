package inpaint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// solid returns a w*h RGBA buffer filled with c.
func solid(w, h int, c color.NRGBA) []byte {
	buf := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		buf[i*4] = c.R
		buf[i*4+1] = c.G
		buf[i*4+2] = c.B
		buf[i*4+3] = c.A
	}
	return buf
}

// textured returns a deterministic pattern with varying alpha.
func textured(w, h int) []byte {
	buf := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			buf[i] = uint8((x * 31) ^ (y * 17))
			buf[i+1] = uint8(x*8 + y*3)
			buf[i+2] = uint8((x + y) % 2 * 200)
			buf[i+3] = uint8(100 + (x*y)%156)
		}
	}
	return buf
}

// rectMask marks [x0,x1)x[y0,y1) with R=255.
func rectMask(w, h, x0, y0, x1, y1 int) []byte {
	buf := make([]byte, w*h*4)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			buf[(y*w+x)*4] = 255
		}
	}
	return buf
}

func opts(radius, iterations int) Options {
	o := DefaultOptions()
	o.PatchRadius = radius
	o.Iterations = iterations
	return o
}

func TestInpaintEmptyMaskIsIdentity(t *testing.T) {
	img := textured(9, 7)
	out, err := Inpaint(img, make([]byte, len(img)), 9, 7, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, img) {
		t.Error("empty mask changed the image")
	}
	out[0]++
	if img[0] == out[0] {
		t.Error("result aliases the input")
	}
}

func TestInpaintMaskContainmentAndAlpha(t *testing.T) {
	w, h := 20, 16
	img := textured(w, h)
	m := rectMask(w, h, 6, 5, 11, 9)
	// Values at or below the threshold must not count as fill.
	m[(0*w+0)*4] = 128

	orig := bytes.Clone(img)
	origMask := bytes.Clone(m)
	out, err := Inpaint(img, m, w, h, opts(2, 4))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(img, orig) || !bytes.Equal(m, origMask) {
		t.Fatal("inputs were modified")
	}

	for i := 0; i < w*h; i++ {
		p := i * 4
		if out[p+3] != img[p+3] {
			t.Fatalf("alpha changed at pixel %d: %d -> %d", i, img[p+3], out[p+3])
		}
		if m[p] <= 128 && !bytes.Equal(out[p:p+4], img[p:p+4]) {
			t.Fatalf("unmasked pixel %d changed: %v -> %v", i, img[p:p+4], out[p:p+4])
		}
	}
}

func TestInpaintDeterministic(t *testing.T) {
	w, h := 24, 18
	img := textured(w, h)
	m := rectMask(w, h, 8, 6, 15, 12)

	for _, blend := range []bool{false, true} {
		o := opts(2, 3)
		o.Blend = blend
		o.Seed = 1234
		a, err := Inpaint(img, m, w, h, o)
		if err != nil {
			t.Fatal(err)
		}
		b, err := Inpaint(img, m, w, h, o)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("blend=%v: identical inputs and seed gave different output", blend)
		}
	}
}

func TestInpaintBoundaryRejection(t *testing.T) {
	full := solid(3, 3, color.NRGBA{255, 255, 255, 255})
	tests := []struct {
		name    string
		img     []byte
		mask    []byte
		w, h    int
		opts    Options
		wantErr error
	}{
		{"zero width", nil, nil, 0, 4, DefaultOptions(), ErrOutOfBounds},
		{"zero height", nil, nil, 4, 0, DefaultOptions(), ErrOutOfBounds},
		{"short image", make([]byte, 10), make([]byte, 16), 2, 2, DefaultOptions(), ErrOutOfBounds},
		{"short mask", make([]byte, 16), make([]byte, 12), 2, 2, DefaultOptions(), ErrOutOfBounds},
		{"radius zero", make([]byte, 16), make([]byte, 16), 2, 2, opts(0, 1), ErrOutOfBounds},
		{"iterations zero", make([]byte, 16), make([]byte, 16), 2, 2, opts(1, 0), ErrOutOfBounds},
		{"full mask", make([]byte, 36), full, 3, 3, DefaultOptions(), ErrInvalidMask},
		{"overflow", nil, nil, 1 << 30, 1 << 30, DefaultOptions(), ErrAllocationFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Inpaint(tt.img, tt.mask, tt.w, tt.h, tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if out != nil {
				t.Error("output returned together with an error")
			}
		})
	}
}

func TestInpaintSinglePixelScenario(t *testing.T) {
	c := color.NRGBA{200, 100, 50, 255}
	img := solid(4, 4, c)
	m := rectMask(4, 4, 2, 2, 3, 3)
	// Give the hole a different color so the fill is observable.
	img[(2*4+2)*4] = 0

	out, err := Inpaint(img, m, 4, 4, opts(1, 3))
	if err != nil {
		t.Fatal(err)
	}
	want := solid(4, 4, c)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestInpaintBlockOnUniformColor(t *testing.T) {
	c := color.NRGBA{12, 200, 77, 255}
	w, h := 10, 10
	for radius := 1; radius <= 3; radius++ {
		for iterations := 1; iterations <= 5; iterations++ {
			for _, blend := range []bool{false, true} {
				t.Run(fmt.Sprintf("r%d_i%d_blend%v", radius, iterations, blend), func(t *testing.T) {
					img := solid(w, h, c)
					m := rectMask(w, h, 4, 4, 6, 6)
					for y := 4; y < 6; y++ {
						for x := 4; x < 6; x++ {
							copy(img[(y*w+x)*4:], []byte{0, 0, 0})
						}
					}
					o := opts(radius, iterations)
					o.Blend = blend
					out, err := Inpaint(img, m, w, h, o)
					if err != nil {
						t.Fatal(err)
					}
					if diff := cmp.Diff(solid(w, h, c), out); diff != "" {
						t.Errorf("block not filled with surrounding color (-want +got):\n%s", diff)
					}
				})
			}
		}
	}
}

func TestInpaintCopiesFromKnownContent(t *testing.T) {
	// Left half red, right half blue, hole inside the red half.
	w, h := 16, 12
	img := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			if x < w/2 {
				img[i] = 255
			} else {
				img[i+2] = 255
			}
			img[i+3] = 255
		}
	}
	m := rectMask(w, h, 2, 4, 4, 7)

	o := opts(2, 5)
	o.Blend = false
	out, err := Inpaint(img, m, w, h, o)
	if err != nil {
		t.Fatal(err)
	}
	for y := 4; y < 7; y++ {
		for x := 2; x < 4; x++ {
			i := (y*w + x) * 4
			if out[i] != 255 || out[i+2] != 0 {
				t.Errorf("pixel (%d,%d) = %v, want red", x, y, out[i:i+4])
			}
		}
	}
}

func TestInpaintLabSpace(t *testing.T) {
	c := color.NRGBA{90, 90, 200, 255}
	img := solid(8, 8, c)
	m := rectMask(8, 8, 3, 3, 5, 5)
	o := opts(1, 2)
	o.Space = SpaceLab
	out, err := Inpaint(img, m, 8, 8, o)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, img) {
		t.Error("lab space fill of a uniform image differs from the image")
	}
}

func TestInpaintMaskChannelAndThreshold(t *testing.T) {
	img := textured(8, 8)
	m := make([]byte, len(img))
	m[(3*8+3)*4+1] = 50 // green only

	o := opts(1, 2)
	out, err := Inpaint(img, m, 8, 8, o)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, img) {
		t.Error("green mask value filled pixels with the red channel selected")
	}

	o.MaskChannel = 1
	o.MaskThreshold = 10
	if _, err := Inpaint(img, m, 8, 8, o); err != nil {
		t.Fatal(err)
	}
}

func TestOptionsValidate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("DefaultOptions invalid: %v", err)
	}
	bad := []func(*Options){
		func(o *Options) { o.PatchRadius = 0 },
		func(o *Options) { o.Iterations = -1 },
		func(o *Options) { o.MaskChannel = 4 },
		func(o *Options) { o.DilateMask = -2 },
		func(o *Options) { o.TopK = -1 },
		func(o *Options) { o.Space = "cmyk" },
	}
	for i, mutate := range bad {
		o := DefaultOptions()
		mutate(&o)
		if err := o.Validate(); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("case %d: error = %v, want ErrOutOfBounds", i, err)
		}
	}
}

func TestBufferSize(t *testing.T) {
	n, err := BufferSize(640, 480)
	if err != nil || n != 640*480*4 {
		t.Errorf("BufferSize(640, 480) = %d, %v", n, err)
	}
	if _, err := BufferSize(0, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("BufferSize(0, 1) error = %v", err)
	}
}

func TestInpaintImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = 180
		if i%4 == 3 {
			img.Pix[i] = 255
		}
	}
	m := image.NewGray(image.Rect(0, 0, 6, 6))
	m.SetGray(2, 2, color.Gray{Y: 255})
	img.SetNRGBA(12, 12, color.NRGBA{0, 0, 0, 255})

	out, err := InpaintImage(img, m, opts(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if out.Bounds() != image.Rect(0, 0, 6, 6) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	if got := out.NRGBAAt(2, 2); got != (color.NRGBA{180, 180, 180, 255}) {
		t.Errorf("filled pixel = %v", got)
	}

	if _, err := InpaintImage(img, image.NewGray(image.Rect(0, 0, 5, 6)), DefaultOptions()); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("size mismatch error = %v", err)
	}
}

func TestInpaintImageSubImage(t *testing.T) {
	full := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			full.SetNRGBA(x, y, color.NRGBA{120, 60, 30, 255})
		}
	}
	full.SetNRGBA(7, 7, color.NRGBA{0, 255, 0, 255})
	sub := full.SubImage(image.Rect(0, 0, 8, 4))

	m := image.NewGray(image.Rect(0, 0, 8, 4))
	m.SetGray(3, 2, color.Gray{Y: 255})

	out, err := InpaintImage(sub, m, opts(1, 2))
	if err != nil {
		t.Fatalf("InpaintImage on sub-image: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 8, 4) {
		t.Fatalf("bounds = %v", out.Bounds())
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			if got := out.NRGBAAt(x, y); got != (color.NRGBA{120, 60, 30, 255}) {
				t.Errorf("pixel (%d,%d) = %v", x, y, got)
			}
		}
	}
}

func TestInpaintLargeHoleStaysInRegion(t *testing.T) {
	// Top half red, bottom half blue, 10x10 hole deep inside the red half.
	red := color.NRGBA{220, 30, 30, 255}
	w, h := 40, 40
	img := solid(w, h, red)
	blue := solid(w, h/2, color.NRGBA{30, 30, 220, 255})
	copy(img[w*(h/2)*4:], blue)
	m := rectMask(w, h, 15, 5, 25, 15)

	for _, blend := range []bool{false, true} {
		t.Run(fmt.Sprintf("blend=%v", blend), func(t *testing.T) {
			o := opts(1, 5)
			o.Blend = blend
			out, err := Inpaint(img, m, w, h, o)
			if err != nil {
				t.Fatal(err)
			}
			wrong := 0
			for y := 5; y < 15; y++ {
				for x := 15; x < 25; x++ {
					i := (y*w + x) * 4
					if got := (color.NRGBA{out[i], out[i+1], out[i+2], out[i+3]}); got != red {
						wrong++
						t.Logf("pixel (%d,%d) = %v", x, y, got)
					}
				}
			}
			if wrong > 0 {
				t.Errorf("%d/100 hole pixels are not red", wrong)
			}
		})
	}
}

func TestLoggerRouting(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	img := textured(10, 10)
	if _, err := Inpaint(img, rectMask(10, 10, 4, 4, 6, 6), 10, 10, opts(1, 2)); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"patchmatch iteration", "inpaint: done", "fill region"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log output missing %q:\n%s", want, buf.String())
		}
	}

	SetLogger(nil)
	if Logger().Enabled(t.Context(), slog.LevelError) {
		t.Error("SetLogger(nil) should restore the silent logger")
	}
}

func TestInpaintContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	out, err := InpaintContext(ctx, textured(8, 8), rectMask(8, 8, 3, 3, 5, 5), 8, 8, opts(1, 3))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if out != nil {
		t.Error("cancelled call returned output")
	}

	// An empty mask never reaches the engine, so cancellation does not matter.
	if _, err := InpaintContext(ctx, textured(8, 8), make([]byte, 8*8*4), 8, 8, opts(1, 3)); err != nil {
		t.Errorf("empty mask: %v", err)
	}
}
