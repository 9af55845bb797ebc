// Package synth writes synthesized colors into the fill pixels of a raster
// using a converged offset field.
package synth

import (
	"fmt"
	"math"
	"slices"

	"content-aware-fill/internal/mask"
	"content-aware-fill/internal/patchmatch"
	"content-aware-fill/internal/raster"
)

// DefaultTopK is the number of candidate patches blended per pixel.
const DefaultTopK = 4

// sigmaPercentile picks the score percentile used as the blend bandwidth.
const sigmaPercentile = 0.75

// Options selects between single-source copy and top-K blending.
type Options struct {
	Blend  bool
	TopK   int
	Radius int // patch radius used when collecting overlapping candidates
}

type candidate struct {
	src   int
	score float64
}

// Apply fills every pixel in targets. Only the color planes of fill pixels
// are written; candidate sources are never fill pixels, so reads see original data.
func Apply(pb *raster.PixelBuffer, m *mask.Field, f *patchmatch.OffsetField, targets []int, opts Options) error {
	if pb.Width != f.Width || pb.Height != f.Height || pb.Width != m.Width() || pb.Height != m.Height() {
		return fmt.Errorf("synth: buffer %dx%d, field %dx%d, mask %dx%d: %w",
			pb.Width, pb.Height, f.Width, f.Height, m.Width(), m.Height(), raster.ErrOutOfBounds)
	}
	planes := make([][]uint8, pb.Channels)
	for ch := range planes {
		planes[ch] = pb.Plane(ch)
	}
	if !opts.Blend {
		for _, p := range targets {
			copyPixel(planes, f, p)
		}
		return nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	sigma2 := math.Max(f.ScorePercentile(targets, sigmaPercentile), 1)

	w, h := pb.Width, pb.Height
	r := opts.Radius
	cands := make([]candidate, 0, (2*r+1)*(2*r+1))
	acc := make([]float64, pb.Channels)

	for _, p := range targets {
		x, y := p%w, p/w

		// Every fill pixel q whose patch covers p proposes p shifted by q's offset.
		cands = cands[:0]
		for qy := y - r; qy <= y+r; qy++ {
			for qx := x - r; qx <= x+r; qx++ {
				if !m.Fill(qx, qy) {
					continue
				}
				q := qy*w + qx
				o := f.Offsets[q]
				sx, sy := x+int(o.DX), y+int(o.DY)
				if sx < 0 || sx >= w || sy < 0 || sy >= h || m.Fill(sx, sy) {
					continue
				}
				cands = append(cands, candidate{src: sy*w + sx, score: f.Scores[q]})
			}
		}
		slices.SortStableFunc(cands, func(a, b candidate) int {
			switch {
			case a.score < b.score:
				return -1
			case a.score > b.score:
				return 1
			}
			return 0
		})
		if len(cands) > topK {
			cands = cands[:topK]
		}

		clear(acc)
		var wsum float64
		for _, c := range cands {
			wt := math.Exp(-c.score / (2 * sigma2))
			if wt == 0 {
				continue
			}
			wsum += wt
			for ch, pl := range planes {
				acc[ch] += wt * float64(pl[c.src])
			}
		}
		if wsum == 0 {
			copyPixel(planes, f, p)
			continue
		}
		for ch, pl := range planes {
			pl[p] = raster.Clamp8(acc[ch] / wsum)
		}
	}
	return nil
}

func copyPixel(planes [][]uint8, f *patchmatch.OffsetField, p int) {
	w := f.Width
	sx, sy := f.Source(p%w, p/w)
	s := sy*w + sx
	for _, pl := range planes {
		pl[p] = pl[s]
	}
}
