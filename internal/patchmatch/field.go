package patchmatch

import (
	"math"
	"sort"
)

// Offset points from a target pixel to the center of its source patch.
type Offset struct {
	DX, DY int32
}

// OffsetField holds the best-known source offset and score for every pixel.
// Only cells marked for filling carry meaningful values.
type OffsetField struct {
	Width   int
	Height  int
	Offsets []Offset
	Scores  []float64
}

// NewOffsetField allocates a field with all scores at NoOverlap.
func NewOffsetField(w, h int) *OffsetField {
	scores := make([]float64, w*h)
	for i := range scores {
		scores[i] = NoOverlap
	}
	return &OffsetField{
		Width:   w,
		Height:  h,
		Offsets: make([]Offset, w*h),
		Scores:  scores,
	}
}

// Source returns the source patch center for pixel (x, y).
func (f *OffsetField) Source(x, y int) (int, int) {
	o := f.Offsets[y*f.Width+x]
	return x + int(o.DX), y + int(o.DY)
}

// Score returns the score stored for pixel (x, y).
func (f *OffsetField) Score(x, y int) float64 {
	return f.Scores[y*f.Width+x]
}

func (f *OffsetField) set(idx, x, y, sx, sy int, score float64) {
	f.Offsets[idx] = Offset{DX: int32(sx - x), DY: int32(sy - y)}
	f.Scores[idx] = score
}

// ScorePercentile returns the p-th percentile (0..1) of the finite scores at
// the given indices, or 0 when none is finite.
func (f *OffsetField) ScorePercentile(indices []int, p float64) float64 {
	vals := make([]float64, 0, len(indices))
	for _, i := range indices {
		if s := f.Scores[i]; !math.IsInf(s, 0) {
			vals = append(vals, s)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	k := int(p * float64(len(vals)-1))
	return vals[k]
}
