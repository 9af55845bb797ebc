package patchmatch

import (
	"fmt"
	"math"

	"content-aware-fill/internal/mask"
	"content-aware-fill/internal/raster"
)

// NoOverlap is the score of two patches that share no comparable pixel pair.
var NoOverlap = math.Inf(1)

// Metric scores the dissimilarity of two square patches of side 2*Radius+1.
//
// A pixel pair is skipped when either side is outside the image, when the
// source side is marked for filling, or when the target side is not known yet.
// Unmasked pixels start known; fill pixels become known once they hold a
// synthesized estimate. The score is the mean over the remaining pairs of the
// squared difference summed across channels, so it does not depend on how much
// of each patch is usable.
type Metric struct {
	feat   *raster.FeatureBuffer
	mask   *mask.Field
	radius int
	planes [][]float32
	known  []bool
}

// NewMetric binds a metric to a feature buffer and a mask of the same size.
func NewMetric(feat *raster.FeatureBuffer, m *mask.Field, radius int) (*Metric, error) {
	if radius < 1 {
		return nil, fmt.Errorf("patchmatch: patch radius %d: %w", radius, raster.ErrOutOfBounds)
	}
	if feat.Width != m.Width() || feat.Height != m.Height() {
		return nil, fmt.Errorf("patchmatch: features %dx%d, mask %dx%d: %w",
			feat.Width, feat.Height, m.Width(), m.Height(), raster.ErrOutOfBounds)
	}
	planes := make([][]float32, feat.Channels)
	for c := range planes {
		planes[c] = feat.Plane(c)
	}
	known := make([]bool, feat.Width*feat.Height)
	for i := range known {
		known[i] = !m.FillAt(i)
	}
	return &Metric{
		feat:   feat,
		mask:   m,
		radius: radius,
		planes: planes,
		known:  known,
	}, nil
}

// Known reports whether pixel index i may be compared on the target side.
func (m *Metric) Known(i int) bool { return m.known[i] }

func (m *Metric) markKnown(i int) { m.known[i] = true }

// Radius returns the patch radius.
func (m *Metric) Radius() int { return m.radius }

// Distance returns the score between the target patch centered at a and the
// source patch centered at b.
func (m *Metric) Distance(ax, ay, bx, by int) float64 {
	return m.DistanceBelow(ax, ay, bx, by, math.Inf(1))
}

// DistanceBelow is Distance with early termination: once the partial sum shows
// the score cannot be below limit it returns +Inf. Any result below limit is
// exactly what Distance returns.
func (m *Metric) DistanceBelow(ax, ay, bx, by int, limit float64) float64 {
	w, h := m.feat.Width, m.feat.Height
	r := m.radius
	side := 2*r + 1
	maxPairs := float64(side * side)

	var sum float64
	count := 0
	for dy := -r; dy <= r; dy++ {
		y1, y2 := ay+dy, by+dy
		if y1 < 0 || y1 >= h || y2 < 0 || y2 >= h {
			continue
		}
		row1, row2 := y1*w, y2*w
		for dx := -r; dx <= r; dx++ {
			x1, x2 := ax+dx, bx+dx
			if x1 < 0 || x1 >= w || x2 < 0 || x2 >= w {
				continue
			}
			i1, i2 := row1+x1, row2+x2
			if !m.known[i1] || m.mask.FillAt(i2) {
				continue
			}
			for _, pl := range m.planes {
				d := float64(pl[i1] - pl[i2])
				sum += d * d
			}
			count++
		}
		// The mean can only shrink to sum/maxPairs, so stop once that is too big.
		if sum/maxPairs >= limit {
			return math.Inf(1)
		}
	}

	if count == 0 {
		return NoOverlap
	}
	return sum / float64(count)
}
