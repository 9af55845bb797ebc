package patchmatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"content-aware-fill/internal/mask"
	"content-aware-fill/internal/raster"
)

// ErrInvalidMask reports a mask that leaves no pixel to copy from.
var ErrInvalidMask = errors.New("invalid mask")

// Config holds the engine parameters.
type Config struct {
	Radius     int    // patch radius, side = 2*Radius+1
	Iterations int    // propagate/search passes
	Seed       uint64 // seeds the engine-local generator
	Logger     *slog.Logger
}

// Engine runs PatchMatch over the fill pixels of one image.
//
// Holes are matched from their edge inward, one layer at a time. Layer k holds
// the fill pixels at chessboard distance k from the nearest unmasked pixel.
// Once a layer is matched its pixels take the features of their sources, so
// deeper layers compare against them. A final refinement runs over all fill
// pixels with every patch fully known.
//
// An Engine is not safe for concurrent use; build one per image.
type Engine struct {
	cfg    Config
	width  int
	height int
	mask   *mask.Field
	feat   *raster.FeatureBuffer // working copy, fill pixels get overwritten
	metric *Metric
	rng    *rand.Rand
	log    *slog.Logger

	valid    []bool  // valid source centers
	sources  []int   // indices of valid source centers
	targets  []int   // fill pixel indices in raster order
	layers   [][]int // targets grouped by distance to the hole edge
	resolved []bool  // fill pixels holding an offset
	relaxed  bool
}

// New prepares an engine. It fails with ErrInvalidMask when no source center exists.
func New(feat *raster.FeatureBuffer, m *mask.Field, cfg Config) (*Engine, error) {
	if cfg.Iterations < 1 {
		return nil, fmt.Errorf("patchmatch: iterations %d: %w", cfg.Iterations, raster.ErrOutOfBounds)
	}
	work := feat.Clone()
	metric, err := NewMetric(work, m, cfg.Radius)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	e := &Engine{
		cfg:    cfg,
		width:  feat.Width,
		height: feat.Height,
		mask:   m,
		feat:   work,
		metric: metric,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		log:    log,
	}

	for i := 0; i < e.width*e.height; i++ {
		if m.FillAt(i) {
			e.targets = append(e.targets, i)
		}
	}
	if err := e.findSources(); err != nil {
		return nil, err
	}
	e.layers = e.peel()
	e.resolved = make([]bool, e.width*e.height)
	return e, nil
}

// peel groups the targets by chessboard distance to the nearest unmasked
// pixel with a multi-source BFS. Each layer is in raster order.
func (e *Engine) peel() [][]int {
	w, h := e.width, e.height
	dist := make([]int32, w*h)
	queue := make([]int, 0, len(e.targets))
	for i := range dist {
		if !e.mask.FillAt(i) {
			queue = append(queue, i)
		} else {
			dist[i] = -1
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		cx, cy := curr%w, curr/w
		for ny := max(cy-1, 0); ny <= min(cy+1, h-1); ny++ {
			for nx := max(cx-1, 0); nx <= min(cx+1, w-1); nx++ {
				ni := ny*w + nx
				if dist[ni] < 0 {
					dist[ni] = dist[curr] + 1
					queue = append(queue, ni)
				}
			}
		}
	}

	var layers [][]int
	for _, p := range e.targets {
		k := int(dist[p]) - 1
		for len(layers) <= k {
			layers = append(layers, nil)
		}
		layers[k] = append(layers[k], p)
	}
	return layers
}

// findSources marks centers whose clipped patch holds no fill pixel. If there
// are none it falls back to centers that are not fill pixels themselves.
func (e *Engine) findSources() error {
	w, h, r := e.width, e.height, e.cfg.Radius

	// Summed-area table of fill counts, (w+1)*(h+1).
	sw := w + 1
	sat := make([]int32, sw*(h+1))
	for y := 0; y < h; y++ {
		var row int32
		for x := 0; x < w; x++ {
			if e.mask.FillAt(y*w + x) {
				row++
			}
			sat[(y+1)*sw+x+1] = sat[y*sw+x+1] + row
		}
	}

	e.valid = make([]bool, w*h)
	for y := 0; y < h; y++ {
		y0, y1 := max(y-r, 0), min(y+r+1, h)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-r, 0), min(x+r+1, w)
			n := sat[y1*sw+x1] - sat[y0*sw+x1] - sat[y1*sw+x0] + sat[y0*sw+x0]
			if n == 0 {
				i := y*w + x
				e.valid[i] = true
				e.sources = append(e.sources, i)
			}
		}
	}
	if len(e.sources) > 0 {
		return nil
	}

	for i := range e.valid {
		if !e.mask.FillAt(i) {
			e.valid[i] = true
			e.sources = append(e.sources, i)
		}
	}
	if len(e.sources) == 0 {
		return fmt.Errorf("patchmatch: all %d pixels are marked for filling: %w", w*h, ErrInvalidMask)
	}
	e.relaxed = true
	e.log.Warn("no fill-free patch; sources limited to unmasked centers",
		"radius", r, "sources", len(e.sources))
	return nil
}

// Targets returns the fill pixel indices in raster order.
func (e *Engine) Targets() []int { return e.targets }

// Layers returns the targets grouped from the hole edge inward.
func (e *Engine) Layers() [][]int { return e.layers }

// Relaxed reports whether sources fell back to unmasked centers only.
func (e *Engine) Relaxed() bool { return e.relaxed }

// ValidSource reports whether (x, y) may serve as a source patch center.
func (e *Engine) ValidSource(x, y int) bool {
	if x < 0 || x >= e.width || y < 0 || y >= e.height {
		return false
	}
	return e.valid[y*e.width+x]
}

// Run matches every layer for the configured number of iterations, then
// refines all targets for the same number of iterations. The context is
// checked between iterations only. An Engine runs once.
func (e *Engine) Run(ctx context.Context) (*OffsetField, error) {
	f := NewOffsetField(e.width, e.height)

	for li, layer := range e.layers {
		e.initialize(f, layer)
		for it := 0; it < e.cfg.Iterations; it++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			e.pass(f, layer, it%2 == 0)
		}
		e.paint(f, layer)
		e.log.Debug("patchmatch layer", "layer", li+1, "pixels", len(layer), "mean_score", e.meanScore(f, layer))
	}

	// Every target is known now; scores from the layer passes saw only part of
	// their patch.
	for _, p := range e.targets {
		x, y := p%e.width, p/e.width
		sx, sy := f.Source(x, y)
		f.Scores[p] = e.metric.Distance(x, y, sx, sy)
	}
	for it := 0; it < e.cfg.Iterations; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		improved := e.pass(f, e.targets, it%2 == 0)
		if e.log.Enabled(ctx, slog.LevelDebug) {
			e.log.Debug("patchmatch iteration",
				"iteration", it+1,
				"forward", it%2 == 0,
				"improved", improved,
				"mean_score", e.meanScore(f, e.targets))
		}
	}
	return f, nil
}

func (e *Engine) initialize(f *OffsetField, layer []int) {
	for _, p := range layer {
		x, y := p%e.width, p/e.width
		s := e.sources[e.rng.IntN(len(e.sources))]
		sx, sy := s%e.width, s/e.width
		f.set(p, x, y, sx, sy, e.metric.Distance(x, y, sx, sy))
		e.resolved[p] = true
	}
}

// paint gives each pixel of layer the features of its source and marks it known.
func (e *Engine) paint(f *OffsetField, layer []int) {
	for _, p := range layer {
		sx, sy := f.Source(p%e.width, p/e.width)
		s := sy*e.width + sx
		for c := 0; c < e.feat.Channels; c++ {
			pl := e.feat.Plane(c)
			pl[p] = pl[s]
		}
		e.metric.markKnown(p)
	}
}

// pass runs propagation and random search over targets in forward or reverse
// order and returns how many updates it made.
func (e *Engine) pass(f *OffsetField, targets []int, forward bool) int {
	improved := 0
	n := len(targets)
	for k := 0; k < n; k++ {
		p := targets[k]
		step := 1
		if !forward {
			p = targets[n-1-k]
			step = -1
		}
		x, y := p%e.width, p/e.width

		// Neighbors already visited in this pass: left/up going forward, right/down in reverse.
		if e.propagate(f, p, x, y, x-step, y) {
			improved++
		}
		if e.propagate(f, p, x, y, x, y-step) {
			improved++
		}
		improved += e.search(f, p, x, y)
	}
	return improved
}

// propagate tries the offset of neighbor (nx, ny) at pixel p.
func (e *Engine) propagate(f *OffsetField, p, x, y, nx, ny int) bool {
	if nx < 0 || nx >= e.width || ny < 0 || ny >= e.height {
		return false
	}
	q := ny*e.width + nx
	if !e.resolved[q] {
		return false
	}
	o := f.Offsets[q]
	return e.try(f, p, x, y, x+int(o.DX), y+int(o.DY))
}

// search samples around the current source with a halving window.
func (e *Engine) search(f *OffsetField, p, x, y int) int {
	improved := 0
	for radius := max(e.width, e.height); radius >= 1; radius /= 2 {
		bx, by := f.Source(x, y)
		sx := clamp(bx+e.rng.IntN(2*radius+1)-radius, 0, e.width-1)
		sy := clamp(by+e.rng.IntN(2*radius+1)-radius, 0, e.height-1)
		if e.try(f, p, x, y, sx, sy) {
			improved++
		}
	}
	return improved
}

// try adopts source (sx, sy) for pixel p if it is valid and strictly better.
func (e *Engine) try(f *OffsetField, p, x, y, sx, sy int) bool {
	if !e.ValidSource(sx, sy) {
		return false
	}
	cx, cy := f.Source(x, y)
	if cx == sx && cy == sy {
		return false
	}
	cur := f.Scores[p]
	d := e.metric.DistanceBelow(x, y, sx, sy, cur)
	if d < cur {
		f.set(p, x, y, sx, sy, d)
		return true
	}
	return false
}

func (e *Engine) meanScore(f *OffsetField, targets []int) float64 {
	var sum float64
	n := 0
	for _, p := range targets {
		if s := f.Scores[p]; !math.IsInf(s, 0) {
			sum += s
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
