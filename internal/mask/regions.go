package mask

import "image"

// Region is one 8-connected group of fill pixels.
type Region struct {
	Size   int
	Bounds image.Rectangle
}

// Regions labels the 8-connected fill regions in scan order of their first pixel.
func Regions(f *Field) []Region {
	w, h := f.width, f.height
	labels := make([]int, w*h)
	for i := range labels {
		labels[i] = -1
	}

	dx := [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	dy := [8]int{-1, -1, -1, 0, 0, 1, 1, 1}

	var regions []Region
	queue := make([]int, 0, 1024)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if !f.fill[idx] || labels[idx] >= 0 {
				continue
			}

			id := len(regions)
			queue = queue[:0]
			queue = append(queue, idx)
			labels[idx] = id
			r := Region{Bounds: image.Rect(x, y, x+1, y+1)}

			for len(queue) > 0 {
				curr := queue[0]
				queue = queue[1:]
				r.Size++

				cy := curr / w
				cx := curr % w
				r.Bounds = r.Bounds.Union(image.Rect(cx, cy, cx+1, cy+1))
				for d := 0; d < 8; d++ {
					nx := cx + dx[d]
					ny := cy + dy[d]
					if nx < 0 || nx >= w || ny < 0 || ny >= h {
						continue
					}
					ni := ny*w + nx
					if f.fill[ni] && labels[ni] < 0 {
						labels[ni] = id
						queue = append(queue, ni)
					}
				}
			}

			regions = append(regions, r)
		}
	}
	return regions
}
