package slidewin

import "sort"

// ClusterRects merges detections that overlap by more than iouThreshold
// into a single averaged rectangle per cluster, summing the member
// confidences. A multi-scale scan usually reports the same object several
// times at nearby positions and sizes; clustering reduces those to one
// detection each. Rects and confs must be positionally aligned.
func ClusterRects(rects []Rect, confs []float32, iouThreshold float64) ([]Rect, []float32) {
	if len(rects) == 0 {
		return nil, nil
	}

	order := make([]int, len(rects))
	for i := range order {
		order[i] = i
	}
	// Strongest detections seed the clusters.
	sort.SliceStable(order, func(i, j int) bool {
		return confs[order[i]] > confs[order[j]]
	})

	assigned := make([]bool, len(rects))
	var (
		merged []Rect
		scores []float32
	)
	for _, i := range order {
		if assigned[i] {
			continue
		}
		var (
			x, y, w, h, n int
			q             float32
		)
		for _, j := range order {
			if assigned[j] {
				continue
			}
			if j != i && rectIoU(rects[i], rects[j]) <= iouThreshold {
				continue
			}
			assigned[j] = true
			x += rects[j].X
			y += rects[j].Y
			w += rects[j].Width
			h += rects[j].Height
			q += confs[j]
			n++
		}
		merged = append(merged, Rect{X: x / n, Y: y / n, Width: w / n, Height: h / n})
		scores = append(scores, q)
	}
	return merged, scores
}

// rectIoU returns the intersection over union of two rectangles.
func rectIoU(a, b Rect) float64 {
	inter := a.Intersect(b).Area()
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
