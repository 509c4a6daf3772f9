package slidewin

// MeanAspectRatio estimates the characteristic width/height ratio of the
// object class from the positive rectangles of a training batch. Rectangles
// leaving their image bounds, including ones touching the last row or
// column, are skipped. It returns ErrNoPositives when no rectangle is
// accepted, which callers must treat as a fatal training error.
func MeanAspectRatio(batch *Batch) (float64, error) {
	var (
		sum float64
		cnt int
	)
	for _, s := range batch.Samples {
		if s.Image == nil {
			continue
		}
		for _, r := range s.Rects {
			if !r.In(s.Image) {
				continue
			}
			sum += float64(r.Width) / float64(r.Height)
			cnt++
		}
	}
	if cnt == 0 {
		return 0, ErrNoPositives
	}
	return sum / float64(cnt), nil
}
