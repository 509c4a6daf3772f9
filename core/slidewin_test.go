package slidewin_test

import (
	"image"
	"image/color"

	slidewin "github.com/slidewin/slidewin/core"
)

// grayImage builds a uniformly filled NRGBA test image.
func grayImage(w, h int, v uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = v
		img.Pix[i+1] = v
		img.Pix[i+2] = v
		img.Pix[i+3] = 255
	}
	return img
}

// paintRect fills a region of the test image with a gray value.
func paintRect(img *image.NRGBA, r slidewin.Rect, v uint8) {
	for y := r.Y; y < r.Y+r.Height; y++ {
		for x := r.X; x < r.X+r.Width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
}

// scriptedStage is an untrainable classifier stub that hands out canned
// confidences in call order, repeating the last one once exhausted.
type scriptedStage struct {
	confs []float32
	calls int
}

func (st *scriptedStage) Trainable() bool             { return false }
func (st *scriptedStage) Train(*slidewin.Batch) error { return nil }

func (st *scriptedStage) Project(s *slidewin.Sample) (*slidewin.Sample, error) {
	i := st.calls
	st.calls++
	var conf float32
	if len(st.confs) > 0 {
		if i >= len(st.confs) {
			i = len(st.confs) - 1
		}
		conf = st.confs[i]
	}
	out := s.Clone()
	out.Confidences = []float32{conf}
	return out, nil
}

// recordingStage is a trainable stub that keeps every batch it was fit on.
type recordingStage struct {
	scriptedStage
	batches []*slidewin.Batch
}

func (st *recordingStage) Trainable() bool { return true }
func (st *recordingStage) Train(b *slidewin.Batch) error {
	st.batches = append(st.batches, b)
	return nil
}

// levelStage records the pyramid scale of every sample it receives and
// reports the detections produced by hit, when set.
type levelStage struct {
	scales []float64
	hit    func(s *slidewin.Sample) ([]slidewin.Rect, []float32)
}

func (st *levelStage) Trainable() bool             { return false }
func (st *levelStage) Train(*slidewin.Batch) error { return nil }

func (st *levelStage) Project(s *slidewin.Sample) (*slidewin.Sample, error) {
	st.scales = append(st.scales, s.Scale)
	out := s.Clone()
	out.Rects, out.Confidences = nil, nil
	if st.hit != nil {
		out.Rects, out.Confidences = st.hit(s)
	}
	return out, nil
}
