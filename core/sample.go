package slidewin

import "image"

// LabelNegative marks a training crop that does not contain the target
// object. Crops without a label are treated as positives.
const LabelNegative = "neg"

// Sample is a single unit of pipeline data: one image together with its
// detection regions and the context a stage needs to interpret them.
// Rects and Confidences are positionally aligned, one confidence per
// accepted detection, in scan order.
type Sample struct {
	Image       *image.NRGBA
	Rects       []Rect
	Confidences []float32
	// Scale is the pyramid scale this derived sample was resized at.
	// Zero means the sample is at original resolution (scale 1).
	Scale float64
	// Train marks ground-truth samples. Detection stages pass them through
	// without scanning.
	Train bool
	Label string
	// Meta carries optional forward context for cooperating stages.
	Meta map[string]interface{}
}

// NewSample wraps an image into a sample with no annotations.
func NewSample(img *image.NRGBA) *Sample {
	return &Sample{Image: img}
}

// Clone returns a copy of the sample with fresh rectangle and confidence
// slices. The image buffer is shared, stages that replace pixels allocate
// their own.
func (s *Sample) Clone() *Sample {
	dst := &Sample{
		Image: s.Image,
		Scale: s.Scale,
		Train: s.Train,
		Label: s.Label,
		Meta:  s.Meta,
	}
	if len(s.Rects) > 0 {
		dst.Rects = append([]Rect(nil), s.Rects...)
	}
	if len(s.Confidences) > 0 {
		dst.Confidences = append([]float32(nil), s.Confidences...)
	}
	return dst
}

// Batch groups the samples of one training call together with the shared
// canonical aspect ratio, so downstream stages do not rediscover it from
// a particular batch element.
type Batch struct {
	Samples []*Sample
	// AspectRatio is the canonical width/height ratio. Zero means it has
	// not been estimated yet.
	AspectRatio float64
}

// NewBatch wraps a slice of samples into a training batch.
func NewBatch(samples ...*Sample) *Batch {
	return &Batch{Samples: samples}
}
