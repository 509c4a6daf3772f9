package slidewin

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/disintegration/imaging"
)

// defaultMaxRetries bounds the random draws spent on a single negative crop
// before sampling gives up on the image.
const defaultMaxRetries = 1000

// ScalePyramidBuilder detects objects at multiple sizes with a fixed size
// window. During training it extracts canonical size positive crops and
// randomly sampled negative crops and fits the delegate on them. During
// inference it resizes the image along a geometric scale sequence and runs
// the delegate, typically a WindowScanner, over every level.
type ScalePyramidBuilder struct {
	// Delegate is the detector run on every pyramid level and trained on
	// the extracted crops.
	Delegate Stage
	// ScaleFactor sets the pyramid step: each iteration decrements the
	// scale by 1-ScaleFactor, so values closer to 1 produce a finer
	// descent. Must be below 1.
	ScaleFactor float64
	// TakeLargestScale stops the descent at the first level that yields
	// at least one detection.
	TakeLargestScale bool
	// WindowWidth is the canonical window width in pixels.
	WindowWidth int
	// NegToPosRatio is the number of negative crops sampled per accepted
	// positive.
	NegToPosRatio int
	// MinSize is the lower bound on the free dimension of a sampled
	// negative crop.
	MinSize int
	// MaxOverlap is the tolerated overlap between two negative crops, as
	// a fraction of the earlier crop's own area. Negatives never overlap
	// a positive.
	MaxOverlap float64
	// MinScale is the pyramid descent floor.
	MinScale float64
	// NegSamples toggles negative sampling during training.
	NegSamples bool
	// MaxRetries bounds the random draws per negative crop, so training
	// terminates on images with no valid negative region. Zero applies
	// the default.
	MaxRetries int

	aspectRatio  float64
	windowHeight int
	rng          *rand.Rand
}

// NewScalePyramidBuilder returns a pyramid builder over the given delegate
// with the default parameters.
func NewScalePyramidBuilder(delegate Stage) *ScalePyramidBuilder {
	return &ScalePyramidBuilder{
		Delegate:      delegate,
		ScaleFactor:   0.75,
		WindowWidth:   24,
		NegToPosRatio: 1,
		MinSize:       8,
		MinScale:      1.0,
		NegSamples:    true,
		MaxRetries:    defaultMaxRetries,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed reseeds the negative sampler, making training crop extraction
// reproducible.
func (sp *ScalePyramidBuilder) Seed(seed int64) {
	sp.rng = rand.New(rand.NewSource(seed))
}

// Trainable reports that the builder derives state during training.
func (sp *ScalePyramidBuilder) Trainable() bool { return true }

// AspectRatio returns the canonical width/height ratio the builder was
// trained with, or zero when untrained.
func (sp *ScalePyramidBuilder) AspectRatio() float64 { return sp.aspectRatio }

// WindowHeight returns the derived canonical window height, or zero when
// untrained.
func (sp *ScalePyramidBuilder) WindowHeight() int { return sp.windowHeight }

// SetGeometry restores the canonical window geometry of a trained builder,
// typically after unpacking a persisted model.
func (sp *ScalePyramidBuilder) SetGeometry(aspectRatio float64, windowHeight int) {
	sp.aspectRatio = aspectRatio
	sp.windowHeight = windowHeight
}

// Train estimates the canonical aspect ratio over the batch, derives the
// window geometry and, when the delegate is trainable, fits it on the
// extracted positive and negative crops, all resized to canonical size.
func (sp *ScalePyramidBuilder) Train(batch *Batch) error {
	if sp.Delegate == nil {
		return ErrNoDelegate
	}
	ratio, err := MeanAspectRatio(batch)
	if err != nil {
		return err
	}
	sp.aspectRatio = ratio
	sp.windowHeight = int(math.Round(float64(sp.WindowWidth) / ratio))
	batch.AspectRatio = ratio

	if !sp.Delegate.Trainable() {
		return nil
	}

	full := &Batch{AspectRatio: ratio}
	for _, s := range batch.Samples {
		if s.Image == nil {
			continue
		}
		var negRects []Rect
		for _, pos := range s.Rects {
			adj := fitAspect(pos, ratio)
			if !adj.In(s.Image) {
				continue
			}
			full.Samples = append(full.Samples, sp.crop(s, adj, ""))
			if sp.NegSamples {
				negRects = sp.sampleNegatives(s, negRects, full)
			}
		}
	}
	return sp.Delegate.Train(full)
}

// Project runs the delegate over every level of the scale pyramid and
// merges the detections onto the result sample. The delegate receives each
// level with its scale attached and reports rectangles already mapped back
// to original image coordinates. Ground-truth samples are passed through.
func (sp *ScalePyramidBuilder) Project(src *Sample) (*Sample, error) {
	if sp.Delegate == nil {
		return nil, ErrNoDelegate
	}
	if src.Train {
		return src, nil
	}
	if sp.aspectRatio <= 0 || sp.windowHeight <= 0 || sp.WindowWidth <= 0 {
		return nil, ErrNoGeometry
	}
	step := 1.0 - sp.ScaleFactor
	if step <= 0 {
		return nil, fmt.Errorf("slidewin: scale factor must be below 1, got %v", sp.ScaleFactor)
	}

	bounds := src.Image.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()

	var start float64
	if float64(cols)/float64(rows) > sp.aspectRatio {
		start = math.Round(float64(rows) / float64(sp.windowHeight))
	} else {
		start = math.Round(float64(cols) / float64(sp.WindowWidth))
	}

	dst := src.Clone()
	dst.Rects = nil
	dst.Confidences = nil

	for scale := start; scale >= sp.MinScale; scale -= step {
		w := max(1, int(math.Round(float64(cols)/scale)))
		h := max(1, int(math.Round(float64(rows)/scale)))
		level := &Sample{
			Image: imaging.Resize(src.Image, w, h, imaging.Linear),
			Scale: scale,
			Meta:  src.Meta,
		}
		out, err := sp.Delegate.Project(level)
		if err != nil {
			return nil, err
		}
		if out != nil {
			dst.Rects = append(dst.Rects, out.Rects...)
			dst.Confidences = append(dst.Confidences, out.Confidences...)
		}
		if sp.TakeLargestScale && len(dst.Rects) > 0 {
			return dst, nil
		}
	}
	return dst, nil
}

// crop extracts a region of the sample image and resizes it to the
// canonical window size, labeling the resulting training crop.
func (sp *ScalePyramidBuilder) crop(s *Sample, r Rect, label string) *Sample {
	img := imaging.Resize(
		imaging.Crop(s.Image, r.ToImageRect()),
		sp.WindowWidth, sp.windowHeight, imaging.Lanczos,
	)
	return &Sample{Image: img, Train: true, Label: label, Meta: s.Meta}
}

// sampleNegatives draws up to NegToPosRatio random crops that avoid every
// positive rectangle entirely and overlap previously accepted negatives by
// at most MaxOverlap of their own area. Accepted crops are appended to the
// training batch. Each negative gets at most MaxRetries draws; when an
// image has no remaining valid region the negatives accepted so far are
// kept and sampling stops.
func (sp *ScalePyramidBuilder) sampleNegatives(s *Sample, negRects []Rect, full *Batch) []Rect {
	bounds := s.Image.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	retries := sp.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	for sampled := 0; sampled < sp.NegToPosRatio; sampled++ {
		var (
			cand Rect
			ok   bool
		)
		for attempt := 0; attempt < retries; attempt++ {
			x := sp.rng.Intn(cols)
			y := sp.rng.Intn(rows)
			maxWidth := cols - x
			maxHeight := rows - y
			if maxWidth <= sp.MinSize || maxHeight <= sp.MinSize {
				continue
			}
			var width, height int
			if sp.aspectRatio > float64(maxWidth)/float64(maxHeight) {
				width = sp.MinSize + sp.rng.Intn(maxWidth-sp.MinSize)
				height = int(math.Round(float64(width) / sp.aspectRatio))
			} else {
				height = sp.MinSize + sp.rng.Intn(maxHeight-sp.MinSize)
				width = int(math.Round(float64(height) * sp.aspectRatio))
			}
			cand = Rect{X: x, Y: y, Width: width, Height: height}
			if width <= 0 || height <= 0 || x+width > cols || y+height > rows {
				continue
			}
			// Negatives may never touch a positive, but may share area
			// with earlier negatives up to the configured fraction.
			if overlapsAny(s.Rects, cand, 0) || overlapsAny(negRects, cand, sp.MaxOverlap) {
				continue
			}
			ok = true
			break
		}
		if !ok {
			return negRects
		}
		negRects = append(negRects, cand)
		full.Samples = append(full.Samples, sp.crop(s, cand, LabelNegative))
	}
	return negRects
}

// fitAspect adjusts the width of a positive rectangle so it matches the
// canonical aspect ratio, re-centering it horizontally by half the delta.
func fitAspect(r Rect, ratio float64) Rect {
	w := int(math.Round(float64(r.Height) * ratio))
	r.X += (r.Width - w) / 2
	r.Width = w
	return r
}
