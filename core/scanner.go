package slidewin

import (
	"math"

	"github.com/disintegration/imaging"
)

// WindowScanner slides a fixed size detection window over the source image
// at a configurable stride and keeps every window the delegate classifier
// scores strictly above the threshold. Accepted rectangles are mapped back
// toward original image coordinates using the sample's pyramid scale.
type WindowScanner struct {
	// Delegate judges a single window crop.
	Delegate Stage
	// StepSize is the scan stride in pixels.
	StepSize int
	// TakeFirst stops the scan at the first accepted window.
	TakeFirst bool
	// WindowWidth is the canonical window width in pixels.
	WindowWidth int
	// Threshold is the strict lower bound a confidence must exceed.
	Threshold float32

	aspectRatio  float64
	windowHeight int
}

// NewWindowScanner returns a scanner over the given delegate with the
// default stride, window width and acceptance threshold.
func NewWindowScanner(delegate Stage) *WindowScanner {
	return &WindowScanner{
		Delegate:    delegate,
		StepSize:    1,
		WindowWidth: 24,
	}
}

// Trainable reports that the scanner derives state during training.
func (ws *WindowScanner) Trainable() bool { return true }

// AspectRatio returns the canonical width/height ratio the scanner was
// trained with, or zero when untrained.
func (ws *WindowScanner) AspectRatio() float64 { return ws.aspectRatio }

// WindowHeight returns the derived canonical window height, or zero when
// untrained.
func (ws *WindowScanner) WindowHeight() int { return ws.windowHeight }

// SetGeometry restores the canonical window geometry of a trained scanner,
// typically after unpacking a persisted model.
func (ws *WindowScanner) SetGeometry(aspectRatio float64, windowHeight int) {
	ws.aspectRatio = aspectRatio
	ws.windowHeight = windowHeight
}

// Train derives the canonical window geometry and forwards the batch to a
// trainable delegate untouched: cropping, if any, is the delegate's own
// concern. The batch aspect ratio is estimated only when the caller did not
// already provide one.
func (ws *WindowScanner) Train(batch *Batch) error {
	if ws.Delegate == nil {
		return ErrNoDelegate
	}
	ratio := batch.AspectRatio
	if ratio == 0 {
		var err error
		ratio, err = MeanAspectRatio(batch)
		if err != nil {
			return err
		}
		batch.AspectRatio = ratio
	}
	ws.aspectRatio = ratio
	ws.windowHeight = int(math.Round(float64(ws.WindowWidth) / ratio))
	if ws.Delegate.Trainable() {
		return ws.Delegate.Train(batch)
	}
	return nil
}

// Project scans the sample image row-major and returns a new sample whose
// rectangles and confidences reflect all accepted windows, in scan order.
// Ground-truth samples (Train set) are passed through without scanning.
func (ws *WindowScanner) Project(src *Sample) (*Sample, error) {
	if ws.Delegate == nil {
		return nil, ErrNoDelegate
	}
	if src.Train {
		return src, nil
	}
	if ws.WindowWidth <= 0 || ws.windowHeight <= 0 {
		return nil, ErrNoGeometry
	}

	dst := src.Clone()
	dst.Rects = nil
	dst.Confidences = nil

	scale := src.Scale
	if scale == 0 {
		scale = 1
	}
	step := ws.StepSize
	if step < 1 {
		step = 1
	}

	bounds := src.Image.Bounds()
	rows, cols := bounds.Dy(), bounds.Dx()
	window := Rect{Width: ws.WindowWidth, Height: ws.windowHeight}

	for y := 0; y+ws.windowHeight < rows; y += step {
		for x := 0; x+ws.WindowWidth < cols; x += step {
			window.X, window.Y = x, y
			crop := imaging.Crop(src.Image, window.ToImageRect())
			out, err := ws.Delegate.Project(&Sample{Image: crop, Meta: src.Meta})
			if err != nil {
				return nil, err
			}
			if out == nil || len(out.Confidences) == 0 {
				continue
			}
			conf := out.Confidences[0]
			if conf > ws.Threshold {
				dst.Rects = append(dst.Rects, window.Scaled(scale))
				dst.Confidences = append(dst.Confidences, conf)
				if ws.TakeFirst {
					return dst, nil
				}
			}
		}
	}
	return dst, nil
}
