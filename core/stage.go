package slidewin

import "errors"

// Errors reported by the detection stages. Training errors are fatal:
// the canonical window geometry cannot be derived without them resolved.
var (
	// ErrNoPositives is returned when a training batch holds no positive
	// rectangle lying entirely inside its image bounds.
	ErrNoPositives = errors.New("slidewin: no valid positive rectangles in training data")
	// ErrNoDelegate is returned when a composite stage has no classifier
	// configured to judge its windows.
	ErrNoDelegate = errors.New("slidewin: no delegate classifier configured")
	// ErrNoGeometry is returned when a stage is projected before the
	// canonical window geometry was trained or restored.
	ErrNoGeometry = errors.New("slidewin: canonical window geometry not set")
	// ErrNotTrained is returned when a classifier is asked to score a crop
	// before it holds any trained state.
	ErrNotTrained = errors.New("slidewin: classifier is not trained")
)

// Stage is the contract of every pipeline component that can judge or
// transform a sample. Composite stages (WindowScanner, ScalePyramidBuilder)
// and leaf classifiers implement it alike, so detectors compose recursively.
//
// A delegate judging a single crop reports its score as the first element
// of the projected sample's Confidences.
type Stage interface {
	// Trainable reports whether Train has any effect on the stage.
	Trainable() bool
	// Train fits the stage to a labeled batch. Each call replaces the
	// previously trained state.
	Train(batch *Batch) error
	// Project runs the stage over a single sample and returns the result.
	// It must be free of side effects on the input sample.
	Project(src *Sample) (*Sample, error)
}
