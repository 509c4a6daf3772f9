package slidewin

import (
	"encoding/binary"
	"errors"
	"image"
	"math"

	"github.com/anthonynsimon/bild/transform"
)

// TemplateClassifier is a trainable leaf classifier scoring a crop by its
// grayscale distance to a mean positive template, contrasted against a mean
// negative template when negative crops were part of the training set. It
// is cheap enough to sit at the bottom of a window scan.
type TemplateClassifier struct {
	// Width and Height give the template size. Zero values fall back to
	// the default window width and the batch aspect ratio at train time.
	Width  int
	Height int

	pos []float32
	neg []float32
}

// NewTemplateClassifier returns an untrained template classifier.
func NewTemplateClassifier(width, height int) *TemplateClassifier {
	return &TemplateClassifier{Width: width, Height: height}
}

// Trainable reports that the classifier fits templates during training.
func (tc *TemplateClassifier) Trainable() bool { return true }

// Train replaces the templates with the per-pixel means of the training
// crops, split into positives and crops labeled negative.
func (tc *TemplateClassifier) Train(batch *Batch) error {
	if tc.Width <= 0 {
		tc.Width = 24
	}
	if tc.Height <= 0 {
		if batch.AspectRatio > 0 {
			tc.Height = int(math.Round(float64(tc.Width) / batch.AspectRatio))
		} else {
			tc.Height = tc.Width
		}
	}
	n := tc.Width * tc.Height
	var (
		pos    = make([]float64, n)
		neg    = make([]float64, n)
		posCnt int
		negCnt int
	)
	for _, s := range batch.Samples {
		if s.Image == nil {
			continue
		}
		px := tc.features(s.Image)
		if s.Label == LabelNegative {
			for i, v := range px {
				neg[i] += float64(v)
			}
			negCnt++
		} else {
			for i, v := range px {
				pos[i] += float64(v)
			}
			posCnt++
		}
	}
	if posCnt == 0 {
		return ErrNoPositives
	}
	tc.pos = make([]float32, n)
	for i := range pos {
		tc.pos[i] = float32(pos[i] / float64(posCnt))
	}
	tc.neg = nil
	if negCnt > 0 {
		tc.neg = make([]float32, n)
		for i := range neg {
			tc.neg[i] = float32(neg[i] / float64(negCnt))
		}
	}
	return nil
}

// Project scores a single crop. With a negative template present the score
// is the margin between the crop's distance to the negative template and to
// the positive one, normalized to roughly [-1, 1]; without one it decays
// from 1 with the distance to the positive template. The score is reported
// as the first confidence of the result.
func (tc *TemplateClassifier) Project(src *Sample) (*Sample, error) {
	if len(tc.pos) == 0 {
		return nil, ErrNotTrained
	}
	px := tc.features(src.Image)
	dPos := meanAbsDiff(px, tc.pos)

	var q float64
	if tc.neg != nil {
		q = (meanAbsDiff(px, tc.neg) - dPos) / 255
	} else {
		q = (128 - dPos) / 128
	}
	dst := src.Clone()
	dst.Confidences = []float32{float32(q)}
	return dst, nil
}

// features normalizes a crop to the template size and returns its grayscale
// pixels. Crops arrive at arbitrary sizes, resizing them is the
// classifier's own concern.
func (tc *TemplateClassifier) features(img image.Image) []uint8 {
	b := img.Bounds()
	if b.Dx() != tc.Width || b.Dy() != tc.Height {
		img = transform.Resize(img, tc.Width, tc.Height, transform.Linear)
	}
	return RgbToGrayscale(img)
}

// meanAbsDiff returns the mean absolute difference between crop pixels and
// a template.
func meanAbsDiff(px []uint8, tpl []float32) float64 {
	var sum float64
	for i, v := range px {
		sum += math.Abs(float64(v) - float64(tpl[i]))
	}
	return sum / float64(len(px))
}

const templateMagic = "SLWINTPL"

// Pack serializes the trained templates into a little-endian binary packet.
func (tc *TemplateClassifier) Pack() ([]byte, error) {
	if len(tc.pos) == 0 {
		return nil, ErrNotTrained
	}
	n := len(tc.pos)
	size := 8 + 4 + 4 + 4 + 4*n
	if tc.neg != nil {
		size += 4 * n
	}
	packet := make([]byte, size)
	copy(packet[:8], templateMagic)
	binary.LittleEndian.PutUint32(packet[8:], uint32(tc.Width))
	binary.LittleEndian.PutUint32(packet[12:], uint32(tc.Height))
	var hasNeg uint32
	if tc.neg != nil {
		hasNeg = 1
	}
	binary.LittleEndian.PutUint32(packet[16:], hasNeg)
	off := 20
	for _, v := range tc.pos {
		binary.LittleEndian.PutUint32(packet[off:], math.Float32bits(v))
		off += 4
	}
	for _, v := range tc.neg {
		binary.LittleEndian.PutUint32(packet[off:], math.Float32bits(v))
		off += 4
	}
	return packet, nil
}

// UnpackTemplate restores a trained template classifier from a packet
// produced by Pack.
func UnpackTemplate(packet []byte) (*TemplateClassifier, error) {
	if len(packet) < 20 {
		return nil, errors.New("slidewin: template packet too short")
	}
	if string(packet[:8]) != templateMagic {
		return nil, errors.New("slidewin: not a template packet")
	}
	width := int(binary.LittleEndian.Uint32(packet[8:]))
	height := int(binary.LittleEndian.Uint32(packet[12:]))
	hasNeg := binary.LittleEndian.Uint32(packet[16:]) == 1
	if width <= 0 || height <= 0 {
		return nil, errors.New("slidewin: template packet holds invalid size")
	}
	n := width * height
	want := 20 + 4*n
	if hasNeg {
		want += 4 * n
	}
	if len(packet) < want {
		return nil, errors.New("slidewin: template packet truncated")
	}
	tc := &TemplateClassifier{Width: width, Height: height}
	off := 20
	tc.pos = make([]float32, n)
	for i := range tc.pos {
		tc.pos[i] = math.Float32frombits(binary.LittleEndian.Uint32(packet[off:]))
		off += 4
	}
	if hasNeg {
		tc.neg = make([]float32, n)
		for i := range tc.neg {
			tc.neg[i] = math.Float32frombits(binary.LittleEndian.Uint32(packet[off:]))
			off += 4
		}
	}
	return tc, nil
}
