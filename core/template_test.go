package slidewin_test

import (
	"errors"
	"testing"

	slidewin "github.com/slidewin/slidewin/core"
)

func templateBatch() *slidewin.Batch {
	return &slidewin.Batch{
		AspectRatio: 1,
		Samples: []*slidewin.Sample{
			{Image: grayImage(8, 8, 250), Train: true},
			{Image: grayImage(8, 8, 255), Train: true},
			{Image: grayImage(8, 8, 5), Train: true, Label: slidewin.LabelNegative},
			{Image: grayImage(8, 8, 0), Train: true, Label: slidewin.LabelNegative},
		},
	}
}

func TestTemplateClassifier_SeparatesClasses(t *testing.T) {
	tc := slidewin.NewTemplateClassifier(8, 0)
	if err := tc.Train(templateBatch()); err != nil {
		t.Fatalf("training failed: %v", err)
	}
	if tc.Height != 8 {
		t.Fatalf("template height: got %d, want 8 from the batch aspect ratio", tc.Height)
	}

	bright, err := tc.Project(slidewin.NewSample(grayImage(8, 8, 255)))
	if err != nil {
		t.Fatalf("scoring failed: %v", err)
	}
	dark, err := tc.Project(slidewin.NewSample(grayImage(8, 8, 0)))
	if err != nil {
		t.Fatalf("scoring failed: %v", err)
	}

	if len(bright.Confidences) != 1 || len(dark.Confidences) != 1 {
		t.Fatal("a leaf classifier must report exactly one confidence")
	}
	if bright.Confidences[0] <= dark.Confidences[0] {
		t.Errorf("bright crop scored %v, dark crop %v; want the positive class higher",
			bright.Confidences[0], dark.Confidences[0])
	}
	if bright.Confidences[0] <= 0 {
		t.Errorf("crop matching the positive template scored %v, want > 0", bright.Confidences[0])
	}
	if dark.Confidences[0] >= 0 {
		t.Errorf("crop matching the negative template scored %v, want < 0", dark.Confidences[0])
	}
}

func TestTemplateClassifier_ResizesForeignCrops(t *testing.T) {
	tc := slidewin.NewTemplateClassifier(8, 8)
	if err := tc.Train(templateBatch()); err != nil {
		t.Fatalf("training failed: %v", err)
	}

	// Crops of any size are normalized by the classifier itself.
	out, err := tc.Project(slidewin.NewSample(grayImage(20, 14, 255)))
	if err != nil {
		t.Fatalf("scoring an oversized crop failed: %v", err)
	}
	if out.Confidences[0] <= 0 {
		t.Errorf("bright oversized crop scored %v, want > 0", out.Confidences[0])
	}
}

func TestTemplateClassifier_Errors(t *testing.T) {
	tc := slidewin.NewTemplateClassifier(8, 8)
	if _, err := tc.Project(slidewin.NewSample(grayImage(8, 8, 0))); !errors.Is(err, slidewin.ErrNotTrained) {
		t.Errorf("project before training: got %v, want ErrNotTrained", err)
	}
	if _, err := tc.Pack(); !errors.Is(err, slidewin.ErrNotTrained) {
		t.Errorf("pack before training: got %v, want ErrNotTrained", err)
	}

	onlyNegatives := &slidewin.Batch{Samples: []*slidewin.Sample{
		{Image: grayImage(8, 8, 0), Label: slidewin.LabelNegative},
	}}
	if err := tc.Train(onlyNegatives); !errors.Is(err, slidewin.ErrNoPositives) {
		t.Errorf("training without positives: got %v, want ErrNoPositives", err)
	}
}

func TestTemplateClassifier_PackUnpack(t *testing.T) {
	tc := slidewin.NewTemplateClassifier(8, 0)
	if err := tc.Train(templateBatch()); err != nil {
		t.Fatalf("training failed: %v", err)
	}
	packet, err := tc.Pack()
	if err != nil {
		t.Fatalf("packing failed: %v", err)
	}

	restored, err := slidewin.UnpackTemplate(packet)
	if err != nil {
		t.Fatalf("unpacking failed: %v", err)
	}
	if restored.Width != tc.Width || restored.Height != tc.Height {
		t.Fatalf("restored size: got %dx%d, want %dx%d",
			restored.Width, restored.Height, tc.Width, tc.Height)
	}

	crop := slidewin.NewSample(grayImage(8, 8, 200))
	want, err := tc.Project(crop)
	if err != nil {
		t.Fatalf("scoring failed: %v", err)
	}
	got, err := restored.Project(crop)
	if err != nil {
		t.Fatalf("scoring with the restored classifier failed: %v", err)
	}
	if got.Confidences[0] != want.Confidences[0] {
		t.Errorf("restored classifier scores %v, original %v", got.Confidences[0], want.Confidences[0])
	}

	if _, err := slidewin.UnpackTemplate(packet[:12]); err == nil {
		t.Error("a truncated packet must be rejected")
	}
	packet[0] = 'X'
	if _, err := slidewin.UnpackTemplate(packet); err == nil {
		t.Error("a packet with a wrong magic must be rejected")
	}
}
