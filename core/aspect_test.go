package slidewin_test

import (
	"errors"
	"math"
	"testing"

	slidewin "github.com/slidewin/slidewin/core"
)

func TestMeanAspectRatio(t *testing.T) {
	img := grayImage(20, 20, 0)
	batch := slidewin.NewBatch(&slidewin.Sample{
		Image: img,
		Rects: []slidewin.Rect{
			slidewin.NewRect(1, 1, 4, 2),
			slidewin.NewRect(8, 8, 3, 3),
		},
	})

	ratio, err := slidewin.MeanAspectRatio(batch)
	if err != nil {
		t.Fatalf("estimating the aspect ratio failed: %v", err)
	}
	want := (4.0/2.0 + 3.0/3.0) / 2
	if math.Abs(ratio-want) > 1e-12 {
		t.Errorf("aspect ratio: got %v, want %v", ratio, want)
	}
}

func TestMeanAspectRatio_ExcludesEdgeRectangles(t *testing.T) {
	img := grayImage(10, 10, 0)
	batch := slidewin.NewBatch(&slidewin.Sample{
		Image: img,
		Rects: []slidewin.Rect{
			// Right edge lands exactly on the image border: excluded.
			slidewin.NewRect(6, 0, 4, 4),
			// Bottom edge lands exactly on the image border: excluded.
			slidewin.NewRect(0, 6, 4, 4),
			// Ends one pixel short of the border: included.
			slidewin.NewRect(0, 0, 9, 3),
		},
	})

	ratio, err := slidewin.MeanAspectRatio(batch)
	if err != nil {
		t.Fatalf("estimating the aspect ratio failed: %v", err)
	}
	if want := 3.0; math.Abs(ratio-want) > 1e-12 {
		t.Errorf("aspect ratio: got %v, want %v (only the in-bounds rectangle counts)", ratio, want)
	}
}

func TestMeanAspectRatio_NegativeOriginExcluded(t *testing.T) {
	img := grayImage(10, 10, 0)
	batch := slidewin.NewBatch(&slidewin.Sample{
		Image: img,
		Rects: []slidewin.Rect{
			slidewin.NewRect(-1, 0, 4, 4),
			slidewin.NewRect(0, -2, 4, 4),
		},
	})

	if _, err := slidewin.MeanAspectRatio(batch); !errors.Is(err, slidewin.ErrNoPositives) {
		t.Fatalf("got %v, want ErrNoPositives", err)
	}
}

func TestMeanAspectRatio_NoPositives(t *testing.T) {
	batch := slidewin.NewBatch(&slidewin.Sample{Image: grayImage(10, 10, 0)})

	if _, err := slidewin.MeanAspectRatio(batch); !errors.Is(err, slidewin.ErrNoPositives) {
		t.Fatalf("got %v, want ErrNoPositives", err)
	}
}
