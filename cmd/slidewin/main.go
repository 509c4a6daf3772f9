package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/fogleman/gg"
	slidewin "github.com/slidewin/slidewin/core"
	"github.com/slidewin/slidewin/utils"
	"golang.org/x/image/bmp"
	"golang.org/x/term"
)

const banner = `
┌─┐┬  ┬┌┬┐┌─┐┬ ┬┬┌┐┌
└─┐│  │ ││├┤ ││││││││
└─┘┴─┘┴─┴┘└─┘└┴┘┴┘└┘

Multi-scale sliding-window object detection.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

const (
	// markerRectangle - draw detections as rectangles
	markerRectangle = "rect"
	// markerCircle - draw detections as circles
	markerCircle = "circle"

	// message colors
	successColor = "\x1b[92m"
	errorColor   = "\x1b[31m"
	defaultColor = "\x1b[0m"
)

// Version indicates the current build version.
var Version string

// detector bundles the pipeline settings gathered from the command line.
type detector struct {
	modelFile    string
	destination  string
	windowWidth  int
	stepSize     int
	threshold    float64
	scaleFactor  float64
	minScale     float64
	negToPos     int
	minSize      int
	maxOverlap   float64
	negSamples   bool
	iouThreshold float64
	takeFirst    bool
	takeLargest  bool
}

// annotation is one labeled training image: a path plus its positive
// regions.
type annotation struct {
	Image string           `json:"image"`
	Rects []annotTrainRect `json:"rects"`
}

type annotTrainRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// detection is the JSON shape of one reported object.
type detection struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Score  float32 `json:"score"`
}

func main() {
	var (
		source      = flag.String("in", pipeName, "Source image")
		destination = flag.String("out", "empty", "Destination image")
		modelFile   = flag.String("model", "", "Trained model file")
		trainFile   = flag.String("train", "", "Annotation json file; trains a model instead of detecting")
		windowWidth = flag.Int("width", 24, "Canonical window width")
		stepSize    = flag.Int("step", 2, "Scan stride in pixels")
		threshold   = flag.Float64("threshold", 0.5, "Confidence a window must exceed")
		scaleFactor = flag.Float64("scale", 0.75, "Pyramid scale factor, below 1; closer to 1 descends finer")
		minScale    = flag.Float64("minscale", 1.0, "Pyramid descent floor")
		negToPos    = flag.Int("negratio", 1, "Negative crops sampled per positive during training")
		minSize     = flag.Int("minsize", 8, "Minimum dimension of sampled negatives")
		maxOverlap  = flag.Float64("maxoverlap", 0, "Tolerated overlap fraction between sampled negatives")
		negSamples  = flag.Bool("negsamples", true, "Sample negative crops during training")
		iou         = flag.Float64("iou", 0.2, "Intersection over union threshold for clustering")
		takeFirst   = flag.Bool("first", false, "Stop scanning at the first accepted window")
		takeLargest = flag.Bool("largest", false, "Stop the pyramid at the first scale with a detection")
		marker      = flag.String("marker", markerRectangle, "Detection marker: rect|circle")
		jsonf       = flag.String("json", "", "Output the detections into a json file")
	)

	log.SetFlags(0)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, banner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if len(*modelFile) == 0 {
		log.Fatal("Usage: slidewin -model model.bin [-train annotations.json | -in input.jpg -out out.png]")
	}

	det := &detector{
		modelFile:    *modelFile,
		destination:  *destination,
		windowWidth:  *windowWidth,
		stepSize:     *stepSize,
		threshold:    *threshold,
		scaleFactor:  *scaleFactor,
		minScale:     *minScale,
		negToPos:     *negToPos,
		minSize:      *minSize,
		maxOverlap:   *maxOverlap,
		negSamples:   *negSamples,
		iouThreshold: *iou,
		takeFirst:    *takeFirst,
		takeLargest:  *takeLargest,
	}

	if len(*trainFile) > 0 {
		trainPipeline(det, *trainFile)
		return
	}
	detectPipeline(det, *source, *marker, *jsonf)
}

// trainPipeline fits the detection pipeline on the annotated images and
// writes the model file.
func trainPipeline(det *detector, trainFile string) {
	start := time.Now()
	ind := utils.NewProgressIndicator("Training...", time.Millisecond*100)
	ind.Start()

	fail := func(format string, args ...interface{}) {
		ind.StopMsg = fmt.Sprintf("Training... %sfailed ✗%s", errorColor, defaultColor)
		ind.Stop()
		log.Fatalf(format, args...)
	}

	batch, err := loadAnnotations(trainFile)
	if err != nil {
		fail("Error reading the training data: %s%v%s", errorColor, err, defaultColor)
	}

	pyramid, _, clf := det.pipeline()
	if err := pyramid.Train(batch); err != nil {
		fail("Training error: %s%v%s", errorColor, err, defaultColor)
	}

	model := slidewin.PackGeometry(pyramid.AspectRatio(), det.windowWidth, pyramid.WindowHeight())
	tpl, err := clf.Pack()
	if err != nil {
		fail("Error packing the model: %s%v%s", errorColor, err, defaultColor)
	}
	model = append(model, tpl...)

	if err := os.WriteFile(det.modelFile, model, 0644); err != nil {
		fail("Unable to write the model file: %s%v%s", errorColor, err, defaultColor)
	}

	ind.StopMsg = fmt.Sprintf("Training... %sfinished ✔%s", successColor, defaultColor)
	ind.Stop()
	log.Printf("\nModel written to %s%s%s (aspect ratio %.3f)", successColor, det.modelFile, defaultColor, pyramid.AspectRatio())
	log.Printf("Execution time: %s%.2fs%s\n", successColor, time.Since(start).Seconds(), defaultColor)
}

// detectPipeline restores the model, runs it over the source image and
// reports the clustered detections.
func detectPipeline(det *detector, source, marker, jsonf string) {
	start := time.Now()
	ind := utils.NewProgressIndicator("Detecting...", time.Millisecond*100)
	ind.Start()

	fail := func(format string, args ...interface{}) {
		ind.StopMsg = fmt.Sprintf("Detecting... %sfailed ✗%s", errorColor, defaultColor)
		ind.Stop()
		log.Fatalf(format, args...)
	}

	src, err := readImage(source)
	if err != nil {
		fail("Cannot open the source image: %s%v%s", errorColor, err, defaultColor)
	}

	pyramid, err := det.restore()
	if err != nil {
		fail("Cannot restore the model: %s%v%s", errorColor, err, defaultColor)
	}

	out, err := pyramid.Project(slidewin.NewSample(src))
	if err != nil {
		fail("Detection error: %s%v%s", errorColor, err, defaultColor)
	}
	rects, confs := slidewin.ClusterRects(out.Rects, out.Confidences, det.iouThreshold)

	ind.StopMsg = fmt.Sprintf("Detecting... %sfinished ✔%s", successColor, defaultColor)
	ind.Stop()

	dets := make([]detection, len(rects))
	for i, r := range rects {
		dets[i] = detection{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height, Score: confs[i]}
	}

	if det.destination != "empty" {
		dc := gg.NewContext(src.Bounds().Dx(), src.Bounds().Dy())
		dc.DrawImage(src, 0, 0)
		drawDetections(dc, rects, marker)
		if err := writeImage(dc, det.destination); err != nil {
			log.Fatalf("Error encoding the output image: %v", err)
		}
	}

	if len(dets) > 0 {
		log.Printf("\n%s%d%s object(s) detected", successColor, len(dets), defaultColor)
	} else {
		log.Printf("\n%sno detected objects!%s", errorColor, defaultColor)
	}

	if len(jsonf) > 0 {
		var w io.Writer
		if jsonf == pipeName {
			w = os.Stdout
		} else {
			f, err := os.Create(jsonf)
			if err != nil {
				log.Fatalf("Could not create the json file: %v", err)
			}
			defer f.Close()
			w = f
		}
		if err := json.NewEncoder(w).Encode(dets); err != nil {
			log.Fatalf("Error encoding the json file: %v", err)
		}
	}

	log.Printf("Execution time: %s%.2fs%s\n", successColor, time.Since(start).Seconds(), defaultColor)
}

// pipeline assembles an untrained pyramid → scanner → template stack from
// the command line settings.
func (det *detector) pipeline() (*slidewin.ScalePyramidBuilder, *slidewin.WindowScanner, *slidewin.TemplateClassifier) {
	clf := slidewin.NewTemplateClassifier(det.windowWidth, 0)

	scanner := slidewin.NewWindowScanner(clf)
	scanner.WindowWidth = det.windowWidth
	scanner.StepSize = det.stepSize
	scanner.Threshold = float32(det.threshold)
	scanner.TakeFirst = det.takeFirst

	pyramid := slidewin.NewScalePyramidBuilder(scanner)
	pyramid.WindowWidth = det.windowWidth
	pyramid.ScaleFactor = det.scaleFactor
	pyramid.MinScale = det.minScale
	pyramid.NegToPosRatio = det.negToPos
	pyramid.MinSize = det.minSize
	pyramid.MaxOverlap = det.maxOverlap
	pyramid.NegSamples = det.negSamples
	pyramid.TakeLargestScale = det.takeLargest

	return pyramid, scanner, clf
}

// restore rebuilds a trained pipeline from the model file.
func (det *detector) restore() (*slidewin.ScalePyramidBuilder, error) {
	contentType, err := utils.DetectFileContentType(det.modelFile)
	if err != nil {
		return nil, err
	}
	if contentType != "application/octet-stream" {
		return nil, errors.New("the provided model file is not valid")
	}

	model, err := os.ReadFile(det.modelFile)
	if err != nil {
		return nil, err
	}
	ratio, width, height, err := slidewin.UnpackGeometry(model)
	if err != nil {
		return nil, err
	}
	clf, err := slidewin.UnpackTemplate(model[slidewin.GeometrySize:])
	if err != nil {
		return nil, err
	}

	pyramid, scanner, _ := det.pipeline()
	scanner.Delegate = clf
	scanner.WindowWidth = width
	scanner.SetGeometry(ratio, height)
	pyramid.WindowWidth = width
	pyramid.SetGeometry(ratio, height)
	return pyramid, nil
}

// loadAnnotations reads the training annotation file and builds the
// ground-truth batch.
func loadAnnotations(path string) (*slidewin.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var annots []annotation
	if err := json.NewDecoder(f).Decode(&annots); err != nil {
		return nil, err
	}
	if len(annots) == 0 {
		return nil, errors.New("the annotation file holds no entries")
	}

	batch := &slidewin.Batch{}
	for _, a := range annots {
		img, err := slidewin.GetImage(a.Image)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", a.Image, err)
		}
		s := &slidewin.Sample{Image: img, Train: true}
		for _, r := range a.Rects {
			s.Rects = append(s.Rects, slidewin.NewRect(r.X, r.Y, r.Width, r.Height))
		}
		batch.Samples = append(batch.Samples, s)
	}
	return batch, nil
}

// readImage loads the source image from a file or from a stdin pipe.
func readImage(source string) (*image.NRGBA, error) {
	if source == pipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdin")
		}
		return slidewin.DecodeImage(os.Stdin)
	}
	return slidewin.GetImage(source)
}

// drawDetections marks the detections with the configured marker type.
func drawDetections(dc *gg.Context, rects []slidewin.Rect, marker string) {
	for _, r := range rects {
		switch marker {
		case markerCircle:
			dc.DrawArc(
				float64(r.X)+float64(r.Width)/2,
				float64(r.Y)+float64(r.Height)/2,
				float64(r.Width)/2,
				0,
				2*math.Pi,
			)
		default:
			dc.DrawRectangle(float64(r.X), float64(r.Y), float64(r.Width), float64(r.Height))
		}
		dc.SetLineWidth(2.0)
		dc.SetStrokeStyle(gg.NewSolidPattern(color.RGBA{R: 255, G: 0, B: 0, A: 255}))
		dc.Stroke()
	}
}

// writeImage encodes the drawing context into the destination file, or to
// stdout when piped.
func writeImage(dc *gg.Context, destination string) error {
	var dst io.Writer
	ext := ".jpg"
	if destination == pipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("`-` should be used with a pipe for stdout")
		}
		dst = os.Stdout
	} else {
		ext = filepath.Ext(destination)
		f, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}

	img := dc.Image()
	switch ext {
	case "", ".jpg", ".jpeg":
		return jpeg.Encode(dst, img, &jpeg.Options{Quality: 100})
	case ".png":
		return png.Encode(dst, img)
	case ".bmp":
		return bmp.Encode(dst, img)
	default:
		return errors.New("unsupported image format")
	}
}
