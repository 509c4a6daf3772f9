/*
Package slidewin implements a multi-scale, sliding-window object detection
pipeline. Images are re-sampled along a geometric scale pyramid and scanned
with a fixed-size window at each level; every window is judged by an
injected classifier, and accepted windows are mapped back to original image
coordinates with their confidence scores.

The pipeline composes through the Stage interface. A typical detector nests
a leaf classifier inside a WindowScanner inside a ScalePyramidBuilder:

	clf := slidewin.NewTemplateClassifier(24, 0)
	scanner := slidewin.NewWindowScanner(clf)
	pyramid := slidewin.NewScalePyramidBuilder(scanner)

Training estimates the object's characteristic aspect ratio from labeled
rectangles, fixes the canonical window geometry and fits the classifier on
positive crops plus randomly sampled negative crops:

	batch := slidewin.NewBatch(samples...)
	if err := pyramid.Train(batch); err != nil {
		log.Fatalf("training failed: %v", err)
	}

Inference runs the scanner over every pyramid level and merges the
detections onto the result sample:

	out, err := pyramid.Project(slidewin.NewSample(img))
	if err != nil {
		log.Fatalf("detection failed: %v", err)
	}
	rects, confs := slidewin.ClusterRects(out.Rects, out.Confidences, 0.2)

The canonical window geometry derived at training time is the only
cross-session state the pipeline owns; persist it with PackGeometry and
restore it with UnpackGeometry plus SetGeometry before inference.
*/
package slidewin
