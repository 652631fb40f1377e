package detect

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// HaarDetector runs OpenCV CPU cascades.
type HaarDetector struct {
	face   gocv.CascadeClassifier
	eyes   *eyeFinder
	params CascadeParams
	gray   gocv.Mat
	mu     sync.Mutex
}

// NewHaar loads the face and eye cascades.
func NewHaar(cfg HaarConfig) (*HaarDetector, error) {
	face, err := loadCascade(cfg.FaceCascade)
	if err != nil {
		return nil, err
	}

	eyes, err := newEyeFinder(cfg.EyeCascade, cfg.Eye, 0)
	if err != nil {
		face.Close()
		return nil, err
	}

	return &HaarDetector{
		face:   face,
		eyes:   eyes,
		params: cfg.Face,
		gray:   gocv.NewMat(),
	}, nil
}

// Detect finds faces in the BGR frame.
func (d *HaarDetector) Detect(frame gocv.Mat, eyes bool) (Result, error) {
	if frame.Empty() {
		return Result{}, ErrEmptyFrame
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	gocv.CvtColor(frame, &d.gray, gocv.ColorBGRToGray)

	start := time.Now()
	rects := detectMultiScale(&d.face, d.gray, d.params)
	res := Result{FaceTime: time.Since(start)}

	res.Faces, res.EyeTime = collectFaces(rects, eyes, func(r image.Rectangle) []image.Rectangle {
		return d.eyes.find(&d.gray, r)
	})
	return res, nil
}

// Close releases the cascades.
func (d *HaarDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return errors.Join(d.face.Close(), d.eyes.Close(), d.gray.Close())
}

// eyeFinder searches a grayscale face region with the CPU eye cascade.
type eyeFinder struct {
	cascade gocv.CascadeClassifier
	params  CascadeParams
	minSide int
}

func newEyeFinder(path string, params CascadeParams, minSide int) (*eyeFinder, error) {
	c, err := loadCascade(path)
	if err != nil {
		return nil, err
	}
	return &eyeFinder{cascade: c, params: params, minSide: minSide}, nil
}

func (f *eyeFinder) find(gray *gocv.Mat, face image.Rectangle) []image.Rectangle {
	bounds := image.Rect(0, 0, gray.Cols(), gray.Rows())
	eyes := regionSearch(face, bounds, f.params.MinSize, func(roi image.Rectangle) []image.Rectangle {
		region := gray.Region(roi)
		defer region.Close()
		return detectMultiScale(&f.cascade, region, f.params)
	})
	return filterEyes(eyes, f.minSide)
}

func (f *eyeFinder) Close() error {
	return f.cascade.Close()
}

func detectMultiScale(c *gocv.CascadeClassifier, img gocv.Mat, p CascadeParams) []image.Rectangle {
	if p.ScaleFactor == 0 {
		return c.DetectMultiScale(img)
	}
	return c.DetectMultiScaleWithParams(img, p.ScaleFactor, p.MinNeighbors, 0, p.MinSize, p.MaxSize)
}

func loadCascade(path string) (gocv.CascadeClassifier, error) {
	if err := statCascades(path); err != nil {
		return gocv.CascadeClassifier{}, err
	}

	c := gocv.NewCascadeClassifier()
	if !c.Load(path) {
		c.Close()
		return gocv.CascadeClassifier{}, fmt.Errorf("%w %s", ErrCascadeLoad, path)
	}
	return c, nil
}
