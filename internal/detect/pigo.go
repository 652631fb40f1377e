package detect

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	pigo "github.com/esimov/pigo/core"
	"gocv.io/x/gocv"
)

// PigoConfig configures the pigo face stage. Eyes still use a Haar cascade.
type PigoConfig struct {
	Cascade     string
	EyeCascade  string
	Eye         CascadeParams
	MinSize     int
	MaxSize     int
	ShiftFactor float64
	ScaleFactor float64
	IoU         float64 // clustering threshold
	MinQuality  float32 // detections scoring below are dropped
}

// DefaultPigoConfig returns production defaults for the facefinder cascade.
func DefaultPigoConfig(cascade, eyeCascade string) PigoConfig {
	return PigoConfig{
		Cascade:     cascade,
		EyeCascade:  eyeCascade,
		Eye:         CascadeParams{ScaleFactor: 1.1, MinNeighbors: 3},
		MinSize:     30,
		MaxSize:     1000,
		ShiftFactor: 0.1,
		ScaleFactor: 1.1,
		IoU:         0.2,
		MinQuality:  5.0,
	}
}

// PigoDetector finds faces with pigo and eyes with OpenCV.
type PigoDetector struct {
	classifier *pigo.Pigo
	eyes       *eyeFinder
	config     PigoConfig
	gray       gocv.Mat
	mu         sync.Mutex
}

// NewPigo unpacks the pigo cascade and loads the eye cascade.
func NewPigo(cfg PigoConfig) (*PigoDetector, error) {
	classifier, err := loadPigo(cfg.Cascade)
	if err != nil {
		return nil, err
	}

	eyes, err := newEyeFinder(cfg.EyeCascade, cfg.Eye, 0)
	if err != nil {
		return nil, err
	}

	return &PigoDetector{
		classifier: classifier,
		eyes:       eyes,
		config:     cfg,
		gray:       gocv.NewMat(),
	}, nil
}

// Detect finds faces in the BGR frame.
func (d *PigoDetector) Detect(frame gocv.Mat, eyes bool) (Result, error) {
	if frame.Empty() {
		return Result{}, ErrEmptyFrame
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	gocv.CvtColor(frame, &d.gray, gocv.ColorBGRToGray)
	rows, cols := d.gray.Rows(), d.gray.Cols()

	params := pigo.CascadeParams{
		MinSize:     d.config.MinSize,
		MaxSize:     d.config.MaxSize,
		ShiftFactor: d.config.ShiftFactor,
		ScaleFactor: d.config.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: d.gray.ToBytes(),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	start := time.Now()
	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.config.IoU)
	res := Result{FaceTime: time.Since(start)}

	rects := pigoRects(dets, d.config.MinQuality, image.Rect(0, 0, cols, rows))
	res.Faces, res.EyeTime = collectFaces(rects, eyes, func(r image.Rectangle) []image.Rectangle {
		return d.eyes.find(&d.gray, r)
	})
	return res, nil
}

// Close releases the eye cascade and buffers.
func (d *PigoDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return errors.Join(d.eyes.Close(), d.gray.Close())
}

// pigoRects converts pigo's centre/diameter detections to rectangles clipped
// to bounds, dropping low-quality and fully clipped ones.
func pigoRects(dets []pigo.Detection, minQuality float32, bounds image.Rectangle) []image.Rectangle {
	var rects []image.Rectangle
	for _, det := range dets {
		if det.Q < minQuality {
			continue
		}
		half := det.Scale / 2
		r := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half).Intersect(bounds)
		if r.Empty() {
			continue
		}
		rects = append(rects, r)
	}
	return rects
}

// pigo's header is 8 bytes plus two uint32 tree counts.
const pigoHeaderSize = 16

func loadPigo(path string) (*pigo.Pigo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCascadeLoad, path, err)
	}
	if len(data) < pigoHeaderSize {
		return nil, fmt.Errorf("%w %s: truncated cascade", ErrCascadeLoad, path)
	}

	classifier, err := unpackPigo(data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrCascadeLoad, path, err)
	}
	return classifier, nil
}

// unpackPigo turns an out-of-range read on a corrupt file into an error.
func unpackPigo(data []byte) (classifier *pigo.Pigo, err error) {
	defer func() {
		if r := recover(); r != nil {
			classifier, err = nil, fmt.Errorf("corrupt cascade: %v", r)
		}
	}()
	return pigo.NewPigo().Unpack(data)
}
