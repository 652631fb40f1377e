//go:build cuda

package detect

import (
	"errors"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/cuda"

	"github.com/osmundi/jetson-face-detect/internal/logger"
)

// CUDADeviceCount returns the number of CUDA devices OpenCV can use.
func CUDADeviceCount() int {
	return cuda.GetCudaEnabledDeviceCount()
}

// CUDADetector runs the CUDA cascade classifiers. The frame is uploaded and
// converted to gray on the device; each face region is searched for eyes on
// the device as well.
//
// gocv has no way to release a cuda.CascadeClassifier, so the two
// classifiers live until the process exits. Create one detector per run.
type CUDADetector struct {
	face        cuda.CascadeClassifier
	eye         cuda.CascadeClassifier
	frame       cuda.GpuMat
	gray        cuda.GpuMat
	roi         cuda.GpuMat
	grayHost    gocv.Mat
	faceMinSize image.Point
	eyeMinSize  image.Point
	minEyeSide  int
	log         *logger.Logger
	mu          sync.Mutex
}

// NewCUDA loads both CUDA cascades. It fails with ErrCascadeLoad before
// touching the GPU when a file is missing.
func NewCUDA(cfg CUDAConfig) (*CUDADetector, error) {
	if err := statCascades(cfg.FaceCascade, cfg.EyeCascade); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &CUDADetector{
		face:        cuda.NewCascadeClassifier(cfg.FaceCascade),
		eye:         cuda.NewCascadeClassifier(cfg.EyeCascade),
		frame:       cuda.NewGpuMat(),
		gray:        cuda.NewGpuMat(),
		roi:         cuda.NewGpuMat(),
		grayHost:    gocv.NewMat(),
		faceMinSize: cfg.FaceMinSize,
		eyeMinSize:  cfg.EyeMinSize,
		minEyeSide:  cfg.MinEyeSide,
		log:         log,
	}, nil
}

// Detect finds faces in the BGR frame.
func (d *CUDADetector) Detect(frame gocv.Mat, eyes bool) (Result, error) {
	if frame.Empty() {
		return Result{}, ErrEmptyFrame
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.frame.Upload(frame)
	cuda.CvtColor(d.frame, &d.gray, gocv.ColorBGRToGray)

	start := time.Now()
	rects := atLeast(d.face.DetectMultiScale(d.gray), d.faceMinSize)
	res := Result{FaceTime: time.Since(start)}

	if eyes && len(rects) > 0 {
		d.gray.Download(&d.grayHost)
	}
	res.Faces, res.EyeTime = collectFaces(rects, eyes, d.findEyes)
	return res, nil
}

// findEyes searches one face region on the device. Regions smaller than the
// eye minimum size are skipped without calling the cascade. A Go panic here
// is logged and counted as no eyes for this face; OpenCV exceptions are not
// recoverable from Go.
func (d *CUDADetector) findEyes(face image.Rectangle) (eyes []image.Rectangle) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Error detecting eyes: %v", r)
			eyes = nil
		}
	}()

	bounds := image.Rect(0, 0, d.grayHost.Cols(), d.grayHost.Rows())
	found := regionSearch(face, bounds, d.eyeMinSize, func(roi image.Rectangle) []image.Rectangle {
		region := d.grayHost.Region(roi)
		defer region.Close()

		d.roi.Upload(region)
		return d.eye.DetectMultiScale(d.roi)
	})
	return filterEyes(atLeast(found, d.eyeMinSize), d.minEyeSide)
}

// Close releases the device buffers.
func (d *CUDADetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return errors.Join(d.frame.Close(), d.gray.Close(), d.roi.Close(), d.grayHost.Close())
}
