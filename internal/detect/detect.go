// Package detect finds faces, and eyes inside them, with OpenCV Haar
// cascades on the CPU or a CUDA GPU, or with the pure-Go pigo cascade.
package detect

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"github.com/osmundi/jetson-face-detect/internal/logger"
)

var (
	// ErrCascadeLoad is returned when a cascade model file cannot be loaded.
	ErrCascadeLoad = errors.New("cannot load cascade")
	// ErrCUDAUnavailable is returned when no CUDA device can be used.
	ErrCUDAUnavailable = errors.New("no CUDA-enabled GPU detected")
	// ErrEmptyFrame is returned by Detect for an empty frame.
	ErrEmptyFrame = errors.New("empty frame")
)

// Face is a detected face and the eyes found inside it, in frame coordinates.
type Face struct {
	Rect image.Rectangle
	Eyes []image.Rectangle
}

// Result is the outcome of one Detect call.
type Result struct {
	Faces    []Face
	FaceTime time.Duration // face cascade only
	EyeTime  time.Duration // sum of the eye cascade calls
}

// Detector is implemented by every detection engine.
type Detector interface {
	// Detect finds faces in a BGR frame. When eyes is set each face region is
	// searched for eyes as well.
	Detect(frame gocv.Mat, eyes bool) (Result, error)

	// Close releases resources
	Close() error
}

//go:generate go run golang.org/x/tools/cmd/stringer -type=Engine -trimprefix=Engine
type Engine int

const (
	EngineHaar Engine = iota
	EngineCUDA
	EnginePigo
)

// ParseEngine maps a flag value to an Engine.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "haar", "cpu":
		return EngineHaar, nil
	case "cuda", "gpu":
		return EngineCUDA, nil
	case "pigo":
		return EnginePigo, nil
	}
	return -1, fmt.Errorf("unknown detection engine %q (use haar, cuda or pigo)", s)
}

// CascadeParams tunes a multi-scale cascade run. Zero sizes mean no limit.
type CascadeParams struct {
	ScaleFactor  float64
	MinNeighbors int
	MinSize      image.Point
	MaxSize      image.Point
}

// HaarConfig configures the CPU Haar detector.
type HaarConfig struct {
	FaceCascade string
	EyeCascade  string
	Face        CascadeParams
	Eye         CascadeParams
}

// DefaultHaarConfig returns the tuning used by the CPU face demo: faces at
// scale 1.3 with 5 neighbours, eyes with OpenCV's defaults.
func DefaultHaarConfig(faceCascade, eyeCascade string) HaarConfig {
	return HaarConfig{
		FaceCascade: faceCascade,
		EyeCascade:  eyeCascade,
		Face:        CascadeParams{ScaleFactor: 1.3, MinNeighbors: 5},
		Eye:         CascadeParams{ScaleFactor: 1.1, MinNeighbors: 3},
	}
}

// CUDAConfig configures the GPU detector. The CUDA cascades run with
// OpenCV's default scale factor and neighbour count; only the minimum sizes
// are applied, to the detections returned.
type CUDAConfig struct {
	FaceCascade string
	EyeCascade  string
	FaceMinSize image.Point
	EyeMinSize  image.Point
	MinEyeSide  int // eyes no wider or taller than this are dropped
	Logger      *logger.Logger
}

// DefaultCUDAConfig returns the GPU demo tuning.
func DefaultCUDAConfig(faceCascade, eyeCascade string) CUDAConfig {
	return CUDAConfig{
		FaceCascade: faceCascade,
		EyeCascade:  eyeCascade,
		FaceMinSize: image.Pt(30, 30),
		EyeMinSize:  image.Pt(22, 22),
		MinEyeSide:  15,
	}
}

// statCascades fails with ErrCascadeLoad for the first missing file.
func statCascades(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w %s: %v", ErrCascadeLoad, path, err)
		}
	}
	return nil
}

// collectFaces builds the Face list for rects, timing every eye lookup.
func collectFaces(rects []image.Rectangle, eyes bool, find func(face image.Rectangle) []image.Rectangle) ([]Face, time.Duration) {
	if len(rects) == 0 {
		return nil, 0
	}
	faces := make([]Face, 0, len(rects))
	var eyeTime time.Duration
	for _, r := range rects {
		f := Face{Rect: r}
		if eyes {
			start := time.Now()
			f.Eyes = find(r)
			eyeTime += time.Since(start)
		}
		faces = append(faces, f)
	}
	return faces, eyeTime
}

// filterEyes keeps the eyes strictly larger than minSide on both axes.
func filterEyes(eyes []image.Rectangle, minSide int) []image.Rectangle {
	if minSide <= 0 {
		return eyes
	}
	kept := eyes[:0]
	for _, e := range eyes {
		if e.Dx() > minSide && e.Dy() > minSide {
			kept = append(kept, e)
		}
	}
	return kept
}

// atLeast keeps the rectangles at least min wide and tall.
func atLeast(rects []image.Rectangle, min image.Point) []image.Rectangle {
	if min == (image.Point{}) {
		return rects
	}
	kept := rects[:0]
	for _, r := range rects {
		if r.Dx() >= min.X && r.Dy() >= min.Y {
			kept = append(kept, r)
		}
	}
	return kept
}

// regionSearch runs search over face clipped to bounds and returns its hits
// in frame coordinates. Regions smaller than min are not searched.
func regionSearch(face, bounds image.Rectangle, min image.Point, search func(roi image.Rectangle) []image.Rectangle) []image.Rectangle {
	roi := face.Intersect(bounds)
	if roi.Empty() || roi.Dx() < min.X || roi.Dy() < min.Y {
		return nil
	}
	return toFrame(search(roi), roi.Min)
}

// toFrame moves ROI-relative rectangles into frame coordinates.
func toFrame(rects []image.Rectangle, origin image.Point) []image.Rectangle {
	for i := range rects {
		rects[i] = rects[i].Add(origin)
	}
	return rects
}
