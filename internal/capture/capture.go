// Package capture opens V4L2 devices and GStreamer pipelines through OpenCV.
package capture

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

//go:generate go run golang.org/x/tools/cmd/stringer -type=Backend -trimprefix=Backend
type Backend int

const (
	BackendV4L2 Backend = iota
	BackendGStreamer
)

// ErrCameraOpen is returned when the capture device cannot be opened.
var ErrCameraOpen = errors.New("unable to open camera")

// ParseBackend maps a config value to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "v4l2":
		return BackendV4L2, nil
	case "gst", "gstreamer":
		return BackendGStreamer, nil
	}
	return -1, fmt.Errorf("unknown capture backend %q (use v4l2 or gstreamer)", s)
}

// Settings describes the capture source.
type Settings struct {
	Backend Backend
	Device  string
	Width   int
	Height  int
	FPS     int

	// Pipeline replaces the generated GStreamer description when set.
	Pipeline string
	// H264 selects the H.264 sample pipeline for GStreamer.
	H264 bool
}

// Describe returns the string handed to OpenCV: a device path for V4L2 or a
// pipeline description for GStreamer.
func (s Settings) Describe() string {
	if s.Backend != BackendGStreamer {
		return s.Device
	}
	switch {
	case s.Pipeline != "":
		return s.Pipeline
	case s.H264:
		return H264Pipeline(s.Device, s.Width, s.Height, s.FPS)
	default:
		return Pipeline(s.Device, s.Width, s.Height, s.FPS)
	}
}

// Pipeline builds a raw-video GStreamer pipeline ending in a BGR appsink.
func Pipeline(device string, width, height, fps int) string {
	return strings.Join([]string{
		"v4l2src device=" + device,
		fmt.Sprintf("video/x-raw, width=%d, height=%d, framerate=%d/1", width, height, fps),
		"videoconvert",
		"video/x-raw, format=(string)BGR",
		"appsink",
	}, " ! ")
}

// H264Pipeline builds a pipeline for cameras that emit H.264 (e.g. Logitech C920).
func H264Pipeline(device string, width, height, fps int) string {
	return strings.Join([]string{
		"v4l2src device=" + device,
		fmt.Sprintf("video/x-h264, width=%d, height=%d, framerate=%d/1, format=H264", width, height, fps),
		"avdec_h264",
		"videoconvert",
		"video/x-raw, format=(string)BGR",
		"appsink sync=false",
	}, " ! ")
}

// Camera wraps an opened gocv.VideoCapture.
type Camera struct {
	vc        *gocv.VideoCapture
	source    string
	closeOnce sync.Once
}

// Open opens the capture described by s.
func Open(s Settings) (*Camera, error) {
	source := s.Describe()

	api := gocv.VideoCaptureV4L2
	if s.Backend == BackendGStreamer {
		api = gocv.VideoCaptureGstreamer
	}

	vc, err := gocv.OpenVideoCaptureWithAPI(source, api)
	if err != nil {
		if vc != nil {
			vc.Close()
		}
		return nil, fmt.Errorf("%w %s: %v", ErrCameraOpen, source, err)
	}

	if s.Backend == BackendV4L2 {
		if s.Width > 0 {
			vc.Set(gocv.VideoCaptureFrameWidth, float64(s.Width))
		}
		if s.Height > 0 {
			vc.Set(gocv.VideoCaptureFrameHeight, float64(s.Height))
		}
		if s.FPS > 0 {
			vc.Set(gocv.VideoCaptureFPS, float64(s.FPS))
		}
	}

	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w %s", ErrCameraOpen, source)
	}

	return &Camera{vc: vc, source: source}, nil
}

// Read grabs the next frame into m.
func (c *Camera) Read(m *gocv.Mat) bool {
	return c.vc.Read(m)
}

// Source returns the device path or pipeline the camera was opened with.
func (c *Camera) Source() string { return c.source }

// Geometry reports the frame size and rate the driver settled on.
func (c *Camera) Geometry() (width, height int, fps float64) {
	return int(c.vc.Get(gocv.VideoCaptureFrameWidth)),
		int(c.vc.Get(gocv.VideoCaptureFrameHeight)),
		c.vc.Get(gocv.VideoCaptureFPS)
}

// Close releases the device. Calling it more than once is safe.
func (c *Camera) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.vc.Close()
	})
	return err
}
