// Package app wires config, capture, detection and display together for the
// demo programs.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/osmundi/jetson-face-detect/internal/capture"
	"github.com/osmundi/jetson-face-detect/internal/config"
	"github.com/osmundi/jetson-face-detect/internal/detect"
	"github.com/osmundi/jetson-face-detect/internal/display"
	"github.com/osmundi/jetson-face-detect/internal/logger"
	"github.com/osmundi/jetson-face-detect/internal/overlay"
	"github.com/osmundi/jetson-face-detect/internal/pipeline"
)

// Window titles.
const (
	CameraTitle  = "USB Camera"
	FaceTitle    = "Face Detect"
	FaceGPUTitle = "Face Detect (GPU)"
)

// Key poll delays in milliseconds.
const (
	cameraKeyDelay = 10
	faceKeyDelay   = 30
)

// App holds what every program needs.
type App struct {
	cfg   *config.Config
	log   *logger.Logger
	out   io.Writer
	runID string
}

// New creates an App. Shutdown reports go to out (os.Stdout when nil).
func New(cfg *config.Config, log *logger.Logger, out io.Writer) *App {
	if out == nil {
		out = os.Stdout
	}
	if log == nil {
		log = logger.Discard()
	}
	return &App{cfg: cfg, log: log, out: out, runID: uuid.NewString()}
}

// RunID identifies this run in the logs.
func (a *App) RunID() string { return a.runID }

// CameraOptions selects how the plain camera viewer opens its source.
type CameraOptions struct {
	Backend capture.Backend
	H264    bool
}

// RunCamera shows the camera feed until the user quits.
func (a *App) RunCamera(ctx context.Context, opts CameraOptions) error {
	cam, err := a.openCamera(opts.Backend, opts.H264)
	if err != nil {
		return err
	}

	win := display.Open(a.cfg.Title(CameraTitle))
	loop := pipeline.New(cam, win, pipeline.Options{
		KeyDelay: cameraKeyDelay,
		Logger:   a.log,
	})

	_, err = loop.Run(ctx)
	a.reportLoopError(err)
	return err
}

// FaceOptions configures the face detection programs.
type FaceOptions struct {
	Engine detect.Engine
	// Toggle, when set, flips eye detection on every receive.
	Toggle <-chan os.Signal
}

// RunFaceDetect loads the cascades, checks the GPU when needed, opens the
// camera and runs the detection loop. The timing summary is printed after
// the loop ends when at least one frame was processed.
func (a *App) RunFaceDetect(ctx context.Context, opts FaceOptions) error {
	det, err := a.newDetector(opts.Engine)
	if err != nil {
		return err
	}
	defer det.Close()

	backend, err := capture.ParseBackend(a.cfg.CaptureBackend)
	if err != nil {
		return err
	}
	cam, err := a.openCamera(backend, false)
	if err != nil {
		return err
	}

	title, style := FaceTitle, overlay.CPUStyle
	if opts.Engine == detect.EngineCUDA {
		title, style = FaceGPUTitle, overlay.GPUStyle
	}

	win := display.Open(a.cfg.Title(title))
	loop := pipeline.New(cam, win, pipeline.Options{
		Detector: det,
		Style:    style,
		KeyDelay: faceKeyDelay,
		Eyes:     true,
		Logger:   a.log,
	})

	if opts.Toggle != nil {
		done := make(chan struct{})
		defer close(done)
		go func() {
			for {
				select {
				case <-opts.Toggle:
					a.log.Info("Eye detection enabled: %t", loop.ToggleEyes())
				case <-done:
					return
				}
			}
		}()
	}

	summary, err := loop.Run(ctx)
	a.reportLoopError(err)
	a.log.Info("Resources cleaned up.")
	if _, werr := summary.WriteTo(a.out); werr != nil {
		a.log.Warning("write summary: %v", werr)
	}
	return err
}

// reportLoopError logs errors the loop did not report itself.
func (a *App) reportLoopError(err error) {
	if err != nil && !errors.Is(err, pipeline.ErrGrab) {
		a.log.Error("%v", err)
	}
}

func (a *App) newDetector(engine detect.Engine) (detect.Detector, error) {
	switch engine {
	case detect.EngineHaar:
		a.log.Info("Loading face and eye cascades...")
		d, err := detect.NewHaar(detect.DefaultHaarConfig(a.cfg.FaceCascade, a.cfg.EyeCascade))
		if err != nil {
			a.log.Error("Error loading cascades: %v", err)
			return nil, err
		}
		return d, nil

	case detect.EnginePigo:
		a.log.Info("Loading pigo cascade %s...", a.cfg.PigoCascade)
		d, err := detect.NewPigo(detect.DefaultPigoConfig(a.cfg.PigoCascade, a.cfg.EyeCascade))
		if err != nil {
			a.log.Error("Error loading cascades: %v", err)
			return nil, err
		}
		return d, nil

	case detect.EngineCUDA:
		a.log.Info("Loading CUDA face and eye cascades...")
		cfg := detect.DefaultCUDAConfig(a.cfg.CUDAFaceCascade, a.cfg.CUDAEyeCascade)
		cfg.Logger = a.log
		d, err := detect.NewCUDA(cfg)
		switch {
		case errors.Is(err, detect.ErrCUDAUnavailable):
			a.log.Error("Error: No CUDA-enabled GPU detected.")
			return nil, err
		case err != nil:
			a.log.Error("Error loading CUDA cascades: %v", err)
			return nil, err
		}
		if detect.CUDADeviceCount() == 0 {
			d.Close()
			a.log.Error("Error: No CUDA-enabled GPU detected.")
			return nil, detect.ErrCUDAUnavailable
		}
		a.log.Info("CUDA cascades loaded successfully.")
		return d, nil
	}
	return nil, fmt.Errorf("unsupported detection engine %v", engine)
}

func (a *App) openCamera(backend capture.Backend, h264 bool) (*capture.Camera, error) {
	settings := capture.Settings{
		Backend:  backend,
		Device:   a.cfg.CameraDevice,
		Width:    a.cfg.FrameWidth,
		Height:   a.cfg.FrameHeight,
		FPS:      a.cfg.FrameRate,
		Pipeline: a.cfg.GstPipeline,
		H264:     h264,
	}
	if h264 && a.cfg.FrameWidth == 640 && a.cfg.FrameHeight == 480 {
		settings.Width, settings.Height = 1280, 720
	}

	cam, err := capture.Open(settings)
	if err != nil {
		a.log.Error("Error: %v", err)
		return nil, err
	}

	w, h, fps := cam.Geometry()
	a.log.Info("Video capture initialized (%s): %dx%d@%.0f", backend, w, h, fps)
	return cam, nil
}
