// Package pipeline runs the per-frame capture, detect, annotate and display
// loop shared by the demo programs.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/atomic"
	"gocv.io/x/gocv"

	"github.com/osmundi/jetson-face-detect/internal/detect"
	"github.com/osmundi/jetson-face-detect/internal/display"
	"github.com/osmundi/jetson-face-detect/internal/logger"
	"github.com/osmundi/jetson-face-detect/internal/metrics"
	"github.com/osmundi/jetson-face-detect/internal/overlay"
)

// ErrGrab is returned when the source stops producing frames.
var ErrGrab = errors.New("failed to grab frame")

// Source produces frames. *capture.Camera implements it.
type Source interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Display shows frames and reports key presses. *display.Window implements it.
type Display interface {
	Visible() bool
	Show(img gocv.Mat)
	WaitKey(delay int) int
	Close() error
}

// Options configures a Loop.
type Options struct {
	// Detector is optional; without one frames are shown as captured.
	Detector detect.Detector
	Style    overlay.Style
	// KeyDelay is the WaitKey timeout in milliseconds.
	KeyDelay int
	// Eyes is the initial state of eye detection.
	Eyes   bool
	Logger *logger.Logger
}

// Loop is a single-threaded frame loop.
type Loop struct {
	src     Source
	display Display
	opts    Options
	eyes    *atomic.Bool
	log     *logger.Logger
}

// New creates a Loop over src and d. Run takes ownership of both.
func New(src Source, d Display, opts Options) *Loop {
	if opts.KeyDelay <= 0 {
		opts.KeyDelay = 1
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Loop{
		src:     src,
		display: d,
		opts:    opts,
		eyes:    atomic.NewBool(opts.Eyes),
		log:     log,
	}
}

// ToggleEyes flips eye detection and returns the new state. Safe to call
// from other goroutines.
func (l *Loop) ToggleEyes() bool {
	return !l.eyes.Toggle()
}

// EyesEnabled reports whether eye detection is on.
func (l *Loop) EyesEnabled() bool { return l.eyes.Load() }

// Run processes frames until the user quits, the window goes away, the
// source fails or ctx is cancelled. The source and display are closed on
// every exit path. A grab failure ends the run with ErrGrab; quitting,
// closing the window and cancellation are not errors.
func (l *Loop) Run(ctx context.Context) (summary metrics.Summary, err error) {
	var timings metrics.Timings
	fps := metrics.NewFPSMeter(nil)

	frame := gocv.NewMat()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected error in main loop: %v", r)
		}
		frame.Close()
		if cerr := l.src.Close(); cerr != nil {
			l.log.Warning("close source: %v", cerr)
		}
		if cerr := l.display.Close(); cerr != nil {
			l.log.Warning("close display: %v", cerr)
		}
		summary = timings.Summary(fps.FPS(), l.eyes.Load())
	}()

	for {
		if ctx.Err() != nil {
			l.log.Info("Stopping: %v", ctx.Err())
			return summary, nil
		}

		if ok := l.src.Read(&frame); !ok || frame.Empty() {
			l.log.Error("Failed to grab frame")
			return summary, ErrGrab
		}

		if l.opts.Detector != nil {
			if err := l.annotate(&frame, &timings, fps); err != nil {
				return summary, err
			}
		}

		if !l.display.Visible() {
			l.log.Info("Window closed")
			return summary, nil
		}
		l.display.Show(frame)

		switch display.ActionFor(l.display.WaitKey(l.opts.KeyDelay)) {
		case display.ActionQuit:
			return summary, nil
		case display.ActionToggleEyes:
			if l.opts.Detector != nil {
				l.log.Info("Eye detection enabled: %t", l.ToggleEyes())
			}
		}
	}
}

func (l *Loop) annotate(frame *gocv.Mat, timings *metrics.Timings, fps *metrics.FPSMeter) error {
	eyes := l.eyes.Load()

	res, err := l.opts.Detector.Detect(*frame, eyes)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}

	rate := fps.Tick()
	timings.Add(res.FaceTime, res.EyeTime)
	l.log.Debug("faces=%d face=%v eye=%v fps=%.2f", len(res.Faces), res.FaceTime, res.EyeTime, rate)

	overlay.Draw(frame, res, overlay.Lines(rate, res.FaceTime, res.EyeTime, eyes), l.opts.Style)
	return nil
}
