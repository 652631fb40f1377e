// Package metrics keeps the frame rate and detection timing counters shown
// on the overlay and printed at shutdown.
package metrics

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// FPSMeter recomputes the frame rate at most once per second.
type FPSMeter struct {
	now    func() time.Time
	last   time.Time
	frames int
	fps    float64
}

// NewFPSMeter starts a meter at now(). A nil clock means time.Now.
func NewFPSMeter(now func() time.Time) *FPSMeter {
	if now == nil {
		now = time.Now
	}
	return &FPSMeter{now: now, last: now()}
}

// Tick counts one frame and returns the current frame rate. The rate only
// changes when at least one second has passed since the last recomputation;
// the frame counter restarts at that point.
func (m *FPSMeter) Tick() float64 {
	m.frames++
	current := m.now()
	elapsed := current.Sub(m.last)
	if elapsed >= time.Second {
		m.fps = float64(m.frames) / elapsed.Seconds()
		m.last = current
		m.frames = 0
	}
	return m.fps
}

// FPS returns the last computed frame rate.
func (m *FPSMeter) FPS() float64 { return m.fps }

// Pending returns the frames counted since the last recomputation.
func (m *FPSMeter) Pending() int { return m.frames }

// Timings accumulates per-frame detection durations.
type Timings struct {
	Frames    int
	FaceTotal time.Duration
	EyeTotal  time.Duration
}

// Add records one processed frame.
func (t *Timings) Add(face, eye time.Duration) {
	t.Frames++
	t.FaceTotal += face
	t.EyeTotal += eye
}

// Summary averages the totals. Eye time is only averaged when eye detection
// is still enabled.
func (t Timings) Summary(fps float64, eyesEnabled bool) Summary {
	s := Summary{FPS: fps, Frames: t.Frames, EyesEnabled: eyesEnabled}
	if t.Frames == 0 {
		return s
	}
	s.AvgFace = t.FaceTotal / time.Duration(t.Frames)
	if eyesEnabled {
		s.AvgEye = t.EyeTotal / time.Duration(t.Frames)
	}
	return s
}

// Summary is the end-of-run report.
type Summary struct {
	FPS         float64
	Frames      int
	AvgFace     time.Duration
	AvgEye      time.Duration
	EyesEnabled bool
}

// WriteTo prints the averages. Nothing is written when no frame was processed.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	if s.Frames == 0 {
		return 0, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Average FPS: %.2f\n", s.FPS)
	fmt.Fprintf(&b, "Average Face Detection Time: %.2f ms\n", Millis(s.AvgFace))
	if s.EyesEnabled {
		fmt.Fprintf(&b, "Average Eye Detection Time: %.2f ms\n", Millis(s.AvgEye))
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Millis converts d to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
