package pipeline

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/osmundi/jetson-face-detect/internal/detect"
	"github.com/osmundi/jetson-face-detect/internal/display"
	"github.com/osmundi/jetson-face-detect/internal/overlay"
)

type fakeSource struct {
	img    gocv.Mat
	frames int // frames left before Read fails
	reads  int
	closed int
}

func newFakeSource(t *testing.T, frames int) *fakeSource {
	img := gocv.NewMatWithSize(96, 128, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { img.Close() })
	return &fakeSource{img: img, frames: frames}
}

func (s *fakeSource) Read(m *gocv.Mat) bool {
	s.reads++
	if s.frames == 0 {
		return false
	}
	s.frames--
	s.img.CopyTo(m)
	return true
}

func (s *fakeSource) Close() error {
	s.closed++
	return nil
}

type fakeDisplay struct {
	keys   []int
	hidden bool
	shown  int
	closed int
}

func (d *fakeDisplay) Visible() bool { return !d.hidden }

func (d *fakeDisplay) Show(gocv.Mat) { d.shown++ }

func (d *fakeDisplay) Close() error {
	d.closed++
	return nil
}

func (d *fakeDisplay) WaitKey(int) int {
	if len(d.keys) == 0 {
		return -1
	}
	k := d.keys[0]
	d.keys = d.keys[1:]
	return k
}

type fakeDetector struct {
	result  detect.Result
	err     error
	panicAt int
	calls   int
	eyes    []bool
}

func (d *fakeDetector) Detect(_ gocv.Mat, eyes bool) (detect.Result, error) {
	d.calls++
	if d.panicAt > 0 && d.calls == d.panicAt {
		panic("cuda: out of memory")
	}
	d.eyes = append(d.eyes, eyes)
	return d.result, d.err
}

func (d *fakeDetector) Close() error { return nil }

func TestRun_QuitKeysReleaseResources(t *testing.T) {
	for _, key := range []int{'q', display.KeyEscape} {
		src := newFakeSource(t, 10)
		disp := &fakeDisplay{keys: []int{-1, -1, key}}

		_, err := New(src, disp, Options{}).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 3, disp.shown)
		assert.Equal(t, 1, src.closed)
		assert.Equal(t, 1, disp.closed)
	}
}

func TestRun_GrabFailure(t *testing.T) {
	src := newFakeSource(t, 2)
	disp := &fakeDisplay{}

	_, err := New(src, disp, Options{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrGrab)
	assert.Equal(t, 2, disp.shown)
	assert.Equal(t, 3, src.reads)
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 1, disp.closed)
}

func TestRun_PanicReleasesResources(t *testing.T) {
	src := newFakeSource(t, 10)
	disp := &fakeDisplay{}
	det := &fakeDetector{panicAt: 2}

	summary, err := New(src, disp, Options{Detector: det, Eyes: true}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected error in main loop")
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 1, disp.closed)
	assert.Equal(t, 1, summary.Frames, "frames before the panic still count")
}

func TestRun_DetectorError(t *testing.T) {
	src := newFakeSource(t, 10)
	disp := &fakeDisplay{}
	boom := errors.New("boom")

	_, err := New(src, disp, Options{Detector: &fakeDetector{err: boom}}).Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 1, disp.closed)
}

func TestRun_WindowClosed(t *testing.T) {
	src := newFakeSource(t, 10)
	disp := &fakeDisplay{hidden: true}

	_, err := New(src, disp, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, disp.shown)
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 1, disp.closed)
}

func TestRun_Cancelled(t *testing.T) {
	src := newFakeSource(t, 10)
	disp := &fakeDisplay{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(src, disp, Options{}).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, src.reads)
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 1, disp.closed)
}

func TestRun_ToggleFlipsOncePerPress(t *testing.T) {
	src := newFakeSource(t, 10)
	disp := &fakeDisplay{keys: []int{-1, 'e', -1, 'e', 'e', 'q'}}
	det := &fakeDetector{}

	summary, err := New(src, disp, Options{Detector: det, Eyes: true, Style: overlay.GPUStyle}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []bool{true, true, false, false, true, false}, det.eyes)
	assert.False(t, summary.EyesEnabled)
	assert.Equal(t, 6, summary.Frames)
}

func TestRun_ToggleIgnoredWithoutDetector(t *testing.T) {
	src := newFakeSource(t, 10)
	disp := &fakeDisplay{keys: []int{'e', 'q'}}

	loop := New(src, disp, Options{Eyes: true})
	summary, err := loop.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, loop.EyesEnabled())
	assert.Zero(t, summary.Frames)
}

func TestRun_SummaryAverages(t *testing.T) {
	src := newFakeSource(t, 4)
	disp := &fakeDisplay{}
	det := &fakeDetector{result: detect.Result{
		Faces:    []detect.Face{{Rect: image.Rect(10, 10, 50, 50), Eyes: []image.Rectangle{image.Rect(15, 15, 25, 25)}}},
		FaceTime: 10 * time.Millisecond,
		EyeTime:  2 * time.Millisecond,
	}}

	summary, err := New(src, disp, Options{Detector: det, Eyes: true, Style: overlay.CPUStyle}).Run(context.Background())
	assert.ErrorIs(t, err, ErrGrab)
	assert.Equal(t, 4, summary.Frames)
	assert.Equal(t, 10*time.Millisecond, summary.AvgFace)
	assert.Equal(t, 2*time.Millisecond, summary.AvgEye)
	assert.True(t, summary.EyesEnabled)
}

func TestToggleEyes_Concurrent(t *testing.T) {
	loop := New(newFakeSource(t, 0), &fakeDisplay{}, Options{Eyes: true})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop.ToggleEyes()
		}()
	}
	wg.Wait()

	assert.True(t, loop.EyesEnabled(), "an even number of toggles restores the state")
	assert.False(t, loop.ToggleEyes())
}
