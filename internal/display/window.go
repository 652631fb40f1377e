// Package display shows frames in an OpenCV window and maps key presses to
// loop actions.
package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// Window is an autosized OpenCV window.
type Window struct {
	w         *gocv.Window
	title     string
	closeOnce sync.Once
}

// Open creates the window.
func Open(title string) *Window {
	w := gocv.NewWindow(title)
	w.SetWindowProperty(gocv.WindowPropertyAutosize, gocv.WindowAutosize)
	return &Window{w: w, title: title}
}

// Title returns the window title.
func (w *Window) Title() string { return w.title }

// Visible reports whether the user still has the window open.
// Under GTK the visible property is unreliable, so the autosize property is
// read instead: it drops below zero once the window is destroyed.
func (w *Window) Visible() bool {
	return w.w.GetWindowProperty(gocv.WindowPropertyAutosize) >= 0
}

// Show displays img.
func (w *Window) Show(img gocv.Mat) {
	w.w.IMShow(img)
}

// WaitKey waits up to delay milliseconds for a key and returns its code, or
// -1 when nothing was pressed.
func (w *Window) WaitKey(delay int) int {
	return w.w.WaitKey(delay)
}

// Close destroys the window. Calling it more than once is safe.
func (w *Window) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.w.Close()
	})
	return err
}
