// Package overlay draws detections and the timing panel onto frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"

	"github.com/osmundi/jetson-face-detect/internal/detect"
	"github.com/osmundi/jetson-face-detect/internal/metrics"
)

var (
	faceColor  = color.RGBA{0, 0, 255, 0}
	eyeColor   = color.RGBA{0, 255, 0, 0}
	panelColor = color.RGBA{0, 0, 0, 0}

	panel = image.Rect(4, 4, 340, 80)
)

const (
	boxThickness  = 2
	textScale     = 0.6
	textThickness = 2
	textX         = 10
	textTop       = 20
	lineSpacing   = 20
)

// Style sets how opaque the panel is and the text colour.
type Style struct {
	Alpha     float64
	TextColor color.RGBA
}

var (
	// CPUStyle is used by the CPU face demo.
	CPUStyle = Style{Alpha: 0.6, TextColor: color.RGBA{192, 192, 192, 0}}
	// GPUStyle is used by the CUDA face demo.
	GPUStyle = Style{Alpha: 0.4, TextColor: color.RGBA{255, 255, 255, 0}}
)

// Lines formats the panel text.
func Lines(fps float64, face, eye time.Duration, eyesEnabled bool) []string {
	eyeLine := "Eye Detection: Disabled"
	if eyesEnabled {
		eyeLine = fmt.Sprintf("Eye Detection Time: %.2f ms", metrics.Millis(eye))
	}
	return []string{
		fmt.Sprintf("FPS: %.2f", fps),
		fmt.Sprintf("Face Detection Time: %.2f ms", metrics.Millis(face)),
		eyeLine,
	}
}

// Draw outlines faces and eyes, darkens the panel area and writes lines on it.
func Draw(frame *gocv.Mat, res detect.Result, lines []string, style Style) {
	for _, f := range res.Faces {
		gocv.Rectangle(frame, f.Rect, faceColor, boxThickness)
		for _, e := range f.Eyes {
			gocv.Rectangle(frame, e, eyeColor, boxThickness)
		}
	}

	shade := frame.Clone()
	defer shade.Close()
	gocv.Rectangle(&shade, panel, panelColor, -1)
	gocv.AddWeighted(shade, style.Alpha, *frame, 1-style.Alpha, 0, frame)

	for i, line := range lines {
		pt := image.Pt(textX, textTop+i*lineSpacing)
		gocv.PutText(frame, line, pt, gocv.FontHersheySimplex, textScale, style.TextColor, textThickness)
	}
}
