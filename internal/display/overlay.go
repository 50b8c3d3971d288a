// Package display draws status overlays on frames and shows them in a window
// or publishes them for the MJPEG stream.
package display

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Text position and style shared by every overlay line.
var (
	textOrigin = image.Point{X: 10, Y: 30}

	green = color.RGBA{G: 255, A: 255}
	red   = color.RGBA{R: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

// StatusText is the connection line drawn by the gesture pipeline.
func StatusText(connected bool) string {
	return fmt.Sprintf("Connected: %v", connected)
}

// FPSText is the frame rate line drawn by the blink pipeline.
func FPSText(fps float64) string {
	return fmt.Sprintf("FPS: %d", int(fps))
}

// DrawStatus writes the connection state in green when connected and red
// otherwise.
func DrawStatus(frame *gocv.Mat, connected bool) {
	c := red
	if connected {
		c = green
	}
	gocv.PutText(frame, StatusText(connected), textOrigin, gocv.FontHersheySimplex, 0.7, c, 2)
}

// DrawFPS writes the smoothed frame rate.
func DrawFPS(frame *gocv.Mat, fps float64) {
	gocv.PutText(frame, FPSText(fps), textOrigin, gocv.FontHersheySimplex, 1, blue, 2)
}
