package display

import (
	"gocv.io/x/gocv"
)

const escKey = 27

// Sink presents rendered frames. Show reports whether the user asked to quit.
type Sink interface {
	Show(frame *gocv.Mat) (quit bool)
	Close() error
}

// WindowSink shows frames in a HighGUI window. ESC quits.
type WindowSink struct {
	window *gocv.Window
	buffer *FrameBuffer
}

// NewWindowSink opens a window with the given title. buffer may be nil.
func NewWindowSink(title string, buffer *FrameBuffer) *WindowSink {
	return &WindowSink{window: gocv.NewWindow(title), buffer: buffer}
}

func (s *WindowSink) Show(frame *gocv.Mat) bool {
	if s.buffer != nil {
		s.buffer.Publish(frame)
	}
	s.window.IMShow(*frame)
	return s.window.WaitKey(1) == escKey
}

func (s *WindowSink) Close() error {
	return s.window.Close()
}

// HeadlessSink only publishes frames. It never asks to quit; the session ends
// on context cancellation.
type HeadlessSink struct {
	buffer *FrameBuffer
	shown  int
	closed int
}

// NewHeadlessSink returns a sink that publishes to buffer, which may be nil.
func NewHeadlessSink(buffer *FrameBuffer) *HeadlessSink {
	return &HeadlessSink{buffer: buffer}
}

func (s *HeadlessSink) Show(frame *gocv.Mat) bool {
	s.shown++
	if s.buffer != nil {
		s.buffer.Publish(frame)
	}
	return false
}

func (s *HeadlessSink) Close() error {
	s.closed++
	return nil
}

// Shown returns how many frames were presented.
func (s *HeadlessSink) Shown() int { return s.shown }

// Closed returns how many times Close was called.
func (s *HeadlessSink) Closed() int { return s.closed }
