package display

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// FrameBuffer keeps the most recent rendered frame as JPEG bytes for readers
// on other goroutines.
type FrameBuffer struct {
	mu   sync.RWMutex
	jpeg []byte
	seq  uint64
}

// NewFrameBuffer returns an empty buffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Publish encodes frame and replaces the stored image.
func (b *FrameBuffer) Publish(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		return fmt.Errorf("publish: empty frame")
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return fmt.Errorf("publish: encode jpeg: %w", err)
	}
	defer buf.Close()

	b.Store(buf.GetBytes())
	return nil
}

// Store replaces the stored image with a copy of data.
func (b *FrameBuffer) Store(data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)

	b.mu.Lock()
	b.jpeg = cp
	b.seq++
	b.mu.Unlock()
}

// Latest returns the stored image and its sequence number. seq is zero until
// the first frame arrives.
func (b *FrameBuffer) Latest() (data []byte, seq uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.jpeg, b.seq
}
