package gesture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// Classifier maps a feature vector to a gesture label.
type Classifier interface {
	Classify(features []float32) (Label, error)
	Close() error
}

// ErrModelNotLoaded is returned when a model file cannot be read as a network.
var ErrModelNotLoaded = errors.New("gesture model not loaded")

// DNNClassifier runs a gesture model through the OpenCV DNN module.
type DNNClassifier struct {
	net gocv.Net
	mu  sync.Mutex
}

// NewDNNClassifier loads the model at path.
func NewDNNClassifier(path string) (*DNNClassifier, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelNotLoaded, err)
	}

	net := gocv.ReadNet(path, "")
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("%w: %s", ErrModelNotLoaded, path)
	}
	return &DNNClassifier{net: net}, nil
}

// Classify runs one forward pass and returns the highest scoring label.
func (c *DNNClassifier) Classify(features []float32) (Label, error) {
	if len(features) == 0 {
		return "", errors.New("empty feature vector")
	}

	blob, err := gocv.NewMatFromBytes(1, len(features), gocv.MatTypeCV32F, float32Bytes(features))
	if err != nil {
		return "", fmt.Errorf("build input: %w", err)
	}
	defer blob.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	defer out.Close()
	if out.Empty() {
		return "", errors.New("model returned no output")
	}

	scores := out.Reshape(1, 1)
	defer scores.Close()

	_, _, _, maxLoc := gocv.MinMaxLoc(scores)
	return FromIndex(maxLoc.X)
}

// Close releases the network.
func (c *DNNClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}

// float32Bytes lays out v in the little-endian form CV_32F expects.
func float32Bytes(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}
