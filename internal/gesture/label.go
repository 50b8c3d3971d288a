// Package gesture classifies eye and iris features into gesture labels.
package gesture

import (
	"errors"
	"fmt"
)

// Label is one gesture the classifier can emit.
type Label string

// Labels are listed in classifier output order.
const (
	Up         Label = "up"
	Down       Label = "down"
	Right      Label = "right"
	Left       Label = "left"
	Center     Label = "center"
	Close      Label = "close"
	LeftClose  Label = "l_close"
	RightClose Label = "r_close"
)

// Labels maps a classifier output index to its label.
var Labels = []Label{Up, Down, Right, Left, Center, Close, LeftClose, RightClose}

// ErrUnknownLabel is returned for a name or index outside the label set.
var ErrUnknownLabel = errors.New("unknown gesture label")

// Parse converts a label name into a Label.
func Parse(name string) (Label, error) {
	for _, l := range Labels {
		if string(l) == name {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, name)
}

// FromIndex returns the label at classifier output index i.
func FromIndex(i int) (Label, error) {
	if i < 0 || i >= len(Labels) {
		return "", fmt.Errorf("%w: index %d", ErrUnknownLabel, i)
	}
	return Labels[i], nil
}

// IsOneEyeClosure reports whether l is a single closed eye, the gestures that
// pulse the relay.
func (l Label) IsOneEyeClosure() bool {
	return l == LeftClose || l == RightClose
}

func (l Label) String() string {
	return string(l)
}
