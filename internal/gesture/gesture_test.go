package gesture

import (
	"encoding/binary"
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func TestLabels_Order(t *testing.T) {
	want := []string{"up", "down", "right", "left", "center", "close", "l_close", "r_close"}
	if len(Labels) != len(want) {
		t.Fatalf("len(Labels) = %d, want %d", len(Labels), len(want))
	}
	for i, name := range want {
		got, err := FromIndex(i)
		if err != nil {
			t.Fatalf("FromIndex(%d) error = %v", i, err)
		}
		if got.String() != name {
			t.Errorf("FromIndex(%d) = %q, want %q", i, got, name)
		}
	}
}

func TestFromIndex_OutOfRange(t *testing.T) {
	for _, i := range []int{-1, 8, 100} {
		if _, err := FromIndex(i); !errors.Is(err, ErrUnknownLabel) {
			t.Errorf("FromIndex(%d) error = %v, want ErrUnknownLabel", i, err)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		want    Label
		wantErr bool
	}{
		{name: "up", want: Up},
		{name: "l_close", want: LeftClose},
		{name: "r_close", want: RightClose},
		{name: "blink", wantErr: true},
		{name: "", wantErr: true},
		{name: "UP", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownLabel) {
					t.Errorf("Parse(%q) error = %v, want ErrUnknownLabel", tt.name, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestLabel_IsOneEyeClosure(t *testing.T) {
	for _, l := range Labels {
		want := l == LeftClose || l == RightClose
		if got := l.IsOneEyeClosure(); got != want {
			t.Errorf("%s.IsOneEyeClosure() = %v, want %v", l, got, want)
		}
	}
}

func TestFloat32Bytes(t *testing.T) {
	b := float32Bytes([]float32{1.5, -2})
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b[4:])); got != -2 {
		t.Errorf("second value = %f, want -2", got)
	}
}

func TestNewDNNClassifier_MissingModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.onnx")

	_, err := NewDNNClassifier(path)
	if !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("expected ErrModelNotLoaded, got %v", err)
	}
}

func TestMockClassifier(t *testing.T) {
	t.Run("scripted sequence repeats last", func(t *testing.T) {
		m := NewMockClassifier(Up, LeftClose)
		want := []Label{Up, LeftClose, LeftClose}
		for i, w := range want {
			got, err := m.Classify([]float32{float32(i)})
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got != w {
				t.Errorf("call %d = %q, want %q", i, got, w)
			}
		}
		if m.Calls() != 3 || len(m.Inputs()) != 3 {
			t.Errorf("Calls() = %d, inputs = %d, want 3", m.Calls(), len(m.Inputs()))
		}
	})

	t.Run("error", func(t *testing.T) {
		m := NewMockClassifier()
		m.SetError(errors.New("boom"))
		if _, err := m.Classify(nil); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("implements Classifier interface", func(t *testing.T) {
		var _ Classifier = (*MockClassifier)(nil)
		var _ Classifier = (*DNNClassifier)(nil)
	})
}
