package gesture

// MockClassifier returns a scripted sequence of labels.
type MockClassifier struct {
	labels []Label
	err    error
	calls  int
	closed int
	inputs [][]float32
}

// NewMockClassifier returns labels in order, repeating the last one.
func NewMockClassifier(labels ...Label) *MockClassifier {
	return &MockClassifier{labels: labels}
}

// SetError makes every Classify call fail with err.
func (m *MockClassifier) SetError(err error) {
	m.err = err
}

// Classify returns the next scripted label.
func (m *MockClassifier) Classify(features []float32) (Label, error) {
	m.calls++
	m.inputs = append(m.inputs, features)
	if m.err != nil {
		return "", m.err
	}
	if len(m.labels) == 0 {
		return Center, nil
	}
	i := m.calls - 1
	if i >= len(m.labels) {
		i = len(m.labels) - 1
	}
	return m.labels[i], nil
}

// Close counts calls.
func (m *MockClassifier) Close() error {
	m.closed++
	return nil
}

// Calls returns how many times Classify was called.
func (m *MockClassifier) Calls() int { return m.calls }

// Closed returns how many times Close was called.
func (m *MockClassifier) Closed() int { return m.closed }

// Inputs returns every feature vector passed to Classify.
func (m *MockClassifier) Inputs() [][]float32 { return m.inputs }
