package actuator

import "sync"

// Mock counts Home and Close calls.
type Mock struct {
	mu     sync.Mutex
	homes  int
	closes int
	err    error
}

// NewMock returns a Mock whose calls succeed.
func NewMock() *Mock {
	return &Mock{}
}

// SetError makes Home fail with err.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Mock) Home() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.homes++
	return m.err
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

// Homes returns how many times Home was called.
func (m *Mock) Homes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.homes
}

// Closes returns how many times Close was called.
func (m *Mock) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}
