package dispatch

import (
	"fmt"
	"sync"
	"time"
)

// MockInjector records injection calls. It is safe for concurrent use.
type MockInjector struct {
	mu        sync.Mutex
	available bool
	err       error
	calls     []string
	notify    chan string
}

// NewMockInjector returns an available MockInjector.
func NewMockInjector() *MockInjector {
	return &MockInjector{available: true, notify: make(chan string, 64)}
}

// SetAvailable changes the reported availability.
func (m *MockInjector) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// SetError makes every primitive fail with err.
func (m *MockInjector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the recorded primitives, e.g. "swipe up" or "tap 0.50,0.50 50ms".
func (m *MockInjector) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Notify delivers every recorded call as it happens.
func (m *MockInjector) Notify() <-chan string {
	return m.notify
}

func (m *MockInjector) IsAvailable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

func (m *MockInjector) Swipe(dir Direction) error {
	return m.record("swipe " + dir.String())
}

func (m *MockInjector) Tap(x, y float64, d time.Duration) error {
	return m.record(fmt.Sprintf("tap %.2f,%.2f %s", x, y, d))
}

func (m *MockInjector) VolumeDown() error {
	return m.record("volume down")
}

func (m *MockInjector) record(call string) error {
	m.mu.Lock()
	err := m.err
	m.calls = append(m.calls, call)
	m.mu.Unlock()

	select {
	case m.notify <- call:
	default:
	}
	return err
}
