package alerts

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errMockBackend = errors.New("mock audio backend error")

type tone struct {
	frequency float64
	offset    time.Duration
}

// mockBackend records played tones
type mockBackend struct {
	mu    sync.Mutex
	tones []tone
	Fail  bool
}

func (m *mockBackend) PlayTone(frequency float64, duration, offset time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return errMockBackend
	}
	m.tones = append(m.tones, tone{frequency: frequency, offset: offset})
	return nil
}

func (m *mockBackend) played() []tone {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tone{}, m.tones...)
}

// mockHandle is a notification that can be clicked from a test
type mockHandle struct {
	mu      sync.Mutex
	clicks  chan struct{}
	closed  bool
	closeCh chan struct{}
}

func newMockHandle() *mockHandle {
	return &mockHandle{clicks: make(chan struct{}, 1), closeCh: make(chan struct{})}
}

func (h *mockHandle) Clicked() <-chan struct{} { return h.clicks }

func (h *mockHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.closeCh)
	}
	return nil
}

func (h *mockHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// mockCapability implements Capability for testing
type mockCapability struct {
	mu          sync.Mutex
	Supported   bool
	Perm        Permission
	GrantResult Permission
	RequestErr  error
	ShowErr     error
	Shown       []Notification
	Handles     []*mockHandle
	FocusCalls  int
}

func (m *mockCapability) IsSupported() bool { return m.Supported }

func (m *mockCapability) Permission() Permission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Perm
}

func (m *mockCapability) RequestPermission(ctx context.Context) (Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RequestErr != nil {
		return PermissionDefault, m.RequestErr
	}
	m.Perm = m.GrantResult
	return m.Perm, nil
}

func (m *mockCapability) Show(n Notification) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShowErr != nil {
		return nil, m.ShowErr
	}
	h := newMockHandle()
	m.Shown = append(m.Shown, n)
	m.Handles = append(m.Handles, h)
	return h, nil
}

func (m *mockCapability) Focus() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FocusCalls++
	return nil
}

func (m *mockCapability) shown() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification{}, m.Shown...)
}

func (m *mockCapability) handle(i int) *mockHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Handles[i]
}

func (m *mockCapability) focusCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.FocusCalls
}

// mockToaster records toasts
type mockToaster struct {
	mu     sync.Mutex
	toasts []Toast
}

func (m *mockToaster) Toast(t Toast) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toasts = append(m.toasts, t)
}

func (m *mockToaster) all() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Toast{}, m.toasts...)
}

func grantedDesktop(opts ...DesktopOption) (*Desktop, *mockCapability) {
	capability := &mockCapability{Supported: true, Perm: PermissionGranted}
	d := NewDesktop(capability, opts...)
	d.SetEnabled(true)
	d.SetFocused(false)
	return d, capability
}

func waitUntil(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
