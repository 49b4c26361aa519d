package alerts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Permission is the tri-state desktop notification permission
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// DefaultNotificationTimeout is how long a desktop notification stays open
const DefaultNotificationTimeout = 10 * time.Second

// ErrPreferenceUnavailable is the class of errors raised when a user
// preference cannot be honoured on this platform
var ErrPreferenceUnavailable = errors.New("preference unavailable")

var (
	// ErrNotSupported means the platform has no desktop notifications
	ErrNotSupported = fmt.Errorf("%w: desktop notifications are not supported", ErrPreferenceUnavailable)
	// ErrPermissionDenied means the user blocked desktop notifications
	ErrPermissionDenied = fmt.Errorf("%w: desktop notifications are blocked", ErrPreferenceUnavailable)
)

// Notification is a desktop notification request
type Notification struct {
	Title              string
	Body               string
	Tag                string
	RequireInteraction bool
}

// Handle controls a notification that is on screen
type Handle interface {
	// Clicked is closed or signalled when the user clicks the notification.
	// A nil channel means clicks are never reported.
	Clicked() <-chan struct{}
	Close() error
}

// Capability is the platform notification facility
type Capability interface {
	IsSupported() bool
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Show(n Notification) (Handle, error)
	// Focus brings the dashboard back to the foreground
	Focus() error
}

// Desktop is the desktop notification port
type Desktop struct {
	capability Capability
	timeout    time.Duration
	logger     *log.Logger

	mu         sync.Mutex
	enabled    bool
	focused    bool
	permission Permission
	active     map[string]*openNotification

	wg      sync.WaitGroup
	closing bool
	closed  chan struct{}
	once    sync.Once
}

// DesktopOption configures a Desktop port
type DesktopOption func(*Desktop)

// WithNotificationTimeout overrides the auto-dismiss delay
func WithNotificationTimeout(d time.Duration) DesktopOption {
	return func(p *Desktop) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithDesktopLogger sets the logger for notification failures
func WithDesktopLogger(logger *log.Logger) DesktopOption {
	return func(p *Desktop) {
		p.logger = logger
	}
}

// NewDesktop creates a disabled desktop port that assumes the dashboard is focused
func NewDesktop(capability Capability, opts ...DesktopOption) *Desktop {
	d := &Desktop{
		capability: capability,
		timeout:    DefaultNotificationTimeout,
		logger:     log.Default(),
		focused:    true,
		permission: PermissionDefault,
		active:     make(map[string]*openNotification),
		closed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if capability != nil && capability.IsSupported() {
		d.permission = capability.Permission()
	}
	return d
}

// IsSupported reports whether the platform can show notifications
func (d *Desktop) IsSupported() bool {
	return d.capability != nil && d.capability.IsSupported()
}

// Permission returns the last known permission
func (d *Desktop) Permission() Permission {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permission
}

// RequestPermission asks the platform for permission and caches the answer
func (d *Desktop) RequestPermission(ctx context.Context) (Permission, error) {
	if !d.IsSupported() {
		return PermissionDenied, ErrNotSupported
	}

	perm, err := d.capability.RequestPermission(ctx)
	if err != nil {
		return PermissionDefault, fmt.Errorf("request notification permission: %w", err)
	}

	d.mu.Lock()
	d.permission = perm
	d.mu.Unlock()
	return perm, nil
}

// SetEnabled turns desktop notifications on or off
func (d *Desktop) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// Enabled reports whether desktop notifications are on
func (d *Desktop) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// SetFocused records whether the dashboard is in the foreground
func (d *Desktop) SetFocused(focused bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.focused = focused
}

// Focused reports whether the dashboard is in the foreground
func (d *Desktop) Focused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.focused
}

// Notify shows a notification unless the port is disabled, permission is not
// granted, the dashboard is focused, or one with the same dedupe key is still
// open. It reports whether a notification was shown.
func (d *Desktop) Notify(title, body, dedupeKey string) (bool, error) {
	d.mu.Lock()
	if d.closing || !d.enabled || d.permission != PermissionGranted || d.focused || d.capability == nil {
		d.mu.Unlock()
		return false, nil
	}
	if dedupeKey == "" {
		dedupeKey = uuid.New().String()
	}
	if _, exists := d.active[dedupeKey]; exists {
		d.mu.Unlock()
		return false, nil
	}
	open := &openNotification{}
	d.active[dedupeKey] = open
	d.mu.Unlock()

	handle, err := d.capability.Show(Notification{
		Title:              title,
		Body:               body,
		Tag:                dedupeKey,
		RequireInteraction: true,
	})
	if err != nil {
		d.mu.Lock()
		delete(d.active, dedupeKey)
		d.mu.Unlock()
		return false, fmt.Errorf("show notification %s: %w", dedupeKey, err)
	}
	open.handle = handle

	d.mu.Lock()
	if d.closing {
		delete(d.active, dedupeKey)
		d.mu.Unlock()
		if err := handle.Close(); err != nil {
			d.logger.Printf("Failed to dismiss notification %s: %v", dedupeKey, err)
		}
		return false, nil
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go d.watch(dedupeKey, open)
	return true, nil
}

// Open returns the number of notifications currently on screen
func (d *Desktop) Open() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.active)
}

type openNotification struct {
	handle Handle
}

func (d *Desktop) watch(key string, open *openNotification) {
	defer d.wg.Done()

	handle := open.handle

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case <-handle.Clicked():
		if err := d.capability.Focus(); err != nil {
			d.logger.Printf("Failed to focus dashboard: %v", err)
		} else {
			d.SetFocused(true)
		}
	case <-timer.C:
	case <-d.closed:
	}

	if err := handle.Close(); err != nil {
		d.logger.Printf("Failed to dismiss notification %s: %v", key, err)
	}

	d.mu.Lock()
	if d.active[key] == open {
		delete(d.active, key)
	}
	d.mu.Unlock()
}

// Close dismisses every open notification and waits for them to be released
func (d *Desktop) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closing = true
		d.mu.Unlock()
		close(d.closed)
	})
	d.wg.Wait()
}
