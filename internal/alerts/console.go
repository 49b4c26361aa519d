package alerts

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ConsoleCapability shows desktop notifications as framed blocks on a
// terminal. Permission starts at default and is granted on request unless
// the capability was created blocked.
type ConsoleCapability struct {
	mu         sync.Mutex
	w          io.Writer
	permission Permission
	blocked    bool
}

// NewConsoleCapability writes notifications to w
func NewConsoleCapability(w io.Writer, blocked bool) *ConsoleCapability {
	perm := PermissionDefault
	if blocked {
		perm = PermissionDenied
	}
	return &ConsoleCapability{w: w, permission: perm, blocked: blocked}
}

// IsSupported implements Capability
func (c *ConsoleCapability) IsSupported() bool {
	return c.w != nil
}

// Permission implements Capability
func (c *ConsoleCapability) Permission() Permission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permission
}

// RequestPermission implements Capability
func (c *ConsoleCapability) RequestPermission(ctx context.Context) (Permission, error) {
	if err := ctx.Err(); err != nil {
		return PermissionDefault, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.permission == PermissionDefault {
		c.permission = PermissionGranted
	}
	return c.permission, nil
}

// Show implements Capability
func (c *ConsoleCapability) Show(n Notification) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rule := strings.Repeat("=", 48)
	_, err := fmt.Fprintf(c.w, "%s\n%s\n%s\n%s\n", rule, n.Title, n.Body, rule)
	if err != nil {
		return nil, err
	}
	return &consoleHandle{}, nil
}

// Focus implements Capability
func (c *ConsoleCapability) Focus() error {
	return nil
}

type consoleHandle struct{}

func (h *consoleHandle) Clicked() <-chan struct{} { return nil }
func (h *consoleHandle) Close() error             { return nil }
