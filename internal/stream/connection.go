package stream

import "time"

// Status is the lifecycle state of the simulated stream connection
type Status string

const (
	Connecting   Status = "connecting"
	Connected    Status = "connected"
	Disconnected Status = "disconnected"
)

// DefaultSettleDelay is the pause between a connect intent and the connected state
const DefaultSettleDelay = 1000 * time.Millisecond

// Label returns the indicator text shown for a status
func (s Status) Label() string {
	switch s {
	case Connected:
		return "Live"
	case Connecting:
		return "Connecting..."
	default:
		return "Disconnected"
	}
}

// Connection is the connect/disconnect state machine. All methods must be
// called from the owning loop.
type Connection struct {
	loop     *Loop
	settle   time.Duration
	status   Status
	pending  *Task
	onChange func(Status)
}

// NewConnection creates a disconnected state machine. onChange, if set, is
// called after every transition.
func NewConnection(loop *Loop, settle time.Duration, onChange func(Status)) *Connection {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Connection{
		loop:     loop,
		settle:   settle,
		status:   Disconnected,
		onChange: onChange,
	}
}

// SetIntent applies the "should be connected" flag
func (c *Connection) SetIntent(connected bool) {
	if !connected {
		c.pending.Cancel()
		c.pending = nil
		c.transition(Disconnected)
		return
	}

	if c.status != Disconnected {
		return
	}

	c.transition(Connecting)
	c.pending = c.loop.After(c.settle, func() {
		c.pending = nil
		c.transition(Connected)
	})
}

// Status returns the current state
func (c *Connection) Status() Status {
	return c.status
}

// Close cancels any in-flight settle timer
func (c *Connection) Close() {
	c.pending.Cancel()
	c.pending = nil
}

func (c *Connection) transition(next Status) {
	if c.status == next {
		return
	}
	c.status = next
	if c.onChange != nil {
		c.onChange(next)
	}
}
