package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// OperationType represents the kind of pipeline work being measured
type OperationType string

const (
	// TickOperation is one scheduler tick: roll, generate, insert, dispatch
	TickOperation OperationType = "TICK"
	// DispatchOperation is the delivery of one transaction to its subscribers
	DispatchOperation OperationType = "DISPATCH"
	// ArchiveOperation is one alert write to the archive backend
	ArchiveOperation OperationType = "ARCHIVE"
)

// Counter names recorded by the pipeline
const (
	CounterGenerated          = "generated"
	CounterSkipped            = "skipped"
	CounterFraud              = "fraud"
	CounterPending            = "pending"
	CounterLegitimate         = "legitimate"
	CounterSubscriberFailures = "subscriberFailures"
	CounterArchiveDropped     = "archiveDropped"
)

// SessionResult stores the metrics for a complete stream session
type SessionResult struct {
	SessionID   string                 `json:"sessionId"`
	Description string                 `json:"description"`
	Config      map[string]interface{} `json:"config"`
	StartTime   time.Time              `json:"startTime"`
	EndTime     time.Time              `json:"endTime"`
	Duration    time.Duration          `json:"duration"`
	Operations  []*OperationMetric     `json:"operations"`
	Counters    map[string]int64       `json:"counters"`
	Summary     map[string]interface{} `json:"summary"`
}

// OperationMetric represents metrics for a single operation
type OperationMetric struct {
	Type         OperationType `json:"type"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      time.Time     `json:"endTime"`
	Duration     time.Duration `json:"duration"`
	ItemCount    int64         `json:"itemCount"`
	Error        error         `json:"-"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
}

// Collector collects and organizes metrics for stream sessions.
// It is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	current  *SessionResult
	sessions map[string]*SessionResult
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		sessions: make(map[string]*SessionResult),
	}
}

// StartSession begins a new session and sets it as the current one
func (c *Collector) StartSession(id, description string, config map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = &SessionResult{
		SessionID:   id,
		Description: description,
		Config:      config,
		StartTime:   time.Now(),
		Operations:  make([]*OperationMetric, 0),
		Counters:    make(map[string]int64),
		Summary:     make(map[string]interface{}),
	}

	c.sessions[id] = c.current
}

// MeasureOperation times operation and records it against the current
// session. The operation's error is returned unchanged.
func (c *Collector) MeasureOperation(opType OperationType, itemCount int64, operation func() error) error {
	if operation == nil {
		return fmt.Errorf("operation function cannot be nil")
	}

	metric := &OperationMetric{
		Type:      opType,
		StartTime: time.Now(),
		ItemCount: itemCount,
	}

	err := operation()
	metric.EndTime = time.Now()
	metric.Duration = metric.EndTime.Sub(metric.StartTime)

	if err != nil {
		metric.Error = err
		metric.ErrorMessage = err.Error()
	}

	c.record(metric)
	return err
}

// RecordOperation records an operation that was timed elsewhere
func (c *Collector) RecordOperation(opType OperationType, itemCount int64, duration time.Duration) {
	now := time.Now()
	c.record(&OperationMetric{
		Type:      opType,
		StartTime: now.Add(-duration),
		EndTime:   now,
		Duration:  duration,
		ItemCount: itemCount,
	})
}

func (c *Collector) record(metric *OperationMetric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.Operations = append(c.current.Operations, metric)
	}
}

// Increment adds delta to a named counter of the current session
func (c *Collector) Increment(name string, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.Counters[name] += delta
	}
}

// Counters returns a copy of the current session's counters
func (c *Collector) Counters() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]int64)
	if c.current == nil {
		return out
	}
	for k, v := range c.current.Counters {
		out[k] = v
	}
	return out
}

// AddCustomMetric adds a custom metric to the current session summary
func (c *Collector) AddCustomMetric(name string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return fmt.Errorf("no session is currently running")
	}

	c.current.Summary[name] = value
	return nil
}

// EndSession completes the named session, calculates summary metrics and
// returns the result. It returns nil unless id is the current session.
func (c *Collector) EndSession(id string) *SessionResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, exists := c.sessions[id]
	if !exists || session != c.current {
		return nil
	}

	session.EndTime = time.Now()
	session.Duration = session.EndTime.Sub(session.StartTime)
	summarize(session)

	c.current = nil
	return session
}

func summarize(session *SessionResult) {
	for name, value := range session.Counters {
		session.Summary[name] = value
	}

	byType := make(map[OperationType][]int64)
	var errorCount int64
	for _, op := range session.Operations {
		byType[op.Type] = append(byType[op.Type], op.Duration.Nanoseconds())
		if op.Error != nil {
			errorCount++
		}
	}

	opCount := int64(len(session.Operations))
	session.Summary["operationCount"] = opCount
	session.Summary["errorCount"] = errorCount
	if opCount == 0 {
		return
	}

	if generated, ok := session.Counters[CounterGenerated]; ok && session.Duration > 0 {
		session.Summary["throughput"] = float64(generated) / session.Duration.Seconds()
	}

	for opType, durations := range byType {
		var total int64
		for _, d := range durations {
			total += d
		}
		prefix := string(opType)
		session.Summary[prefix+".count"] = int64(len(durations))
		session.Summary[prefix+".avgDuration"] = total / int64(len(durations))

		if len(durations) >= 10 {
			sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
			n := len(durations)
			session.Summary[prefix+".p50"] = durations[n*50/100]
			session.Summary[prefix+".p90"] = durations[n*90/100]
			session.Summary[prefix+".p99"] = durations[n*99/100]
		}
	}
}

// GetSessionResult retrieves a session by id
func (c *Collector) GetSessionResult(id string) *SessionResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sessions[id]
}

// ResetCollector clears all session data
func (c *Collector) ResetCollector() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = nil
	c.sessions = make(map[string]*SessionResult)
}
