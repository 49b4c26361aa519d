package stream

import (
	"math/rand"
	"time"

	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

// Default tick parameters
const (
	DefaultMinInterval     = 2000 * time.Millisecond
	DefaultMaxInterval     = 5000 * time.Millisecond
	DefaultEmitProbability = 0.7
)

// SchedulerConfig holds the tick timing parameters
type SchedulerConfig struct {
	MinInterval     time.Duration
	MaxInterval     time.Duration
	EmitProbability float64
}

// TickResult describes one completed tick
type TickResult struct {
	Emitted     bool
	Transaction transactions.Transaction
	Wait        time.Duration
	Duration    time.Duration
}

// Scheduler waits a random interval, then probabilistically generates a
// transaction and hands it to emit. The next wait is scheduled only after
// emit returns. All methods must be called from the owning loop.
type Scheduler struct {
	loop     *Loop
	cfg      SchedulerConfig
	rng      *rand.Rand
	generate func() transactions.Transaction
	emit     func(transactions.Transaction)
	observe  func(TickResult)

	running bool
	task    *Task
	wait    time.Duration
}

// NewScheduler creates a stopped scheduler. src drives both the interval and
// the emit roll.
func NewScheduler(loop *Loop, cfg SchedulerConfig, src rand.Source, generate func() transactions.Transaction, emit func(transactions.Transaction)) *Scheduler {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.MaxInterval <= cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval + time.Millisecond
	}
	return &Scheduler{
		loop:     loop,
		cfg:      cfg,
		rng:      rand.New(src),
		generate: generate,
		emit:     emit,
	}
}

// OnTick registers a function called after every tick
func (s *Scheduler) OnTick(fn func(TickResult)) {
	s.observe = fn
}

// Start begins ticking. Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start() {
	if s.running {
		return
	}
	s.running = true
	s.scheduleNext()
}

// Stop cancels the pending tick. It is idempotent.
func (s *Scheduler) Stop() {
	s.running = false
	s.task.Cancel()
	s.task = nil
}

// Running reports whether the scheduler is active
func (s *Scheduler) Running() bool {
	return s.running
}

func (s *Scheduler) scheduleNext() {
	span := int64(s.cfg.MaxInterval - s.cfg.MinInterval)
	s.wait = s.cfg.MinInterval + time.Duration(s.rng.Int63n(span))
	s.task = s.loop.After(s.wait, s.tick)
}

func (s *Scheduler) tick() {
	s.task = nil
	if !s.running {
		return
	}

	start := time.Now()
	result := TickResult{Wait: s.wait}
	if s.rng.Float64() < s.cfg.EmitProbability {
		result.Emitted = true
		result.Transaction = s.generate()
		s.emit(result.Transaction)
	}
	result.Duration = time.Since(start)

	if s.observe != nil {
		s.observe(result)
	}

	// emit may have stopped the scheduler
	if s.running && s.task == nil {
		s.scheduleNext()
	}
}
