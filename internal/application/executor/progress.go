package executor

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProgressMonitor logs the progress of one hardware execution
type ProgressMonitor struct {
	schedule string
	expected time.Duration
	interval time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	running bool
	started time.Time
	stopCh  chan struct{}
}

// Progress is a snapshot of an execution in flight
type Progress struct {
	Schedule  string
	Elapsed   time.Duration
	Expected  time.Duration
	Fraction  float64
	Overdue   bool
	Timestamp time.Time
}

// NewProgressMonitor creates a monitor for a schedule expected to take
// expected
func NewProgressMonitor(schedule string, expected, interval time.Duration, logger *zap.Logger) *ProgressMonitor {
	return &ProgressMonitor{
		schedule: schedule,
		expected: expected,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the monitor
func (p *ProgressMonitor) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.started = time.Now()
	p.mu.Unlock()

	go p.run()
}

// Stop stops the monitor
func (p *ProgressMonitor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
}

func (p *ProgressMonitor) run() {
	if p.interval <= 0 {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.report()
		}
	}
}

func (p *ProgressMonitor) report() {
	status := p.GetStatus()

	p.logger.Info("execution in progress",
		zap.String("schedule", status.Schedule),
		zap.Duration("elapsed", status.Elapsed),
		zap.Duration("expected", status.Expected),
		zap.Float64("fraction", status.Fraction))

	if status.Overdue {
		p.logger.Warn("execution is taking longer than expected",
			zap.String("schedule", status.Schedule),
			zap.Duration("elapsed", status.Elapsed),
			zap.Duration("expected", status.Expected))
	}
}

// GetStatus returns the current progress
func (p *ProgressMonitor) GetStatus() *Progress {
	p.mu.RLock()
	started := p.started
	p.mu.RUnlock()

	now := time.Now()
	var elapsed time.Duration
	if !started.IsZero() {
		elapsed = now.Sub(started)
	}

	fraction := 1.0
	if p.expected > 0 {
		fraction = min(1, float64(elapsed)/float64(p.expected))
	}

	return &Progress{
		Schedule:  p.schedule,
		Elapsed:   elapsed,
		Expected:  p.expected,
		Fraction:  fraction,
		Overdue:   p.expected > 0 && elapsed > p.expected,
		Timestamp: now,
	}
}
