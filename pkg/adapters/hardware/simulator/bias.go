package simulator

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

type ramp struct {
	from, to float64
	started  time.Time
}

// Bias implements ports.BiasSource for simulated current sources that ramp
// at a fixed rate in amperes per second.
type Bias struct {
	rate   float64
	now    func() time.Time
	logger *zap.Logger

	mu    sync.Mutex
	ramps map[string]ramp
}

// NewBias creates a bias source ramping at rate. A non positive rate
// settles immediately.
func NewBias(rate float64, logger *zap.Logger) *Bias {
	return &Bias{rate: rate, now: time.Now, logger: logger, ramps: make(map[string]ramp)}
}

// SetBias starts a ramp from the present value to value
func (b *Bias) SetBias(ctx context.Context, element string, value float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	from := b.valueAt(element, now)
	b.ramps[element] = ramp{from: from, to: value, started: now}

	b.logger.Debug("bias ramp started",
		zap.String("element", element),
		zap.Float64("from", from),
		zap.Float64("to", value))
	return nil
}

// Settled reports whether the ramp of element has completed
func (b *Bias) Settled(ctx context.Context, element string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.ramps[element]
	if !ok {
		return true, nil
	}
	return b.valueAt(element, b.now()) == r.to, nil
}

// Value returns the present output of element
func (b *Bias) Value(element string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.valueAt(element, b.now())
}

func (b *Bias) valueAt(element string, t time.Time) float64 {
	r, ok := b.ramps[element]
	if !ok {
		return 0
	}
	if b.rate <= 0 {
		return r.to
	}
	step := b.rate * t.Sub(r.started).Seconds()
	if step >= math.Abs(r.to-r.from) {
		return r.to
	}
	if r.to < r.from {
		step = -step
	}
	return r.from + step
}
