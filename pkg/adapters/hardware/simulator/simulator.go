package simulator

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/measurement"
	"github.com/aescanero/autocal/pkg/ports"
)

// Span is the range of a swept quantity. Centre is where the simulated
// feature sits, the midpoint unless a calibrated parameter places it.
type Span struct {
	Lo, Hi float64
	Centre float64
}

// DefaultCentres maps swept quantities to the calibrated field that locates
// the ground state feature along them.
var DefaultCentres = map[string]string{
	"ro_frequencies": "clock_freqs:readout",
	"mw_amplitudes":  "rxy:amp180",
}

// Response returns the acquired signal of qubit prepared in state at one
// sweep point.
type Response func(qubit string, state int, point map[string]float64, spans map[string]Span) complex128

// Option configures a Simulator.
type Option func(*Simulator)

// WithResponse replaces the default response model.
func WithResponse(r Response) Option {
	return func(s *Simulator) { s.response = r }
}

// WithCentres replaces DefaultCentres.
func WithCentres(centres map[string]string) Option {
	return func(s *Simulator) { s.centres = centres }
}

// WithShotTime sets the simulated duration of one shot.
func WithShotTime(d time.Duration) Option {
	return func(s *Simulator) { s.shotTime = d }
}

// WithNoise adds Gaussian noise of width sigma to both quadratures.
func WithNoise(sigma float64, seed uint64) Option {
	return func(s *Simulator) {
		s.noise = sigma
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// Simulator implements ports.Hardware for measurement.SweepSchedule.
type Simulator struct {
	response Response
	centres  map[string]string
	shotTime time.Duration
	noise    float64
	logger   *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

type compiled struct {
	schedule *measurement.SweepSchedule
	spans    map[string]map[string]Span
	duration time.Duration
}

func (c *compiled) Name() string            { return c.schedule.Name() }
func (c *compiled) Duration() time.Duration { return c.duration }

// New creates a simulator
func New(logger *zap.Logger, opts ...Option) *Simulator {
	s := &Simulator{response: DefaultResponse, centres: DefaultCentres, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile resolves the sweep of every measured qubit. For ground state
// schedules the features sit on the calibrated parameters of device, or of
// the schedule when device has none, as long as they fall inside the sweep.
func (s *Simulator) Compile(ctx context.Context, schedule ports.Schedule, device ports.DeviceSnapshot) (ports.CompiledSchedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sweep, ok := schedule.(*measurement.SweepSchedule)
	if !ok {
		return nil, fmt.Errorf("simulator cannot compile schedule %s of type %T", schedule.Name(), schedule)
	}

	spans := make(map[string]map[string]Span, len(sweep.Layout.Qubits))
	for _, q := range sweep.Layout.Qubits {
		spans[q] = make(map[string]Span)
		for _, a := range sweep.AcquisitionAxes() {
			if a.Quantity == dataset.LoopQuantity {
				continue
			}
			c, err := sweep.Layout.CoordinateFor(a.Quantity, q)
			if err != nil {
				return nil, fmt.Errorf("failed to compile %s: %w", sweep.Name(), err)
			}
			sp := spanOf(c.Values)
			if x, ok := s.centre(sweep, device, q, a.Quantity); ok && x >= sp.Lo && x <= sp.Hi {
				sp.Centre = x
			}
			spans[q][a.Quantity] = sp
		}
	}

	shots := sweep.Points() * sweep.Repetitions
	c := &compiled{schedule: sweep, spans: spans, duration: time.Duration(shots) * s.shotTime}

	s.logger.Debug("schedule compiled",
		zap.String("schedule", sweep.Name()),
		zap.Int("points", sweep.Points()),
		zap.Int("channels", sweep.Channels()),
		zap.Duration("duration", c.duration))

	return c, nil
}

func (s *Simulator) centre(sweep *measurement.SweepSchedule, device ports.DeviceSnapshot, qubit, quantity string) (float64, bool) {
	if sweep.QubitState != 0 {
		return 0, false
	}
	field, ok := s.centres[quantity]
	if !ok {
		return 0, false
	}
	if x, ok := device[domain.Transmon(qubit)][field].Float(); ok {
		return x, true
	}
	return sweep.Parameter(qubit, field)
}

// Execute waits for the simulated duration and returns one buffer per
// acquisition channel
func (s *Simulator) Execute(ctx context.Context, cs ports.CompiledSchedule) (ports.RawDataset, error) {
	c, ok := cs.(*compiled)
	if !ok {
		return nil, fmt.Errorf("simulator cannot execute schedule %s of type %T", cs.Name(), cs)
	}

	if c.duration > 0 {
		timer := time.NewTimer(c.duration)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("execution of %s interrupted: %w", c.Name(), ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	sweep := c.schedule
	n := len(sweep.Layout.Qubits)
	raw := make(ports.RawDataset, sweep.Channels())
	for k := 0; k < sweep.Channels(); k++ {
		qubit := sweep.Layout.Qubits[k%n]
		state := k / n
		buf := make([]complex128, sweep.Points())
		for r := range buf {
			point, err := sweep.Point(qubit, r)
			if err != nil {
				return nil, err
			}
			if sweep.Layout.Reshuffle != nil {
				state = int(point[sweep.Layout.Reshuffle.States])
			}
			buf[r] = s.response(qubit, state, point, c.spans[qubit]) + s.sample()
		}
		raw[k] = buf
	}
	return raw, nil
}

func (s *Simulator) sample() complex128 {
	if s.noise == 0 || s.rng == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return complex(s.rng.NormFloat64()*s.noise, s.rng.NormFloat64()*s.noise)
}

// DefaultResponse multiplies one factor per swept quantity: an exponential
// decay for delays and a Gaussian dip centred in the sweep for everything
// else. The dip sits on the span centre, moves by an eighth of the span per
// prepared state, and the phase rotates with the state.
func DefaultResponse(_ string, state int, point map[string]float64, spans map[string]Span) complex128 {
	m := 1.0
	for q, sp := range spans {
		width := sp.Hi - sp.Lo
		if width <= 0 {
			continue
		}
		x := point[q]
		if strings.Contains(q, "delays") {
			m *= 0.2 + 0.8*math.Exp(-(x-sp.Lo)/(width/5))
			continue
		}
		c := sp.Centre + float64(state)*width/8
		d := (x - c) / (width / 6)
		m *= 1 - 0.8*math.Exp(-d*d)
	}
	return cmplx.Rect(m, float64(state)*math.Pi/3)
}

func spanOf(values []float64) Span {
	sp := Span{Lo: math.Inf(1), Hi: math.Inf(-1)}
	for _, v := range values {
		sp.Lo = math.Min(sp.Lo, v)
		sp.Hi = math.Max(sp.Hi, v)
	}
	sp.Centre = (sp.Lo + sp.Hi) / 2
	return sp
}
