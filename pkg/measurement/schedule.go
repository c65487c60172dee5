package measurement

import (
	"context"
	"fmt"

	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/ports"
)

// DefaultRepetitions is the number of shots averaged per point.
const DefaultRepetitions = 1024

// Request is everything a builder needs to produce a schedule.
type Request struct {
	Layout     dataset.Layout
	Keywords   map[string]float64
	QubitState int
	// Device is the parameter state read from the store for this run.
	Device ports.DeviceSnapshot
}

// Builder produces a schedule for one execution.
type Builder interface {
	Build(ctx context.Context, req Request) (ports.Schedule, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, req Request) (ports.Schedule, error)

// Build calls f.
func (f BuilderFunc) Build(ctx context.Context, req Request) (ports.Schedule, error) {
	return f(ctx, req)
}

// SweepSchedule is a generic swept measurement.
type SweepSchedule struct {
	Layout      dataset.Layout
	Keywords    map[string]float64
	Repetitions int
	QubitState  int
	// Parameters holds the calibrated values of every measured qubit.
	Parameters map[string]map[string]float64

	acquisition []dataset.Axis
}

// Name returns the node name.
func (s *SweepSchedule) Name() string {
	return s.Layout.Node
}

// AcquisitionAxes returns the hardware acquisition order, outermost first.
func (s *SweepSchedule) AcquisitionAxes() []dataset.Axis {
	return append([]dataset.Axis(nil), s.acquisition...)
}

// Points returns the number of acquisitions per channel.
func (s *SweepSchedule) Points() int {
	n := 1
	for _, a := range s.acquisition {
		n *= a.Length
	}
	return n
}

// Parameter returns the calibrated value of field for qubit.
func (s *SweepSchedule) Parameter(qubit, field string) (float64, bool) {
	v, ok := s.Parameters[qubit][field]
	return v, ok
}

// Channels returns the total number of acquisition channels.
func (s *SweepSchedule) Channels() int {
	states := s.Layout.StateChannels
	if states < 1 {
		states = 1
	}
	return len(s.Layout.Qubits) * states
}

// Point returns the swept values of qubit at acquisition index r.
func (s *SweepSchedule) Point(qubit string, r int) (map[string]float64, error) {
	if r < 0 || r >= s.Points() {
		return nil, fmt.Errorf("acquisition %d out of range (%d points)", r, s.Points())
	}
	shape := make([]int, len(s.acquisition))
	for i, a := range s.acquisition {
		shape[i] = a.Length
	}
	idx := dataset.Unravel(r, shape)

	point := make(map[string]float64, len(s.acquisition)+len(s.Layout.ExternalQuantities()))
	for i, a := range s.acquisition {
		c, err := s.Layout.CoordinateFor(a.Quantity, qubit)
		if err != nil {
			return nil, err
		}
		point[a.Quantity] = c.Values[idx[i]]
	}
	for _, q := range s.Layout.ExternalQuantities() {
		c, err := s.Layout.CoordinateFor(q, qubit)
		if err != nil {
			return nil, err
		}
		point[q] = c.Values[0]
	}
	for k, v := range s.Keywords {
		if _, swept := point[k]; !swept {
			point[k] = v
		}
	}
	return point, nil
}

// SweepBuilder builds SweepSchedules.
type SweepBuilder struct {
	Repetitions int
}

// NewSweepBuilder returns a builder with the default repetitions.
func NewSweepBuilder() *SweepBuilder {
	return &SweepBuilder{Repetitions: DefaultRepetitions}
}

// Build validates the layout and returns a SweepSchedule.
func (b *SweepBuilder) Build(ctx context.Context, req Request) (ports.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Layout.Qubits) == 0 {
		return nil, fmt.Errorf("schedule %s: no qubits", req.Layout.Node)
	}
	acquisition, err := req.Layout.AcquisitionAxes()
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule %s: %w", req.Layout.Node, err)
	}
	reps := b.Repetitions
	if reps <= 0 {
		reps = DefaultRepetitions
	}
	keywords := make(map[string]float64, len(req.Keywords))
	for k, v := range req.Keywords {
		keywords[k] = v
	}
	params := make(map[string]map[string]float64, len(req.Layout.Qubits))
	for _, q := range req.Layout.Qubits {
		fields := req.Device[domain.Transmon(q)]
		values := make(map[string]float64, len(fields))
		for f, v := range fields {
			if x, ok := v.Float(); ok {
				values[f] = x
			}
		}
		params[q] = values
	}
	return &SweepSchedule{
		Layout:      req.Layout,
		Keywords:    keywords,
		Repetitions: reps,
		QubitState:  req.QubitState,
		Parameters:  params,
		acquisition: acquisition,
	}, nil
}
