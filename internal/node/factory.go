package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/autocal/internal/config"
	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/measurement"
	"github.com/aescanero/autocal/pkg/ports"
)

// ErrUnknownNode is returned when no constructor is registered for a name.
var ErrUnknownNode = errors.New("unknown node")

const defaultBiasPoll = 100 * time.Millisecond

// Env carries what node constructors read from the outside world.
type Env struct {
	Device      *config.Device
	Store       ports.ParameterStore
	Bias        ports.BiasSource
	Measurement measurement.Builder
	Logger      *zap.Logger

	// BiasPoll is the interval between bias settling checks.
	BiasPoll time.Duration
	// RepeatPause separates the repetitions of a repeated sweep.
	RepeatPause time.Duration
}

// current reads a calibrated value. Missing fields read as unset.
func (e *Env) current(ctx context.Context, entity domain.Entity, field string) (domain.Value, error) {
	v, err := e.Store.GetField(ctx, entity, field)
	if errors.Is(err, ports.ErrFieldNotFound) {
		return domain.None(), nil
	}
	if err != nil {
		return domain.None(), fmt.Errorf("failed to read %s of %s: %w", field, entity, err)
	}
	return v, nil
}

// Scope is the set of elements a node is instantiated for.
type Scope struct {
	Qubits   []string
	Couplers []string
	// Options is the node dictionary of the run. Entries become schedule
	// keywords and tune some nodes, e.g. loop_repetitions.
	Options map[string]float64
}

func (s Scope) option(name string, def float64) float64 {
	if v, ok := s.Options[name]; ok {
		return v
	}
	return def
}

// Constructor builds the spec of one node.
type Constructor func(ctx context.Context, env *Env, scope Scope) (*Spec, error)

// Factory creates node specs by name.
type Factory struct {
	env   *Env
	ctors map[string]Constructor
	names []string
}

// NewFactory returns a factory without registered nodes.
func NewFactory(env *Env) *Factory {
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}
	if env.Measurement == nil {
		env.Measurement = measurement.NewSweepBuilder()
	}
	if env.BiasPoll <= 0 {
		env.BiasPoll = defaultBiasPoll
	}
	if env.RepeatPause < 0 {
		env.RepeatPause = 0
	}
	return &Factory{env: env, ctors: make(map[string]Constructor)}
}

// Register adds or replaces the constructor of name.
func (f *Factory) Register(name string, c Constructor) {
	if _, ok := f.ctors[name]; !ok {
		f.names = append(f.names, name)
	}
	f.ctors[name] = c
}

// Names returns the registered node names in registration order.
func (f *Factory) Names() []string {
	return append([]string(nil), f.names...)
}

// Has reports whether name is registered.
func (f *Factory) Has(name string) bool {
	_, ok := f.ctors[name]
	return ok
}

// Create instantiates node name for scope.
func (f *Factory) Create(ctx context.Context, name string, scope Scope) (*Spec, error) {
	ctor, ok := f.ctors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	spec, err := ctor(ctx, f.env, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to create node %s: %w", name, err)
	}

	spec.Name = name
	if spec.Measurement == nil {
		spec.Measurement = f.env.Measurement
	}
	if spec.Sweep == "" {
		spec.Sweep = SimpleSweep
	}
	if spec.Measured == "" {
		spec.Measured = MeasureQubits
	}
	if spec.StateChannels < 1 {
		spec.StateChannels = 1
	}
	keywords := make(map[string]float64, len(spec.Keywords)+len(scope.Options))
	for k, v := range spec.Keywords {
		keywords[k] = v
	}
	for k, v := range scope.Options {
		keywords[k] = v
	}
	spec.Keywords = keywords

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid node %s: %w", name, err)
	}
	f.env.Logger.Debug("node created",
		zap.String("node", name),
		zap.Strings("qubits", spec.Qubits),
		zap.Strings("couplers", spec.Couplers),
		zap.String("sweep", string(spec.Sweep)))
	return spec, nil
}
