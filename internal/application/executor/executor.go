package executor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/aescanero/autocal/internal/node"
	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/measurement"
	"github.com/aescanero/autocal/pkg/ports"
	"github.com/aescanero/autocal/pkg/samplespace"
)

// Executor measures node specs on a hardware backend
type Executor struct {
	hardware ports.Hardware
	store    ports.ParameterStore
	metrics  ports.MetricsCollector
	logger   *zap.Logger

	timeout        time.Duration
	interval       time.Duration
	compileTimeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithCompileTimeout bounds every schedule compilation on the hardware.
func WithCompileTimeout(d time.Duration) Option {
	return func(e *Executor) { e.compileTimeout = d }
}

// NewExecutor creates an executor. timeout bounds every execution and
// interval is the progress logging period.
func NewExecutor(
	hardware ports.Hardware,
	store ports.ParameterStore,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	timeout, interval time.Duration,
	opts ...Option,
) *Executor {
	e := &Executor{
		hardware: hardware,
		store:    store,
		metrics:  metrics,
		logger:   logger,
		timeout:  timeout,
		interval: interval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Measure runs the initial operation, every external iteration and the
// final operation of spec and returns the configured dataset.
func (e *Executor) Measure(ctx context.Context, spec *node.Spec) (ds *dataset.Dataset, err error) {
	external := spec.External.Quantities()
	if len(external) > 1 {
		return nil, fmt.Errorf("node %s sweeps %d external quantities, at most one is supported", spec.Name, len(external))
	}

	if spec.InitialOperation != nil {
		if err := spec.InitialOperation(ctx); err != nil {
			return nil, fmt.Errorf("initial operation of %s failed: %w", spec.Name, err)
		}
	}
	if spec.FinalOperation != nil {
		defer func() {
			if ferr := spec.FinalOperation(context.WithoutCancel(ctx)); ferr != nil {
				err = errors.Join(err, fmt.Errorf("final operation of %s failed: %w", spec.Name, ferr))
				ds = nil
			}
		}()
	}

	device, err := e.snapshot(ctx, spec)
	if err != nil {
		return nil, err
	}

	iterations := 1
	var quantity string
	if len(external) == 1 {
		quantity = external[0]
		if iterations, err = spec.External.Iterations(); err != nil {
			return nil, fmt.Errorf("invalid external samplespace of %s: %w", spec.Name, err)
		}
		if iterations == 0 {
			return nil, fmt.Errorf("external quantity %s of %s has no points", quantity, spec.Name)
		}
	}

	e.logger.Info("measuring node",
		zap.String("node", spec.Name),
		zap.String("sweep", string(spec.Sweep)),
		zap.Int("iterations", iterations))

	var compiled []ports.CompiledSchedule
	var result *dataset.Dataset
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("measurement of %s interrupted: %w", spec.Name, err)
		}

		var reduced *samplespace.Samplespace
		if quantity != "" {
			if reduced, err = spec.External.Reduce(i); err != nil {
				return nil, err
			}
			if spec.PreMeasurement != nil {
				if err := spec.PreMeasurement(ctx, reduced); err != nil {
					return nil, fmt.Errorf("pre-measurement of %s at iteration %d failed: %w", spec.Name, i, err)
				}
			}
			e.logger.Debug("external iteration",
				zap.String("node", spec.Name),
				zap.String("quantity", quantity),
				zap.Int("iteration", i))
		}

		if spec.Sweep == node.ParameterizedSweep {
			compiled = nil
		}
		part, cache, err := e.measureBatches(ctx, spec, reduced, device, compiled)
		if err != nil {
			return nil, err
		}
		compiled = cache

		if quantity == "" {
			result = part
			continue
		}
		if result, err = dataset.Concat(result, part, quantity); err != nil {
			return nil, fmt.Errorf("failed to join iteration %d of %s: %w", i, spec.Name, err)
		}
	}

	result.Attrs["sweep"] = string(spec.Sweep)
	result.Attrs["qubit_state"] = strconv.Itoa(spec.QubitState)
	result.Attrs["flatten_order"] = spec.Order.String()
	return result, nil
}

// measureBatches executes every batch of the schedule samplespace for one
// external point. Compiled schedules are reused when cache holds them.
func (e *Executor) measureBatches(
	ctx context.Context,
	spec *node.Spec,
	reduced *samplespace.Samplespace,
	device ports.DeviceSnapshot,
	cache []ports.CompiledSchedule,
) (*dataset.Dataset, []ports.CompiledSchedule, error) {
	batches, err := spec.Schedule.NumberOfBatches()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid schedule samplespace of %s: %w", spec.Name, err)
	}
	batched, isBatched := spec.Schedule.BatchedQuantity()
	if len(cache) != batches {
		cache = make([]ports.CompiledSchedule, batches)
	}

	var out *dataset.Dataset
	for b := 0; b < batches; b++ {
		layout := spec.Layout(reduced)
		if isBatched {
			if layout.Schedule, err = spec.Schedule.ReduceBatch(b); err != nil {
				return nil, nil, err
			}
		}

		if cache[b] == nil {
			if cache[b], err = e.compile(ctx, spec, layout, device); err != nil {
				return nil, nil, err
			}
		}

		raw, err := e.execute(ctx, cache[b])
		if err != nil {
			return nil, nil, err
		}

		part, err := dataset.Configure(raw, layout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to configure dataset of %s: %w", spec.Name, err)
		}
		if !isBatched {
			out = part
			continue
		}
		if out, err = dataset.Concat(out, part, batched); err != nil {
			return nil, nil, fmt.Errorf("failed to join batch %d of %s: %w", b, spec.Name, err)
		}
	}
	return out, cache, nil
}

func (e *Executor) compile(ctx context.Context, spec *node.Spec, layout dataset.Layout, device ports.DeviceSnapshot) (ports.CompiledSchedule, error) {
	if e.compileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.compileTimeout)
		defer cancel()
	}
	schedule, err := spec.Measurement.Build(ctx, measurement.Request{
		Layout:     layout,
		Keywords:   spec.Keywords,
		QubitState: spec.QubitState,
		Device:     device,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule of %s: %w", spec.Name, err)
	}
	compiled, err := e.hardware.Compile(ctx, schedule, device)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schedule of %s: %w", spec.Name, err)
	}
	return compiled, nil
}

// execute runs compiled under the execution timeout.
func (e *Executor) execute(ctx context.Context, compiled ports.CompiledSchedule) (ports.RawDataset, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	monitor := NewProgressMonitor(compiled.Name(), compiled.Duration(), e.interval, e.logger)
	monitor.Start()
	defer monitor.Stop()

	raw, err := e.hardware.Execute(ctx, compiled)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("execution of %s exceeded %s: %w", compiled.Name(), e.timeout, err)
		}
		return nil, fmt.Errorf("failed to execute %s: %w", compiled.Name(), err)
	}
	e.metrics.RecordMeasurement(compiled.Name())
	return raw, nil
}

// snapshot reads the stored parameters of every entity in scope.
func (e *Executor) snapshot(ctx context.Context, spec *node.Spec) (ports.DeviceSnapshot, error) {
	device := make(ports.DeviceSnapshot)
	for _, entity := range spec.Entities() {
		fields, err := e.store.GetFields(ctx, entity)
		if err != nil {
			return nil, fmt.Errorf("failed to read parameters of %s: %w", entity, err)
		}
		device[entity] = fields
	}
	return device, nil
}
