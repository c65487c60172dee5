package ports

import (
	"context"
	"time"

	"github.com/aescanero/autocal/pkg/domain"
)

// Schedule is an uncompiled measurement program produced by a schedule builder.
type Schedule interface {
	Name() string
}

// CompiledSchedule is a schedule ready to run on the hardware.
type CompiledSchedule interface {
	Name() string
	// Duration is the expected wall-clock execution time.
	Duration() time.Duration
}

// DeviceSnapshot is the parameter state passed to the compiler.
type DeviceSnapshot map[domain.Entity]map[string]domain.Value

// RawDataset maps acquisition channel index to its flat complex buffer.
type RawDataset map[int][]complex128

// Hardware compiles and executes schedules.
type Hardware interface {
	Compile(ctx context.Context, schedule Schedule, device DeviceSnapshot) (CompiledSchedule, error)
	Execute(ctx context.Context, compiled CompiledSchedule) (RawDataset, error)
}

// BiasSource drives a DC bias line (coupler current source).
type BiasSource interface {
	SetBias(ctx context.Context, element string, value float64) error
	Settled(ctx context.Context, element string) (bool, error)
}
