package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/autocal/internal/application/executor"
	"github.com/aescanero/autocal/internal/application/supervisor"
	"github.com/aescanero/autocal/internal/config"
	"github.com/aescanero/autocal/internal/graph"
	"github.com/aescanero/autocal/internal/node"
	"github.com/aescanero/autocal/pkg/adapters/events/memory"
	"github.com/aescanero/autocal/pkg/adapters/events/redis"
	"github.com/aescanero/autocal/pkg/adapters/hardware/simulator"
	"github.com/aescanero/autocal/pkg/adapters/journal/sqlite"
	"github.com/aescanero/autocal/pkg/adapters/metrics/prometheus"
	memorystorage "github.com/aescanero/autocal/pkg/adapters/storage/memory"
	redisstorage "github.com/aescanero/autocal/pkg/adapters/storage/redis"
	"github.com/aescanero/autocal/pkg/analysis"
	"github.com/aescanero/autocal/pkg/measurement"
	"github.com/aescanero/autocal/pkg/ports"
)

type eventBus interface {
	ports.EventBus
	Close() error
}

// app holds the wired components shared by the commands
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	device *config.Device
	graph  *graph.Graph

	redis   *goredis.Client
	store   ports.ParameterStore
	bus     eventBus
	journal *sqlite.Journal
	metrics *prometheus.Collector

	supervisor *supervisor.Supervisor
}

// newApp loads the configuration and wires every adapter
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if deviceFile != "" {
		cfg.DeviceConfig = deviceFile
	}
	if storeBackend != "" {
		cfg.Store = storeBackend
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &app{cfg: cfg, logger: initLogger(cfg.LogLevel), graph: graph.Default()}
	if err := a.wire(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	device, err := config.LoadDevice(a.cfg.DeviceConfig)
	if err != nil {
		return err
	}
	a.device = device

	if a.cfg.UsesRedis() {
		a.redis = goredis.NewClient(&goredis.Options{
			Addr:         a.cfg.Redis.Addr,
			Password:     a.cfg.Redis.Password,
			DB:           a.cfg.Redis.DB,
			PoolSize:     a.cfg.Redis.PoolSize,
			MinIdleConns: a.cfg.Redis.MinIdleConns,
			MaxRetries:   a.cfg.Redis.MaxRetries,
			DialTimeout:  a.cfg.Redis.DialTimeout,
			ReadTimeout:  a.cfg.Redis.ReadTimeout,
			WriteTimeout: a.cfg.Redis.WriteTimeout,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis at %s: %w", a.cfg.Redis.Addr, err)
		}
		a.logger.Info("connected to Redis", zap.String("addr", a.cfg.Redis.Addr))
	}

	if a.cfg.Store == "redis" {
		a.store = redisstorage.NewParameterStore(a.redis, a.logger)
	} else {
		a.store = memorystorage.NewParameterStore()
	}

	if a.cfg.Events == "redis" {
		bus, err := redis.NewStreamsEventBus(a.redis, "autocal-events", fmt.Sprintf("autocal-%d", os.Getpid()), a.logger)
		if err != nil {
			return fmt.Errorf("failed to create event bus: %w", err)
		}
		a.bus = bus
	} else {
		a.bus = memory.NewInMemoryEventBus(a.logger)
	}

	if a.journal, err = sqlite.Open(a.cfg.JournalPath, a.logger); err != nil {
		return err
	}
	a.metrics = prometheus.NewCollector(nil)

	hw := simulator.New(a.logger, simulator.WithShotTime(a.cfg.Hardware.ShotTime))
	exec := executor.NewExecutor(hw, a.store, a.metrics, a.logger,
		a.cfg.Hardware.ExecutionTimeout, a.cfg.Hardware.ProgressInterval,
		executor.WithCompileTimeout(a.cfg.Hardware.ClusterTimeout))

	factory := node.Default(&node.Env{
		Device:      device,
		Store:       a.store,
		Bias:        simulator.NewBias(a.cfg.Hardware.BiasRampRate, a.logger),
		Measurement: &measurement.SweepBuilder{Repetitions: a.cfg.Hardware.Repetitions},
		Logger:      a.logger,
		BiasPoll:    a.cfg.Hardware.BiasPollInterval,
		RepeatPause: a.cfg.Hardware.RepeatPause,
	})

	a.supervisor = supervisor.NewSupervisor(a.graph, factory, exec, a.store, device,
		a.bus, a.metrics, a.journal, a.logger, supervisor.Options{
			DataDir: a.cfg.DataDir,
			Policy:  a.policy(),
		})
	return nil
}

// policy builds the acceptance policy from the configuration
func (a *app) policy() analysis.Policy {
	var p analysis.Policy = analysis.MinConfidence(a.cfg.Acceptance.MinConfidence)
	if a.cfg.Acceptance.RequireComplete {
		p = analysis.RequireComplete(p)
	}
	return p
}

// close releases the adapters in reverse wiring order
func (a *app) close() {
	var errs []error
	if a.bus != nil {
		errs = append(errs, a.bus.Close())
	}
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("failed to close adapters", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// loadRun reads the run configuration and applies the command line
// overrides
func (a *app) loadRun(target string) (*config.Run, error) {
	path := runFile
	if path == "" {
		path = a.cfg.RunConfig
	}
	run, err := config.LoadRun(path)
	if err != nil {
		return nil, err
	}
	if target != "" {
		run.Target = target
	}
	if len(qubits) > 0 {
		run.Qubits = qubits
	}
	if len(couplers) > 0 {
		run.Couplers = couplers
	}
	if err := run.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}
	return run, nil
}
