package supervisor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/autocal/internal/application/executor"
	"github.com/aescanero/autocal/internal/config"
	"github.com/aescanero/autocal/internal/graph"
	"github.com/aescanero/autocal/internal/node"
	events "github.com/aescanero/autocal/pkg/adapters/events/memory"
	"github.com/aescanero/autocal/pkg/adapters/hardware/simulator"
	"github.com/aescanero/autocal/pkg/adapters/journal/sqlite"
	metrics "github.com/aescanero/autocal/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/autocal/pkg/adapters/storage/memory"
	"github.com/aescanero/autocal/pkg/analysis"
	"github.com/aescanero/autocal/pkg/dataset"
	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/ports"
)

const deviceTOML = `
[vna.resonator]
q06 = 6832973301.189378
q07 = 7086671753.192583

[vna.qubit_01]
q06 = 4641051698.389338
q07 = 5062952740.123177

[vna.qubit_12]
q06 = 4.507e9
q07 = 4.819e9

[initials.qubits]
"init_duration" = 200e-6
"rxy:duration" = 28e-9

[initials.couplers]
"cz_pulse_duration" = 272e-9

[qoi.rabi_oscillations.per_qubit.q07]
"rxy:amp180" = 0.3

[nodes.qubit_01_spectroscopy.qubits]
"spec:spec_amp" = 0.012
`

// recordingMeasurer wraps a measurer and remembers every spec it saw.
// analysis, when set, replaces the analysis factory of the measured spec.
type recordingMeasurer struct {
	next     Measurer
	err      error
	specs    []*node.Spec
	analysis func(spec *node.Spec) analysis.Factory
}

func (m *recordingMeasurer) Measure(ctx context.Context, spec *node.Spec) (*dataset.Dataset, error) {
	m.specs = append(m.specs, spec)
	if m.analysis != nil {
		spec.Analysis = m.analysis(spec)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.next.Measure(ctx, spec)
}

type fixture struct {
	sup      *Supervisor
	store    *memory.ParameterStore
	measurer *recordingMeasurer
	journal  *sqlite.Journal
	dataDir  string

	mu     sync.Mutex
	events []ports.Event
}

func (f *fixture) eventTypes() []ports.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ports.EventType, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

func newFixture(t *testing.T, policy analysis.Policy) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	device, err := config.ParseDevice([]byte(deviceTOML))
	require.NoError(t, err)

	logger := zap.NewNop()
	store := memory.NewParameterStore()
	collector := metrics.NewCollector(prometheus.NewRegistry())
	hw := simulator.New(logger)
	exec := executor.NewExecutor(hw, store, collector, logger, time.Minute, time.Hour)

	journal, err := sqlite.Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	factory := node.Default(&node.Env{
		Device:   device,
		Store:    store,
		Bias:     simulator.NewBias(0, logger),
		Logger:   logger,
		BiasPoll: time.Millisecond,
	})

	f := &fixture{
		store:    store,
		measurer: &recordingMeasurer{next: exec},
		journal:  journal,
		dataDir:  t.TempDir(),
	}
	bus := events.NewInMemoryEventBus(logger)
	require.NoError(t, bus.Subscribe(ctx, ports.TopicCalibration, func(_ context.Context, e ports.Event) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.events = append(f.events, e)
		return nil
	}))

	f.sup = NewSupervisor(graph.Default(), factory, f.measurer, store, device, bus, collector, journal, logger,
		Options{DataDir: f.dataDir, Policy: policy})
	return f
}

func rabiRun() *config.Run {
	return &config.Run{Target: graph.NodeRabiOscillations, Qubits: []string{"q06", "q07"}}
}

func status(t *testing.T, store ports.ParameterStore, q, n string) domain.CalibrationStatus {
	t.Helper()
	st, err := store.GetStatus(context.Background(), domain.Transmon(q), n)
	require.NoError(t, err)
	return st
}

func field(t *testing.T, store ports.ParameterStore, e domain.Entity, name string) domain.Value {
	t.Helper()
	v, err := store.GetField(context.Background(), e, name)
	require.NoError(t, err)
	return v
}

func TestCalibrateSystemEndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	report, err := f.sup.CalibrateSystem(ctx, "run-1", rabiRun())
	require.NoError(t, err)

	order := []string{graph.NodeResonatorSpectroscopy, graph.NodeQubit01Spectroscopy, graph.NodeRabiOscillations}
	assert.Equal(t, order, report.Order)
	require.Len(t, report.Nodes, 3)
	for i, r := range report.Nodes {
		assert.Equal(t, order[i], r.Node)
		assert.Equal(t, OutcomeCalibrated, r.Outcome)
		assert.Equal(t, domain.DataOutOfSpec, r.Status)
		assert.FileExists(t, filepath.Join(r.DataPath, dataset.FileName))
		assert.FileExists(t, filepath.Join(r.DataPath, r.Node+".txt"))
	}

	for _, q := range []string{"q06", "q07"} {
		for _, n := range order {
			assert.Equal(t, domain.StatusCalibrated, status(t, f.store, q, n), "%s %s", q, n)
		}
		f01, ok := field(t, f.store, domain.Transmon(q), "clock_freqs:f01").Float()
		require.True(t, ok)
		assert.InDelta(t, f.sup.device.VNA.Qubit01[q], f01, 2e6)

		initial, ok := field(t, f.store, domain.Transmon(q), "init_duration").Float()
		require.True(t, ok)
		assert.Equal(t, 200e-6, initial)
	}
	spec, ok := field(t, f.store, domain.Transmon("q06"), "spec:spec_amp").Float()
	require.True(t, ok)
	assert.Equal(t, 0.012, spec)

	assert.Equal(t, ports.EventRunStarted, f.eventTypes()[0])
	assert.Equal(t, ports.EventRunCompleted, f.eventTypes()[len(f.eventTypes())-1])
	assert.Contains(t, f.eventTypes(), ports.EventNodeCalibrated)

	entries, err := f.journal.ListRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "calibrated", entries[2].Outcome)
}

func TestSecondRunIsInSpec(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.sup.CalibrateSystem(ctx, "first", rabiRun())
	require.NoError(t, err)
	measured := len(f.measurer.specs)

	report, err := f.sup.CalibrateSystem(ctx, "second", rabiRun())
	require.NoError(t, err)
	for _, r := range report.Nodes {
		assert.Equal(t, OutcomeInSpec, r.Outcome)
		assert.Equal(t, domain.DataInSpec, r.Status)
	}
	assert.Equal(t, measured, len(f.measurer.specs))
}

func TestQOIDefaultsArePopulated(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.sup.InspectNode(ctx, graph.NodeRabiOscillations, rabiRun())
	require.NoError(t, err)

	assert.False(t, field(t, f.store, domain.Transmon("q06"), "rxy:amp180").IsSet())
	amp, ok := field(t, f.store, domain.Transmon("q07"), "rxy:amp180").Float()
	require.True(t, ok)
	assert.Equal(t, 0.3, amp)
	assert.Equal(t, domain.StatusNotCalibrated, status(t, f.store, "q06", graph.NodeRabiOscillations))
}

func TestStatusAggregation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	run := rabiRun()

	_, err := f.sup.InspectNode(ctx, graph.NodeRabiOscillations, run)
	require.NoError(t, err)
	require.NoError(t, f.store.SetStatus(ctx, domain.Transmon("q06"), graph.NodeRabiOscillations, domain.StatusCalibrated))

	st, err := f.sup.NodeStatus(ctx, graph.NodeRabiOscillations, run)
	require.NoError(t, err)
	assert.Equal(t, domain.DataOutOfSpec, st.Status)
	assert.Equal(t, domain.StatusCalibrated, st.Entities["q06"])
	assert.Equal(t, domain.StatusNotCalibrated, st.Entities["q07"])

	require.NoError(t, f.store.SetStatus(ctx, domain.Transmon("q07"), graph.NodeRabiOscillations, domain.StatusCalibrated))
	st, err = f.sup.NodeStatus(ctx, graph.NodeRabiOscillations, run)
	require.NoError(t, err)
	assert.Equal(t, domain.DataInSpec, st.Status)
}

func TestBackupInvalidatesFields(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	q06 := domain.Transmon("q06")
	require.NoError(t, f.store.SetField(ctx, q06, "clock_freqs:f01", domain.Some(4.64e9)))

	spec, err := f.sup.createNode(ctx, graph.NodeRamseyCorrection, &config.Run{
		Target: graph.NodeRamseyCorrection, Qubits: []string{"q06", "q07"},
	})
	require.NoError(t, err)
	require.True(t, spec.Backup)
	require.NoError(t, f.sup.backup(ctx, spec))

	assert.Equal(t, domain.Some(4.64e9), field(t, f.store, q06, "clock_freqs:f01_backup"))
	assert.False(t, field(t, f.store, q06, "clock_freqs:f01").IsSet())

	exists, err := f.store.FieldExists(ctx, domain.Transmon("q07"), "clock_freqs:f01_backup")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRejectedResultAbortsRun(t *testing.T) {
	f := newFixture(t, analysis.MinConfidence(2))
	ctx := context.Background()

	report, err := f.sup.CalibrateSystem(ctx, "strict", rabiRun())
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrRejected)

	require.Len(t, report.Nodes, 1)
	assert.Equal(t, OutcomeRejected, report.Nodes[0].Outcome)
	assert.Equal(t, domain.StatusNotCalibrated, status(t, f.store, "q06", graph.NodeResonatorSpectroscopy))
	assert.False(t, field(t, f.store, domain.Transmon("q06"), "clock_freqs:readout").IsSet())
	assert.Contains(t, f.eventTypes(), ports.EventRunFailed)
}

// unsetField clears one value of every result of the wrapped analysis.
type unsetField struct {
	analysis.Analysis
	index int
}

func (u unsetField) Run() (analysis.Result, error) {
	r, err := u.Analysis.Run()
	if err != nil {
		return r, err
	}
	r.Values[u.index] = domain.None()
	return r, nil
}

func TestUnsetValueIsAcceptedByDefault(t *testing.T) {
	f := newFixture(t, nil)
	f.measurer.analysis = func(spec *node.Spec) analysis.Factory {
		next := spec.Analysis
		if spec.Name != graph.NodeResonatorSpectroscopy {
			return next
		}
		return func(ds *dataset.Dataset, element string, fields []string) (analysis.Analysis, error) {
			a, err := next(ds, element, fields)
			if err != nil {
				return nil, err
			}
			return unsetField{Analysis: a, index: 1}, nil
		}
	}
	ctx := context.Background()

	report, err := f.sup.CalibrateSystem(ctx, "edge", rabiRun())
	require.NoError(t, err)
	require.Len(t, report.Nodes, 3)
	assert.Equal(t, OutcomeCalibrated, report.Nodes[0].Outcome)

	q06 := domain.Transmon("q06")
	assert.False(t, field(t, f.store, q06, "Ql").IsSet())
	assert.True(t, field(t, f.store, q06, "clock_freqs:readout").IsSet())
	assert.Equal(t, domain.StatusCalibrated, status(t, f.store, "q06", graph.NodeResonatorSpectroscopy))
}

func TestRequireCompleteRejectsUnsetValue(t *testing.T) {
	f := newFixture(t, analysis.RequireComplete(analysis.AcceptAll()))
	f.measurer.analysis = func(spec *node.Spec) analysis.Factory {
		next := spec.Analysis
		return func(ds *dataset.Dataset, element string, fields []string) (analysis.Analysis, error) {
			a, err := next(ds, element, fields)
			if err != nil {
				return nil, err
			}
			return unsetField{Analysis: a, index: 0}, nil
		}
	}

	report, err := f.sup.CalibrateSystem(context.Background(), "strict-complete", rabiRun())
	assert.ErrorIs(t, err, analysis.ErrRejected)
	require.Len(t, report.Nodes, 1)
	assert.Equal(t, OutcomeRejected, report.Nodes[0].Outcome)
	assert.Equal(t, domain.StatusNotCalibrated, status(t, f.store, "q06", graph.NodeResonatorSpectroscopy))
}

func TestMeasurementFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.measurer.err = errors.New("cluster unreachable")
	ctx := context.Background()

	report, err := f.sup.CalibrateSystem(ctx, "broken", rabiRun())
	require.Error(t, err)
	require.Len(t, report.Nodes, 1)
	assert.Equal(t, OutcomeFailed, report.Nodes[0].Outcome)
	assert.Contains(t, report.Nodes[0].Error, "cluster unreachable")

	entries, err := f.journal.ListRun(ctx, "broken")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "failed", entries[0].Outcome)
	assert.Contains(t, f.eventTypes(), ports.EventNodeFailed)
}

func TestUnknownTarget(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.sup.CalibrateSystem(context.Background(), "x", &config.Run{Target: "nope", Qubits: []string{"q06"}})
	assert.ErrorIs(t, err, graph.ErrUnknownNode)
}

func TestCancelledRun(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.sup.CalibrateSystem(ctx, "cancelled", rabiRun())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, f.eventTypes(), ports.EventRunCancelled)
}

func TestOverridesReachTheMeasurement(t *testing.T) {
	f := newFixture(t, nil)
	run := rabiRun()
	amps := []float64{0.1, 0.2, 0.3, 0.4, 0.5}
	run.UserSamplespace = map[string]map[string]map[string][]float64{
		graph.NodeRabiOscillations: {"mw_amplitudes": {"q06": amps, "q07": amps}},
	}

	_, err := f.sup.CalibrateSystem(context.Background(), "override", run)
	require.NoError(t, err)

	last := f.measurer.specs[len(f.measurer.specs)-1]
	got, ok := last.Schedule.Values("mw_amplitudes", "q06")
	require.True(t, ok)
	assert.Equal(t, amps, got)

	require.NoError(t, f.sup.Reset(context.Background(), graph.NodeRabiOscillations, run))
	run.UserSamplespace[graph.NodeRabiOscillations] = map[string]map[string][]float64{"bogus": {"q06": amps}}
	_, err = f.sup.CalibrateNode(context.Background(), "override-2", graph.NodeRabiOscillations, run)
	assert.Error(t, err)
}

func TestResetAndReanalyse(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	run := rabiRun()

	report, err := f.sup.CalibrateSystem(ctx, "r", run)
	require.NoError(t, err)
	q01 := report.Nodes[1]
	before := field(t, f.store, domain.Transmon("q06"), "clock_freqs:f01")

	require.NoError(t, f.sup.Reset(ctx, graph.NodeQubit01Spectroscopy, run))
	assert.Equal(t, domain.StatusNotCalibrated, status(t, f.store, "q06", graph.NodeQubit01Spectroscopy))
	assert.False(t, field(t, f.store, domain.Transmon("q06"), "clock_freqs:f01").IsSet())

	result, err := f.sup.Reanalyse(ctx, "re", graph.NodeQubit01Spectroscopy, run, q01.DataPath)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCalibrated, result.Outcome)
	assert.Equal(t, before, field(t, f.store, domain.Transmon("q06"), "clock_freqs:f01"))
	assert.Equal(t, domain.StatusCalibrated, status(t, f.store, "q06", graph.NodeQubit01Spectroscopy))

	_, err = f.sup.Reanalyse(ctx, "re", graph.NodeRabiOscillations, run, q01.DataPath)
	assert.Error(t, err)

	require.NoError(t, f.sup.Reset(ctx, AllNodes, run))
	for _, n := range report.Order {
		assert.Equal(t, domain.StatusNotCalibrated, status(t, f.store, "q07", n))
	}
}

func TestCouplerNodeAnalysedPerCoupler(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	run := &config.Run{
		Target:   graph.NodeCouplerSpectroscopy,
		Qubits:   []string{"q06", "q07"},
		Couplers: []string{"q06_q07"},
	}

	result, err := f.sup.CalibrateNode(ctx, "coupler", graph.NodeCouplerSpectroscopy, run)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCalibrated, result.Outcome)

	coupler := domain.Coupler("q06_q07")
	current, ok := field(t, f.store, coupler, "parking_current").Float()
	require.True(t, ok)
	assert.GreaterOrEqual(t, current, -2.5e-3)
	assert.Less(t, current, 2.5e-3)

	st, err := f.store.GetStatus(ctx, coupler, graph.NodeCouplerSpectroscopy)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCalibrated, st)
	assert.Contains(t, result.Values, coupler.String())
}

func TestReportFileListsElements(t *testing.T) {
	f := newFixture(t, nil)
	result, err := f.sup.CalibrateNode(context.Background(), "one", graph.NodeResonatorSpectroscopy, rabiRun())
	require.NoError(t, err)

	text, err := os.ReadFile(filepath.Join(result.DataPath, graph.NodeResonatorSpectroscopy+".txt"))
	require.NoError(t, err)
	assert.Contains(t, string(text), "== q06 ==")
	assert.Contains(t, string(text), "== q07 ==")
}
