package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "simulator", cfg.Hardware.Backend)
	assert.Equal(t, 222*time.Second, cfg.Hardware.ClusterTimeout)
	assert.Equal(t, 600*time.Second, cfg.Hardware.ExecutionTimeout)
	assert.Equal(t, ":9090", cfg.GetGRPCAddr())
	assert.Equal(t, 1024, cfg.Hardware.Repetitions)
	assert.Equal(t, 3*time.Second, cfg.Hardware.RepeatPause)
	assert.Equal(t, "redis", cfg.Store)
	assert.Equal(t, "memory", cfg.Events)
	assert.True(t, cfg.UsesRedis())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AUTOCAL_HTTP_PORT", "8181")
	t.Setenv("ACCEPT_MIN_CONFIDENCE", "0.4")
	t.Setenv("ACCEPT_REQUIRE_COMPLETE", "true")
	t.Setenv("DATA_DIR", "/tmp/autocal")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8181", cfg.GetHTTPAddr())
	assert.Equal(t, 0.4, cfg.Acceptance.MinConfidence)
	assert.True(t, cfg.Acceptance.RequireComplete)
	assert.Equal(t, "/tmp/autocal", cfg.DataDir)
}

func TestMemoryBackendsNeedNoRedis(t *testing.T) {
	t.Setenv("PARAMETER_STORE", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.UsesRedis())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.HTTPPort = 0 }},
		{"no redis", func(c *Config) { c.Redis.Addr = "" }},
		{"unknown store", func(c *Config) { c.Store = "etcd" }},
		{"unknown bus", func(c *Config) { c.Events = "kafka" }},
		{"unknown backend", func(c *Config) { c.Hardware.Backend = "cluster" }},
		{"no cluster timeout", func(c *Config) { c.Hardware.ClusterTimeout = 0 }},
		{"confidence out of range", func(c *Config) { c.Acceptance.MinConfidence = 2 }},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }},
		{"no repetitions", func(c *Config) { c.Hardware.Repetitions = 0 }},
		{"negative pause", func(c *Config) { c.Hardware.RepeatPause = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

const deviceTOML = `
[vna.resonator]
q06 = 6.832e9

[vna.qubit_01]
q06 = 4.641e9

[vna.qubit_12]
q06 = 4.507e9

[initials.qubits]
"init_duration" = 200e-6

[qoi.rabi_oscillations.qubits]
"rxy:amp180" = nan

[qoi.rabi_oscillations.per_qubit.q06]
"rxy:amp180" = 0.2
`

func TestParseDevice(t *testing.T) {
	d, err := ParseDevice([]byte(deviceTOML))
	require.NoError(t, err)

	f, err := d.ResonatorSeed("q06")
	require.NoError(t, err)
	assert.Equal(t, 6.832e9, f)

	f, err = d.QubitSeed("q06", "12")
	require.NoError(t, err)
	assert.Equal(t, 4.507e9, f)

	_, err = d.QubitSeed("q06", "02")
	assert.ErrorContains(t, err, "invalid transition")
	_, err = d.ResonatorSeed("q99")
	assert.Error(t, err)

	qoi := d.QOI["rabi_oscillations"]
	assert.True(t, math.IsNaN(qoi.Qubits["rxy:amp180"]))
	assert.Equal(t, 0.2, qoi.QubitValues("q06")["rxy:amp180"])
	assert.True(t, math.IsNaN(qoi.QubitValues("q07")["rxy:amp180"]))
	assert.Equal(t, 200e-6, d.Initials.QubitValues("q07")["init_duration"])
}

func TestParseDeviceRejectsBadSeed(t *testing.T) {
	_, err := ParseDevice([]byte("[vna.resonator]\nq06 = -1.0\n"))
	assert.Error(t, err)
}

func TestParseRun(t *testing.T) {
	r, err := ParseRun([]byte(`
target_node: cz_chevron
qubits: [q19, q20]
couplers: [q19_q20]
node_dictionary:
  loop_repetitions: 8
user_samplespace:
  rabi_oscillations:
    mw_amplitudes:
      q19: [0.1, 0.2]
`))
	require.NoError(t, err)
	assert.Equal(t, "cz_chevron", r.Target)
	assert.Equal(t, []string{"q19_q20"}, r.Couplers)
	assert.Equal(t, 8.0, r.NodeDictionary["loop_repetitions"])
	assert.Equal(t, []float64{0.1, 0.2}, r.UserSamplespace["rabi_oscillations"]["mw_amplitudes"]["q19"])

	for _, bad := range []string{
		"qubits: [q1]",
		"target_node: x",
		"target_node: x\nqubits: [q1, q1]",
		"target_node: x\nqubits: [q1]\ncouplers: [q1]",
	} {
		_, err := ParseRun([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestShippedConfigs(t *testing.T) {
	root := filepath.Join("..", "..", "configs")
	if _, err := os.Stat(root); err != nil {
		t.Skip("configs directory not available")
	}
	_, err := LoadDevice(filepath.Join(root, "device.toml"))
	require.NoError(t, err)
	r, err := LoadRun(filepath.Join(root, "run.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "rabi_oscillations", r.Target)
}
