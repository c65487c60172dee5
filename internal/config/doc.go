// Package config provides configuration management for the calibration supervisor.
//
// Three sources are combined:
//   - process settings from environment variables (env package)
//   - the device description (VNA seeds, initial parameters, quantity of
//     interest defaults and node settings) from a TOML file
//   - the run description (target node, qubits, couplers, samplespace
//     overrides) from a YAML file
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	device, err := config.LoadDevice(cfg.DeviceConfig)
package config
