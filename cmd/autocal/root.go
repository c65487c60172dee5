package main

import (
	"github.com/spf13/cobra"
)

var (
	logLevel     string
	dataDir      string
	deviceFile   string
	runFile      string
	storeBackend string
	qubits       []string
	couplers     []string
)

var rootCmd = &cobra.Command{
	Use:           "autocal",
	Short:         "Closed-loop calibration supervisor for superconducting qubits",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flags.StringVar(&dataDir, "data-dir", "", "measurement data root (overrides DATA_DIR)")
	flags.StringVar(&deviceFile, "device", "", "device TOML file (overrides DEVICE_CONFIG)")
	flags.StringVar(&runFile, "run", "", "run YAML file (overrides RUN_CONFIG)")
	flags.StringVar(&storeBackend, "store", "", "parameter store backend, redis or memory (overrides PARAMETER_STORE)")
	flags.StringSliceVar(&qubits, "qubits", nil, "qubits to calibrate (overrides the run file)")
	flags.StringSliceVar(&couplers, "couplers", nil, "couplers to calibrate (overrides the run file)")

	rootCmd.AddCommand(calibrateCmd, reanalyseCmd, orderCmd, statusCmd, resetCmd, serveCmd)
}
