package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aescanero/autocal/internal/application/supervisor"
	"github.com/aescanero/autocal/internal/config"
	"github.com/aescanero/autocal/internal/console"
	"github.com/aescanero/autocal/internal/graph"
)

var calibrateTarget string

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Calibrate every node leading to the target node",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		run, err := a.loadRun(calibrateTarget)
		if err != nil {
			return err
		}
		if err := console.New(cmd.OutOrStdout()).Attach(ctx, a.bus); err != nil {
			return err
		}

		report, err := a.supervisor.CalibrateSystem(ctx, "", run)
		printReport(cmd.OutOrStdout(), report)
		return err
	},
}

var reanalyseCmd = &cobra.Command{
	Use:   "reanalyse <node> <data-dir>",
	Short: "Analyse a saved measurement again and persist the results",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		run, err := a.loadRun(args[0])
		if err != nil {
			return err
		}
		if err := console.New(cmd.OutOrStdout()).Attach(ctx, a.bus); err != nil {
			return err
		}
		result, err := a.supervisor.Reanalyse(ctx, uuid.New().String(), args[0], run, args[1])
		printResult(cmd.OutOrStdout(), result)
		return err
	},
}

var orderCmd = &cobra.Command{
	Use:   "order <target>",
	Short: "Print the calibration order of a target node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := graph.Default().FilteredTopologicalOrder(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), console.New(cmd.OutOrStdout()).ArrowChart("Calibration order for "+args[0], order))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [node...]",
	Short: "Print the calibration status of nodes, by default the order of the run target",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		run, err := a.loadRun("")
		if err != nil {
			return err
		}
		nodes := args
		if len(nodes) == 0 {
			if nodes, err = a.supervisor.Order(run.Target); err != nil {
				return err
			}
		}
		return printStatuses(ctx, cmd.OutOrStdout(), a.supervisor, run, nodes)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <node|all>",
	Short: "Unset the quantities of a node and mark it not calibrated",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		run, err := a.loadRun("")
		if err != nil {
			return err
		}
		if err := a.supervisor.Reset(ctx, args[0], run); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reset %s for %v %v\n", args[0], run.Qubits, run.Couplers)
		return nil
	},
}

func init() {
	calibrateCmd.Flags().StringVar(&calibrateTarget, "target", "", "target node (overrides the run file)")
}

func printReport(w io.Writer, report *supervisor.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "run %s: %d of %d nodes visited\n", report.RunID, len(report.Nodes), len(report.Order))
	for _, r := range report.Nodes {
		printResult(w, r)
	}
}

func printResult(w io.Writer, r supervisor.NodeResult) {
	fmt.Fprintf(w, "  %-40s %-11s %s\n", r.Node, r.Outcome, r.Duration.Round(time.Millisecond))
	for _, entity := range sortedKeys(r.Values) {
		values := r.Values[entity]
		for _, field := range sortedKeys(values) {
			fmt.Fprintf(w, "    %-20s %-36s %s\n", entity, field, values[field])
		}
	}
}

func printStatuses(ctx context.Context, w io.Writer, s *supervisor.Supervisor, run *config.Run, nodes []string) error {
	for _, n := range nodes {
		st, err := s.NodeStatus(ctx, n, run)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-40s %s\n", n, st.Status)
		for _, entity := range sortedKeys(st.Entities) {
			fmt.Fprintf(w, "    %-12s %s\n", entity, st.Entities[entity])
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
