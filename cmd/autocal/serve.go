package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aescanero/autocal/internal/application/orchestrator"
	"github.com/aescanero/autocal/internal/console"
	"github.com/aescanero/autocal/pkg/api/grpc"
	"github.com/aescanero/autocal/pkg/api/http"
	"github.com/aescanero/autocal/pkg/api/websocket"
)

var serveQuiet bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the calibration API and run calibrations on request",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		logger := a.logger

		logger.Info("starting calibration supervisor",
			zap.String("version", Version),
			zap.String("build_time", BuildTime),
			zap.String("store", a.cfg.Store),
			zap.String("events", a.cfg.Events))

		if !serveQuiet {
			if err := console.New(cmd.OutOrStdout()).Attach(ctx, a.bus); err != nil {
				return err
			}
		}

		manager := orchestrator.NewManager(
			a.supervisor,
			orchestrator.NewValidator(a.graph, a.device),
			a.metrics,
			logger,
			a.cfg.Timeouts.RunTimeout,
		)

		httpServer := http.NewServer(&http.Config{
			Addr:      a.cfg.GetHTTPAddr(),
			Runs:      manager,
			Inspector: a.supervisor,
			Journal:   a.journal,
			Logger:    logger,
		})
		httpServer.SetupWebSocket(websocket.NewHandler(a.bus, logger))

		grpcServer, err := grpc.NewServer(&grpc.Config{
			Addr:   a.cfg.GetGRPCAddr(),
			Logger: logger,
		})
		if err != nil {
			return err
		}

		errCh := make(chan error, 2)
		go func() { errCh <- httpServer.Start() }()
		go func() { errCh <- grpcServer.Start() }()

		logger.Info("calibration supervisor started",
			zap.Int("http_port", a.cfg.HTTPPort),
			zap.Int("grpc_port", a.cfg.GRPCPort))

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		var serveErr error
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
		case serveErr = <-errCh:
			logger.Error("server failed", zap.Error(serveErr))
		}

		grpcServer.SetServing(false)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Timeouts.ShutdownTimeout)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", zap.Error(err))
		}
		if err := manager.Shutdown(shutdownCtx); err != nil {
			logger.Error("run manager shutdown error", zap.Error(err))
		}
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("gRPC server shutdown error", zap.Error(err))
		}

		logger.Info("calibration supervisor shut down complete")
		return serveErr
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveQuiet, "quiet", false, "do not print calibration progress")
}
