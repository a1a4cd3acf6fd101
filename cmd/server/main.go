package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/factura-chat/internal/config"
	"github.com/garyjia/factura-chat/internal/container"
	httpiface "github.com/garyjia/factura-chat/internal/interfaces/http"
	"github.com/garyjia/factura-chat/pkg/utils"
)

const version = "1.0.0"

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:           "factura-server",
		Short:         "Mock AFIP billing backend and invoicing chat API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "path to the YAML config file (empty for defaults)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting invoicing chat backend",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("billing_mode", cfg.Billing.Mode))

	containerCfg := cfg.ToContainerConfig()
	c, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container close failed", zap.Error(err))
		}
	}()

	services := c.Services()
	server := httpiface.NewServer(httpiface.ServerConfig{
		Host:           containerCfg.Server.Host,
		Port:           containerCfg.Server.Port,
		ReadTimeout:    containerCfg.Server.ReadTimeout,
		WriteTimeout:   containerCfg.Server.WriteTimeout,
		AllowedOrigins: containerCfg.Server.AllowedOrigins,
	}, httpiface.Services{
		Issuer:   services.Issuer,
		Exporter: services.Exporter,
		Sessions: c.Sessions(),
		Activity: services.Activity,
	}, c.HTTPLogger())

	// Blocks until SIGINT/SIGTERM
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("Server exited successfully")
	return nil
}
