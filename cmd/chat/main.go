package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/factura-chat/internal/cli"
	"github.com/garyjia/factura-chat/internal/config"
	"github.com/garyjia/factura-chat/internal/container"
	"github.com/garyjia/factura-chat/pkg/utils"
)

type options struct {
	configPath string
	remoteURL  string
	testMode   bool
	logLevel   string
}

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:   "factura-chat",
		Short: "Issue invoices by chatting in the terminal",
		Long: `factura-chat extracts invoice data from free-form Spanish requests,
asks for whatever is missing and submits the invoice once you confirm.

By default invoices are issued by the in-process billing backend; pass
--remote to talk to a running factura-server instead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file")
	cmd.Flags().StringVar(&opts.remoteURL, "remote", "", "billing backend URL (switches to remote mode)")
	cmd.Flags().BoolVar(&opts.testMode, "test-mode", false, "fill sample data for \"prueba\" requests")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "error", "log level (debug, info, warn, error)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.remoteURL != "" {
		cfg.Billing.Mode = config.BillingModeRemote
		cfg.Billing.URL = opts.remoteURL
	}
	if opts.testMode {
		cfg.Conversation.TestModeDefaults = true
	}

	// Logs go to stderr so they do not interleave with the conversation
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      opts.logLevel,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close()
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container close failed", zap.Error(err))
		}
	}()

	session := c.Sessions().Create(ctx)
	defer func() { _ = c.Sessions().Delete(session.ID()) }()

	return cli.NewREPL(session, os.Stdin, os.Stdout).Run(ctx)
}
