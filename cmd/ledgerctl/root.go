package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/approval-ledger/internal/config"
	"github.com/garyjia/approval-ledger/internal/container"
	"github.com/garyjia/approval-ledger/internal/domain/entity"
	"github.com/garyjia/approval-ledger/internal/infrastructure/host"
	"github.com/garyjia/approval-ledger/pkg/utils"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "ledgerctl operates an approval ledger store directly",
		Long:          `ledgerctl opens the configured ledger backend and runs one operation against it, acting as the account given by --account.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "Path to the YAML configuration file")
	root.PersistentFlags().String("env", ".env", "Optional dotenv file loaded before configuration")
	root.PersistentFlags().String("account", "", "Caller account hash (hex or account-hash-<hex>)")
	root.PersistentFlags().String("backend", "", "Override store.backend (memory, sqlite, redis)")
	root.PersistentFlags().Bool("verbose", false, "Log at debug level to stderr")

	root.AddCommand(
		newInstallCmd(),
		newVersionCmd(),
		newCreateCmd(),
		newTransitionCmd(),
		newStateCmd(),
		newHistoryCmd(),
		newCountCmd(),
		newVerifyCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openLedger loads configuration and starts a container for one command.
// The caller must Close the returned container.
func openLedger(cmd *cobra.Command) (*container.Container, error) {
	flags := cmd.Flags()
	envFile, _ := flags.GetString("env")
	configPath, _ := flags.GetString("config")
	backend, _ := flags.GetString("backend")
	verbose, _ := flags.GetBool("verbose")
	accountHex, _ := flags.GetString("account")

	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Store.Backend = backend
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := utils.NewLogger(utils.LoggerConfig{Level: level, OutputPath: "stderr", Format: "console", Service: "ledgerctl", Backend: cfg.Store.Backend})
	if err != nil {
		return nil, err
	}

	var opts []container.Option
	if accountHex != "" {
		account, err := entity.ParseAccountHash(accountHex)
		if err != nil {
			return nil, fmt.Errorf("--account: %w", err)
		}
		opts = append(opts, container.WithIdentity(host.StaticIdentity{Account: account}))
	}

	cc := cfg.ToContainerConfig()
	// A one-shot process has no scrape endpoint and no time for background checks.
	cc.Metrics.Enabled = false
	cc.Integrity.Enabled = false

	c, err := container.NewContainer(cc, logger, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Start(cmd.Context()); err != nil {
		return nil, err
	}
	return c, nil
}

// runWithLedger opens the ledger, runs fn and closes the ledger again
func runWithLedger(cmd *cobra.Command, fn func(ctx context.Context, c *container.Container) error) error {
	c, err := openLedger(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			c.Logger().Warn("Failed to close ledger", zap.Error(err))
		}
	}()
	return fn(cmd.Context(), c)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
