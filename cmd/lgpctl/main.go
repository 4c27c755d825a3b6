package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lgp/internal/logging"
)

const (
	defaultStoreKind = "badger"
	defaultDBPath    = "lgp.db"
)

type globalFlags struct {
	logLevel  string
	logFormat string
	logFile   string
	storeKind string
	dbPath    string
}

type cli struct {
	flags  globalFlags
	logger *logging.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	c := &cli{}
	err := c.rootCmd().ExecuteContext(ctx)
	stop()
	if closeErr := c.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (c *cli) close() error {
	if c.logger == nil {
		return nil
	}
	return c.logger.Close()
}

func (c *cli) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lgpctl",
		Short:         "Linear genetic programming trainer",
		Long:          "lgpctl evolves register-machine programs against regression problems and keeps the results in a local store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{
				Level:  c.flags.logLevel,
				Format: c.flags.logFormat,
				File:   c.flags.logFile,
				Writer: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.flags.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	pf.StringVar(&c.flags.logFormat, "log-format", logging.FormatAuto, "log format: auto|text|json")
	pf.StringVar(&c.flags.logFile, "log-file", "", "also write JSON logs to this file")
	pf.StringVar(&c.flags.storeKind, "store", defaultStoreKind, "store backend: memory|badger|sqlite")
	pf.StringVar(&c.flags.dbPath, "db-path", defaultDBPath, "badger directory or sqlite database path")

	rootCmd.AddCommand(
		c.newTrainCmd(),
		c.newRunsCmd(),
		c.newShowCmd(),
		c.newProblemsCmd(),
	)
	return rootCmd
}
