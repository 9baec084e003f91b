// Copyright (c) 2025 Recordgate
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for recordgate. It submits
// bulk record mutations and queries to a record store, either a local
// PostgreSQL/SQLite database or a remote `recordgate serve` instance, and
// renders per-record outcomes in the terminal.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"recordgate/cli/internal/config"
	"recordgate/cli/internal/logging"
)

var (
	showVersion bool
	jsonOutput  bool

	flagBackend  string
	flagDSN      string
	flagAddr     string
	flagInsecure bool
	flagLogLevel string

	// settings is the effective configuration: file, then environment,
	// then flags.
	settings = config.Default()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "recordgate",
	Short: "Bulk record mutations and queries against a record store",
	Long: `recordgate submits batches of record deletes, updates, inserts and upserts, and
record queries, to a record store. The store is a PostgreSQL or SQLite database
opened directly, or a remote recordgate server reached over gRPC.

Every mutation returns one outcome per input record, in input order. A failed
record is reported, not treated as a command failure.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Fprintf(cmd.OutOrStdout(), "recordgate %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// loadSettings builds the effective configuration and configures logging.
func loadSettings(cmd *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.ApplyEnv(os.Getenv)

	flags := cmd.Flags()
	if flags.Changed("backend") {
		c.Backend = flagBackend
	}
	if flags.Changed("dsn") {
		c.DB.DSN = flagDSN
	}
	if flags.Changed("addr") {
		c.Remote.Addr = flagAddr
	}
	if flags.Changed("insecure") {
		c.Remote.Insecure = flagInsecure
	}
	if flags.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if err := c.Validate(); err != nil {
		return err
	}
	settings = c

	logging.Configure(logging.Options{Level: settings.LogLevel, Writer: cmd.ErrOrStderr()})
	return nil
}

// reportedError marks an error the command already rendered.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Execute runs the CLI application.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var shown reportedError
		if !errors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, logging.PresentError("", err))
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagBackend, "backend", "", "Record store: postgres, sqlite or remote (default: detect)")
	pf.StringVar(&flagDSN, "dsn", "", "Database DSN for the postgres and sqlite backends")
	pf.StringVar(&flagAddr, "addr", "", "Address of a remote recordgate server")
	pf.BoolVar(&flagInsecure, "insecure", false, "Connect to the remote server without TLS")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	pf.BoolVar(&jsonOutput, "json", false, "Print raw JSON results")
}
