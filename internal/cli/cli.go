// Package cli implements the tracetower command-line interface.
//
// This package provides commands for querying an ML metadata database
// (get, count), generating lineage graphs in DOT or SVG form (graph), and
// serving graphs over HTTP (serve). The CLI is built using cobra and
// supports verbose logging via the charmbracelet/log library.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tracetower/pkg/buildinfo"
	"github.com/matzehuels/tracetower/pkg/store"
	"github.com/matzehuels/tracetower/pkg/store/sqlite"
)

// appName is the application name used for directories and display.
const appName = "tracetower"

// envDB names the environment variable consulted when --db is not given.
const envDB = "TRACETOWER_DB"

// Execute runs the tracetower CLI and returns an error if any command
// fails. This is the main entry point for the CLI application.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          appName,
		Short:        "Tracetower queries and visualizes ML pipeline metadata",
		Long:         `Tracetower is a CLI tool for querying an ML metadata database and visualizing the lineage of its artifacts and executions as Graphviz documents.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := log.InfoLevel
			if verbose {
				level = log.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newGetCmd())
	root.AddCommand(newCountCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newServeCmd())

	return root.ExecuteContext(ctx)
}

// openStore opens the SQLite metadata database named by the --db flag or
// the TRACETOWER_DB environment variable. The caller owns the store.
func openStore(ctx context.Context, db string) (store.Store, error) {
	if db == "" {
		db = os.Getenv(envDB)
	}
	if db == "" {
		return nil, fmt.Errorf("no database: pass --db or set %s", envDB)
	}
	s, err := sqlite.Open(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("open metadata database: %w", err)
	}
	return s, nil
}
