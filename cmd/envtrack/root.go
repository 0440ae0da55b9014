package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/banshee-data/envtrack/internal/tracker"
	"github.com/banshee-data/envtrack/internal/trajdb"
)

// app holds the persistent flags shared by every subcommand.
type app struct {
	dbPath  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "envtrack",
		Short:         "Envelope and Twiss tracking through linac lattices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(cmd.ErrOrStderr(), a.verbose)
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database for runs and algorithm records")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log per-element diagnostics")

	root.AddCommand(newRunCmd(a), newConfigCmd(a), newDBCmd(a), newVersionCmd())
	return root
}

// configureLogging sends tracker ops logs to w, plus the diag and trace
// streams when verbose.
func configureLogging(w io.Writer, verbose bool) {
	lw := tracker.LogWriters{Ops: w}
	if verbose {
		lw.Diag = w
		lw.Trace = w
	}
	tracker.SetLogWriters(lw)
}

// openDB opens the --db database, or returns nil when the flag is unset.
func (a *app) openDB() (*trajdb.DB, error) {
	if a.dbPath == "" {
		return nil, nil
	}
	return trajdb.Open(a.dbPath)
}
