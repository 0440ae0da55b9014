package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/envtrack/internal/trajdb"
)

func newDBCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the run database",
	}

	migrateCmd := &cobra.Command{
		Use:       "migrate [up|down|version|force N]",
		Short:     "Apply, roll back or inspect schema migrations",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down", "version", "force"},
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openRawDB()
			if err != nil {
				return err
			}
			defer db.Close()

			switch args[0] {
			case "up":
				err = db.MigrateUp()
			case "down":
				err = db.MigrateDown()
			case "force":
				if len(args) != 2 {
					return errors.New("force needs a version")
				}
				v, perr := strconv.Atoi(args[1])
				if perr != nil {
					return fmt.Errorf("invalid version %q: %w", args[1], perr)
				}
				err = db.MigrateForce(v)
			case "version":
			default:
				return fmt.Errorf("unknown migrate action %q", args[0])
			}
			if err != nil {
				return err
			}
			v, dirty, err := db.MigrateVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", v, dirty)
			return nil
		},
	}

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.requireDB()
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSEQUENCE\tALGORITHM\tRECORD\tPROBE\tCREATED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.SequenceID, r.AlgorithmType, r.RecordName, r.ProbeKind, r.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm RUN_ID...",
		Short: "Delete runs and their trajectories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.requireDB()
			if err != nil {
				return err
			}
			defer db.Close()

			for _, id := range args {
				if err := db.DeleteRun(id); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.AddCommand(migrateCmd, runsCmd, rmCmd)
	return cmd
}

func (a *app) requireDB() (*trajdb.DB, error) {
	if a.dbPath == "" {
		return nil, errors.New("--db is required")
	}
	return trajdb.Open(a.dbPath)
}

func (a *app) openRawDB() (*trajdb.DB, error) {
	if a.dbPath == "" {
		return nil, errors.New("--db is required")
	}
	return trajdb.OpenRaw(a.dbPath)
}
