package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/envtrack/internal/config"
	"github.com/banshee-data/envtrack/internal/tracker"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage algorithm records",
	}

	var (
		file, name, kind string
	)
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved algorithm record as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}
			rec, err := resolveRecord(file, name, db, kind)
			if err != nil {
				return err
			}
			// Round-trip through the tracker so defaults are filled in.
			trk, err := tracker.New(rec)
			if err != nil {
				return err
			}
			full := trk.Record(rec.Name)
			out, err := yaml.Marshal(&full)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	show.Flags().StringVar(&file, "algorithm", "", "algorithm record file")
	show.Flags().StringVar(&name, "record", config.DefaultRecordName, "record name")
	show.Flags().StringVar(&kind, "probe-kind", "envelope", "probe kind used to pick the built-in default (envelope or twiss)")

	var outPath, typ string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a file holding the default record for an algorithm type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := config.DefaultAlgorithmRecord(trackerTypeFor(typ))
			if err := config.SaveAlgorithmFile(outPath, &config.AlgorithmFile{Records: []config.AlgorithmRecord{rec}}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s record to %s\n", rec.Type, outPath)
			return nil
		},
	}
	initCmd.Flags().StringVar(&outPath, "out", "algorithm.yaml", "output file (.yaml, .yml or .json)")
	initCmd.Flags().StringVar(&typ, "probe-kind", "envelope", "envelope or twiss")

	var importPath string
	imp := &cobra.Command{
		Use:   "import",
		Short: "Store every record of an algorithm file in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("config import needs --db")
			}
			defer db.Close()

			af, err := config.LoadAlgorithmFile(importPath)
			if err != nil {
				return err
			}
			for _, rec := range af.Records {
				if err := db.PutAlgorithmRecord(rec); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%s)\n", rec.Name, rec.Type)
			}
			return nil
		},
	}
	imp.Flags().StringVar(&importPath, "algorithm", "", "algorithm record file")
	_ = imp.MarkFlagRequired("algorithm")

	cmd.AddCommand(show, initCmd, imp)
	return cmd
}
