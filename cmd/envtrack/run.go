package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/config"
	"github.com/banshee-data/envtrack/internal/lattice"
	"github.com/banshee-data/envtrack/internal/probe"
	"github.com/banshee-data/envtrack/internal/report"
	"github.com/banshee-data/envtrack/internal/tracker"
	"github.com/banshee-data/envtrack/internal/trajdb"
	"github.com/banshee-data/envtrack/internal/units"
)

type runFlags struct {
	lattice     string
	probe       string
	algorithm   string
	record      string
	energy      string
	units       string
	start       string
	stop        string
	excludeStop bool
	png         string
	html        string
	export      string
	notes       string
}

func newRunCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Propagate a probe through a lattice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.OutOrStdout(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.lattice, "lattice", "", "lattice file (.yaml, .yml or .json)")
	fl.StringVar(&f.probe, "probe", "", "initial probe file")
	fl.StringVar(&f.algorithm, "algorithm", "", "algorithm record file; falls back to the database, then built-in defaults")
	fl.StringVar(&f.record, "record", config.DefaultRecordName, "algorithm record name")
	fl.StringVar(&f.energy, "energy", "", "override the initial kinetic energy, e.g. \"2.5 MeV\"")
	fl.StringVar(&f.units, "units", units.MEV, "energy units for output ("+units.GetValidUnitsString()+")")
	fl.StringVar(&f.start, "start", "", "first element to propagate")
	fl.StringVar(&f.stop, "stop", "", "last element to propagate")
	fl.BoolVar(&f.excludeStop, "exclude-stop", false, "stop before the stop element instead of after it")
	fl.StringVar(&f.png, "png", "", "write an envelope plot image")
	fl.StringVar(&f.html, "html", "", "write interactive envelope charts")
	fl.StringVar(&f.export, "export", "", "write the trajectory as length-prefixed protobuf")
	fl.StringVar(&f.notes, "notes", "", "notes stored with the run")
	_ = cmd.MarkFlagRequired("lattice")
	_ = cmd.MarkFlagRequired("probe")
	return cmd
}

func (a *app) run(out io.Writer, f *runFlags) error {
	if !units.IsValid(f.units) {
		return fmt.Errorf("invalid units %q, want one of %s", f.units, units.GetValidUnitsString())
	}

	pf, err := config.LoadProbeFile(f.probe)
	if err != nil {
		return err
	}
	if f.energy != "" {
		w, err := units.ParseEnergy(f.energy)
		if err != nil {
			return err
		}
		pf.KineticEnergy = w
	}

	seq, err := lattice.Load(f.lattice)
	if err != nil {
		return err
	}

	db, err := a.openDB()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	rec, err := resolveRecord(f.algorithm, f.record, db, pf.Kind)
	if err != nil {
		return err
	}
	trk, err := tracker.New(rec)
	if err != nil {
		return err
	}
	base := trk.Base()
	if a.verbose {
		base.SetDebug(true)
	}
	if f.start != "" {
		base.SetStartElementID(f.start)
	}
	if f.stop != "" {
		base.SetStopElementID(f.stop)
	}
	base.SetIncludeStopElement(!f.excludeStop)

	p := buildProbe(pf)
	prop := &gapReporter{Tracker: trk, out: out, verbose: a.verbose}
	if err := seq.Walk(prop, p); err != nil {
		return err
	}

	states := p.Trajectory().States()
	final, ok := p.Trajectory().Final()
	if !ok {
		return errors.New("no trajectory states recorded; check the update policy and start/stop elements")
	}
	tw := final.Twiss
	fmt.Fprintf(out, "%s: %d states, s=%.6g m, W=%.6g %s, rms x/y/z = %.4g/%.4g/%.4g mm\n",
		seq.ID, len(states), final.Position, units.ConvertEnergy(final.KineticEnergy, f.units), f.units,
		1e3*tw[beam.AxisX].Envelope(), 1e3*tw[beam.AxisY].Envelope(), 1e3*tw[beam.AxisZ].Envelope())

	run := &trajdb.Run{
		SequenceID:    seq.ID,
		AlgorithmType: trk.Type(),
		RecordName:    rec.Name,
		ProbeKind:     pf.Kind,
		Notes:         f.notes,
	}
	if db != nil {
		if err := db.CreateRun(run); err != nil {
			return err
		}
		if err := db.AppendStates(run.ID, states); err != nil {
			return err
		}
		fmt.Fprintf(out, "stored run %s\n", run.ID)
	}

	series := report.NewSeries(states, f.units)
	title := fmt.Sprintf("%s (%s)", seq.ID, trk.Type())
	if f.png != "" {
		if err := report.SavePNG(f.png, title, series); err != nil {
			return err
		}
	}
	if f.html != "" {
		if err := writeFile(f.html, func(w io.Writer) error {
			return report.RenderHTML(w, report.HTMLOptions{Title: title, Subtitle: run.ID}, series)
		}); err != nil {
			return err
		}
	}
	if f.export != "" {
		x := report.Export{
			RunID:         run.ID,
			SequenceID:    run.SequenceID,
			AlgorithmType: run.AlgorithmType,
			ProbeKind:     run.ProbeKind,
			CreatedAt:     run.CreatedAt,
			States:        states,
		}
		if err := writeFile(f.export, func(w io.Writer) error { return report.WriteExport(w, x) }); err != nil {
			return err
		}
	}
	return nil
}

// resolveRecord picks the algorithm record from the file, then the
// database, then the built-in default for the probe kind.
func resolveRecord(file, name string, db *trajdb.DB, kind string) (*config.AlgorithmRecord, error) {
	if file != "" {
		af, err := config.LoadAlgorithmFile(file)
		if err != nil {
			return nil, err
		}
		return af.Lookup(name)
	}
	if db != nil {
		rec, err := db.LookupAlgorithmRecord(name)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, config.ErrRecordNotFound) {
			return nil, err
		}
	}
	rec := config.DefaultAlgorithmRecord(trackerTypeFor(kind))
	return &rec, nil
}

func trackerTypeFor(kind string) string {
	if kind == "twiss" {
		return tracker.TypeTwiss
	}
	return tracker.TypeEnvelope
}

// buildProbe constructs the initial probe described by pf.
func buildProbe(pf *config.ProbeFile) probe.Probe {
	sp := probe.Species{Name: pf.Species.Name, Charge: pf.Species.Charge, RestEnergy: pf.Species.RestEnergy}
	b := probe.NewBunch(sp, pf.Current, pf.Frequency, pf.KineticEnergy)
	b.SetPosition(pf.Position)

	var tw beam.Twiss3D
	for i, t := range pf.Twiss {
		tw[i] = beam.Twiss{Alpha: t.Alpha, Beta: t.Beta, Emittance: t.Emittance}
	}
	centroid := beam.Origin()
	if len(pf.Centroid) == 6 {
		centroid = beam.NewPhaseVector(pf.Centroid[0], pf.Centroid[1], pf.Centroid[2],
			pf.Centroid[3], pf.Centroid[4], pf.Centroid[5])
	}

	if pf.Kind == "twiss" {
		return probe.NewTwiss(b, tw, centroid)
	}
	return probe.NewEnvelope(b, beam.BuildCovarianceWithCentroid(tw, centroid))
}

// gapReporter prints the probe's phase spread on entry to each RF gap the
// tracker propagates. Gaps outside the start/stop bracket are not reported.
type gapReporter struct {
	tracker.Tracker
	out     io.Writer
	verbose bool
}

func (g *gapReporter) Propagate(p probe.Probe, e lattice.Element) error {
	if _, ok := e.(lattice.RfGap); !ok || !g.verbose {
		return g.Tracker.Propagate(p, e)
	}

	w := p.KineticEnergy()
	dphi, spreadErr := tracker.GapPhaseSpread(p, e)
	if err := g.Tracker.Propagate(p, e); err != nil {
		return err
	}
	// The driver marks the probe with the element only when it propagates it.
	if p.CurrentElement() != e.ID() {
		return nil
	}
	if spreadErr != nil {
		return spreadErr
	}
	fmt.Fprintf(g.out, "%s: phase spread %.4g deg at W=%.6g MeV\n",
		e.ID(), dphi*180/math.Pi, units.ConvertEnergy(w, units.MEV))
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	fh, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fn(fh); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
