package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/envtrack/internal/config"
	"github.com/banshee-data/envtrack/internal/report"
	"github.com/banshee-data/envtrack/internal/tracker"
	"github.com/banshee-data/envtrack/internal/trajdb"
)

const testLattice = `
id: MEBT
elements:
  - {id: D1, type: drift, length: 0.1}
  - {id: Q1, type: quad, length: 0.05, k1: 20}
  - {id: D2, type: drift, length: 0.1}
  - {id: G1, type: rfgap, frequency: 402.5e6, etl: 1.0e5, phase: -0.5236}
  - {id: M1, type: marker}
`

const probeTemplate = `
kind: KIND
species: {name: proton, charge: 1, restEnergy: 938.272e6}
current: 0.02
frequency: 402.5e6
kineticEnergy: 2.5e6
twiss:
  - {alpha: -1.0, beta: 0.2, emittance: 2.0e-7}
  - {alpha: 1.0, beta: 0.3, emittance: 2.0e-7}
  - {alpha: 0.0, beta: 0.5, emittance: 3.0e-7}
`

func writeTestFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	tracker.SetLogWriters(tracker.LogWriters{})
	return buf.String(), err
}

func fixtures(t *testing.T, kind string) (dir, lat, prb string) {
	dir = t.TempDir()
	lat = writeTestFile(t, dir, "mebt.yaml", testLattice)
	prb = writeTestFile(t, dir, "probe.yaml", strings.Replace(probeTemplate, "KIND", kind, 1))
	return dir, lat, prb
}

func TestRunEnvelopeWithOutputs(t *testing.T) {
	dir, lat, prb := fixtures(t, "envelope")
	dbPath := filepath.Join(dir, "runs.db")
	png := filepath.Join(dir, "env.png")
	html := filepath.Join(dir, "env.html")
	export := filepath.Join(dir, "traj.pb")

	out, err := execute(t, "run", "--lattice", lat, "--probe", prb, "--db", dbPath,
		"--png", png, "--html", html, "--export", export, "--units", "keV", "-v")
	require.NoError(t, err, out)
	assert.Contains(t, out, "MEBT:")
	assert.Contains(t, out, "stored run")
	assert.Contains(t, out, "G1: phase spread")
	assert.Contains(t, out, "keV")

	for _, p := range []string{png, html, export} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0), p)
	}

	fh, err := os.Open(export)
	require.NoError(t, err)
	defer fh.Close()
	x, err := report.ReadExport(fh)
	require.NoError(t, err)
	assert.Equal(t, "MEBT", x.SequenceID)
	assert.Equal(t, tracker.TypeEnvelope, x.AlgorithmType)

	db, err := trajdb.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	states, err := db.States(x.RunID)
	require.NoError(t, err)
	assert.Equal(t, len(x.States), len(states))
	assert.Equal(t, "M1", states[len(states)-1].ElementID)
}

func TestRunStopElement(t *testing.T) {
	dir, lat, prb := fixtures(t, "twiss")
	export := filepath.Join(dir, "traj.pb")

	out, err := execute(t, "run", "--lattice", lat, "--probe", prb, "--stop", "Q1", "--export", export)
	require.NoError(t, err, out)

	fh, err := os.Open(export)
	require.NoError(t, err)
	defer fh.Close()
	x, err := report.ReadExport(fh)
	require.NoError(t, err)
	require.NotEmpty(t, x.States)
	assert.Equal(t, tracker.TypeTwiss, x.AlgorithmType)
	assert.Equal(t, "Q1", x.States[len(x.States)-1].ElementID)
}

func TestRunVerboseReportsOnlyBracketedGaps(t *testing.T) {
	_, lat, prb := fixtures(t, "envelope")

	out, err := execute(t, "run", "--lattice", lat, "--probe", prb, "--stop", "Q1", "-v")
	require.NoError(t, err, out)
	assert.NotContains(t, out, "G1: phase spread")

	out, err = execute(t, "run", "--lattice", lat, "--probe", prb, "--start", "M1", "-v")
	require.NoError(t, err, out)
	assert.NotContains(t, out, "G1: phase spread")

	out, err = execute(t, "run", "--lattice", lat, "--probe", prb, "--start", "G1", "-v")
	require.NoError(t, err, out)
	assert.Contains(t, out, "G1: phase spread")
}

func TestRunRecordFromDatabase(t *testing.T) {
	dir, lat, prb := fixtures(t, "envelope")
	dbPath := filepath.Join(dir, "runs.db")

	rec := config.DefaultAlgorithmRecord(tracker.TypeEnvelope)
	rec.Name = "nosc"
	rec.SetUseSpaceCharge(false)
	algo := filepath.Join(dir, "algo.yaml")
	require.NoError(t, config.SaveAlgorithmFile(algo, &config.AlgorithmFile{Records: []config.AlgorithmRecord{rec}}))

	out, err := execute(t, "config", "import", "--db", dbPath, "--algorithm", algo)
	require.NoError(t, err, out)
	assert.Contains(t, out, "stored nosc")

	out, err = execute(t, "run", "--db", dbPath, "--lattice", lat, "--probe", prb, "--record", "nosc")
	require.NoError(t, err, out)

	db, err := trajdb.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "nosc", runs[0].RecordName)

	out, err = execute(t, "db", "runs", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, runs[0].ID)

	_, err = execute(t, "db", "rm", "--db", dbPath, runs[0].ID)
	require.NoError(t, err)
	_, err = execute(t, "db", "rm", "--db", dbPath, runs[0].ID)
	assert.ErrorIs(t, err, trajdb.ErrRunNotFound)
}

func TestRunErrors(t *testing.T) {
	_, lat, prb := fixtures(t, "envelope")

	_, err := execute(t, "run", "--lattice", lat)
	assert.Error(t, err)

	_, err = execute(t, "run", "--lattice", lat, "--probe", prb, "--units", "furlong")
	assert.Error(t, err)

	_, err = execute(t, "run", "--lattice", lat, "--probe", prb, "--energy", "fast")
	assert.Error(t, err)

	_, err = execute(t, "run", "--lattice", lat, "--probe", prb, "--start", "NOPE")
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	algo := filepath.Join(dir, "twiss.yaml")

	out, err := execute(t, "config", "init", "--out", algo, "--probe-kind", "twiss")
	require.NoError(t, err, out)

	af, err := config.LoadAlgorithmFile(algo)
	require.NoError(t, err)
	require.Len(t, af.Records, 1)
	assert.Equal(t, tracker.TypeTwiss, af.Records[0].Type)

	out, err = execute(t, "config", "show", "--algorithm", algo)
	require.NoError(t, err, out)
	assert.Contains(t, out, "type: "+tracker.TypeTwiss)
	assert.Contains(t, out, "scheff: true")
}

func TestDBMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, "db", "migrate", "version", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 0")

	out, err = execute(t, "db", "migrate", "up", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 2")

	out, err = execute(t, "db", "migrate", "down", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1")

	_, err = execute(t, "db", "migrate", "sideways", "--db", dbPath)
	assert.Error(t, err)
	_, err = execute(t, "db", "migrate", "up")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "envtrack dev")
}
