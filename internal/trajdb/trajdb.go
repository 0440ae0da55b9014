// Package trajdb stores simulation runs, their trajectory snapshots and named
// algorithm records in SQLite.
package trajdb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/envtrack/internal/beam"
	"github.com/banshee-data/envtrack/internal/config"
	"github.com/banshee-data/envtrack/internal/probe"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the database at path and applies all
// pending migrations.
func Open(path string) (*DB, error) {
	db, err := OpenRaw(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenRaw opens the database without touching the schema.
func OpenRaw(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps pragmas and in-memory databases consistent.
	sqlDB.SetMaxOpenConns(1)
	if _, err := sqlDB.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}
	return &DB{sqlDB}, nil
}

// Run describes one walk of a probe through a sequence.
type Run struct {
	ID            string
	SequenceID    string
	AlgorithmType string
	RecordName    string
	ProbeKind     string
	Notes         string
	CreatedAt     time.Time
}

// CreateRun inserts r. An empty ID is replaced by a new UUID and a zero
// CreatedAt by the current time.
func (db *DB) CreateRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := db.Exec(
		`INSERT INTO runs (run_id, sequence_id, algorithm_type, record_name, probe_kind, notes, created_unix_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SequenceID, r.AlgorithmType, r.RecordName, r.ProbeKind, r.Notes, r.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// GetRun returns the run with the given id.
func (db *DB) GetRun(id string) (*Run, error) {
	row := db.QueryRow(
		`SELECT run_id, sequence_id, algorithm_type, record_name, probe_kind, notes, created_unix_ns
		FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	return r, nil
}

// ListRuns returns every run, newest first.
func (db *DB) ListRuns() ([]Run, error) {
	rows, err := db.Query(
		`SELECT run_id, sequence_id, algorithm_type, record_name, probe_kind, notes, created_unix_ns
		FROM runs ORDER BY created_unix_ns DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its snapshots.
func (db *DB) DeleteRun(id string) error {
	res, err := db.Exec(`DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var ns int64
	if err := s.Scan(&r.ID, &r.SequenceID, &r.AlgorithmType, &r.RecordName, &r.ProbeKind, &r.Notes, &ns); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, ns).UTC()
	return &r, nil
}

// AppendStates stores snapshots for run id after any already stored, in a
// single transaction.
func (db *DB) AppendStates(runID string, states []probe.State) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq) + 1, 0) FROM trajectory_states WHERE run_id = ?`, runID).Scan(&next); err != nil {
		return fmt.Errorf("failed to read state count: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO trajectory_states (
		run_id, seq, element_id, hardware_id, position_m, time_s, kinetic_ev, phase_rad,
		alpha_x, beta_x, emit_x, alpha_y, beta_y, emit_y, alpha_z, beta_z, emit_z,
		mu_x, mu_y, mu_z, centroid_json, covariance_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range states {
		centroid, err := json.Marshal(s.Centroid)
		if err != nil {
			return fmt.Errorf("failed to encode centroid: %w", err)
		}
		cov, err := json.Marshal(s.Covariance)
		if err != nil {
			return fmt.Errorf("failed to encode covariance: %w", err)
		}
		tw := s.Twiss
		if _, err := stmt.Exec(
			runID, next+i, s.ElementID, s.HardwareID, s.Position, s.Time, s.KineticEnergy, s.Phase,
			tw[0].Alpha, tw[0].Beta, tw[0].Emittance,
			tw[1].Alpha, tw[1].Beta, tw[1].Emittance,
			tw[2].Alpha, tw[2].Beta, tw[2].Emittance,
			s.BetatronPhase[0], s.BetatronPhase[1], s.BetatronPhase[2],
			string(centroid), string(cov),
		); err != nil {
			return fmt.Errorf("failed to insert state %d: %w", next+i, err)
		}
	}
	return tx.Commit()
}

// States returns the snapshots of run id in recording order.
func (db *DB) States(runID string) ([]probe.State, error) {
	rows, err := db.Query(`SELECT
		element_id, hardware_id, position_m, time_s, kinetic_ev, phase_rad,
		alpha_x, beta_x, emit_x, alpha_y, beta_y, emit_y, alpha_z, beta_z, emit_z,
		mu_x, mu_y, mu_z, centroid_json, covariance_json
		FROM trajectory_states WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query states: %w", err)
	}
	defer rows.Close()

	var out []probe.State
	for rows.Next() {
		var s probe.State
		var tw beam.Twiss3D
		var centroid, cov string
		if err := rows.Scan(
			&s.ElementID, &s.HardwareID, &s.Position, &s.Time, &s.KineticEnergy, &s.Phase,
			&tw[0].Alpha, &tw[0].Beta, &tw[0].Emittance,
			&tw[1].Alpha, &tw[1].Beta, &tw[1].Emittance,
			&tw[2].Alpha, &tw[2].Beta, &tw[2].Emittance,
			&s.BetatronPhase[0], &s.BetatronPhase[1], &s.BetatronPhase[2],
			&centroid, &cov,
		); err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}
		s.Twiss = tw
		if err := json.Unmarshal([]byte(centroid), &s.Centroid); err != nil {
			return nil, fmt.Errorf("failed to decode centroid: %w", err)
		}
		if err := json.Unmarshal([]byte(cov), &s.Covariance); err != nil {
			return nil, fmt.Errorf("failed to decode covariance: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PutAlgorithmRecord stores rec under its name, replacing any previous
// record of that name.
func (db *DB) PutAlgorithmRecord(rec config.AlgorithmRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode algorithm record: %w", err)
	}
	_, err = db.Exec(
		`INSERT INTO algorithm_records (name, algorithm_type, record_json, updated_unix_ns)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			algorithm_type = excluded.algorithm_type,
			record_json = excluded.record_json,
			updated_unix_ns = excluded.updated_unix_ns`,
		rec.Name, rec.Type, string(body), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to store algorithm record: %w", err)
	}
	return nil
}

// LookupAlgorithmRecord returns the record called name, falling back to the
// "default" record.
func (db *DB) LookupAlgorithmRecord(name string) (*config.AlgorithmRecord, error) {
	for _, n := range []string{name, config.DefaultRecordName} {
		var body string
		err := db.QueryRow(`SELECT record_json FROM algorithm_records WHERE name = ?`, n).Scan(&body)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read algorithm record: %w", err)
		}
		rec := &config.AlgorithmRecord{}
		if err := json.Unmarshal([]byte(body), rec); err != nil {
			return nil, fmt.Errorf("%w: record %q: %v", config.ErrDataFormat, n, err)
		}
		return rec, nil
	}
	return nil, fmt.Errorf("%w: %q (no %q record either)", config.ErrRecordNotFound, name, config.DefaultRecordName)
}

// AlgorithmRecordNames returns the stored record names in order.
func (db *DB) AlgorithmRecordNames() ([]string, error) {
	rows, err := db.Query(`SELECT name FROM algorithm_records ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list algorithm records: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
