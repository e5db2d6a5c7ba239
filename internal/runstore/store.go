package runstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hochfrequenz/loadspike/internal/domain"
)

// ErrRunNotFound is returned when no run matches the requested ID
var ErrRunNotFound = errors.New("run not found")

// Store provides SQLite-backed run history
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport stores a run report and its worker outcomes
func (s *Store) SaveReport(report *domain.RunReport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, cpu_worker_count, memory_target_bytes, run_duration_seconds, completed, memory_allocated_bytes, failed_allocations, abandoned_workers, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed = excluded.completed,
			memory_allocated_bytes = excluded.memory_allocated_bytes,
			failed_allocations = excluded.failed_allocations,
			abandoned_workers = excluded.abandoned_workers,
			finished_at = excluded.finished_at
	`,
		report.ID,
		report.CPUWorkerCount,
		int64(report.MemoryTargetBytes),
		report.RunDurationSeconds,
		report.Completed,
		int64(report.MemoryAllocatedBytes),
		report.FailedAllocations,
		report.AbandonedWorkers,
		report.StartedAt,
		report.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", report.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM worker_outcomes WHERE run_id = ?`, report.ID); err != nil {
		return err
	}
	for _, w := range report.Workers {
		var errText sql.NullString
		if w.Error != "" {
			errText = sql.NullString{String: w.Error, Valid: true}
		}
		_, err := tx.Exec(`
			INSERT INTO worker_outcomes (run_id, kind, idx, status, requested_bytes, elapsed_ns, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, report.ID, string(w.Kind), w.Index, string(w.Status), int64(w.RequestedBytes), int64(w.Elapsed), errText)
		if err != nil {
			return fmt.Errorf("saving worker outcome %s/%d: %w", w.Kind, w.Index, err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, cpu_worker_count, memory_target_bytes, run_duration_seconds, completed, memory_allocated_bytes, failed_allocations, abandoned_workers, started_at, finished_at`

// GetRun retrieves a run and its worker outcomes by ID
func (s *Store) GetRun(id string) (*domain.RunReport, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	report, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	workers, err := s.workerOutcomes(id)
	if err != nil {
		return nil, err
	}
	report.Workers = workers
	return report, nil
}

// ListOptions specifies filters for listing runs
type ListOptions struct {
	Limit         int
	CompletedOnly bool
}

// ListRuns returns runs newest first, without worker outcomes
func (s *Store) ListRuns(opts ListOptions) ([]*domain.RunReport, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []interface{}

	if opts.CompletedOnly {
		query += " AND completed = ?"
		args = append(args, true)
	}

	query += " ORDER BY started_at DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.RunReport
	for rows.Next() {
		report, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, report)
	}

	return runs, rows.Err()
}

// Stats aggregates the stored run history
type Stats struct {
	Runs              int
	Completed         int
	AbandonedWorkers  int
	FailedAllocations int
	LastRunAt         time.Time
}

// Stats returns totals over all stored runs
func (s *Store) Stats() (Stats, error) {
	var st Stats

	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(abandoned_workers), 0),
		       COALESCE(SUM(failed_allocations), 0)
		FROM runs
	`).Scan(&st.Runs, &st.Completed, &st.AbandonedWorkers, &st.FailedAllocations)
	if err != nil {
		return Stats{}, err
	}

	if st.Runs == 0 {
		return st, nil
	}

	// MAX() loses the column type, so the newest row is fetched directly
	err = s.db.QueryRow(`SELECT started_at FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&st.LastRunAt)
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}

func (s *Store) workerOutcomes(runID string) ([]domain.WorkerOutcome, error) {
	rows, err := s.db.Query(`
		SELECT kind, idx, status, requested_bytes, elapsed_ns, error
		FROM worker_outcomes WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []domain.WorkerOutcome
	for rows.Next() {
		var w domain.WorkerOutcome
		var kind, status string
		var requested, elapsed int64
		var errText sql.NullString

		if err := rows.Scan(&kind, &w.Index, &status, &requested, &elapsed, &errText); err != nil {
			return nil, err
		}
		w.Kind = domain.WorkerKind(kind)
		w.Status = domain.WorkerStatus(status)
		w.RequestedBytes = uint64(requested)
		w.Elapsed = time.Duration(elapsed)
		if errText.Valid {
			w.Error = errText.String
		}
		outcomes = append(outcomes, w)
	}
	return outcomes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.RunReport, error) {
	var r domain.RunReport
	var target, allocated int64

	err := row.Scan(&r.ID, &r.CPUWorkerCount, &target, &r.RunDurationSeconds, &r.Completed, &allocated, &r.FailedAllocations, &r.AbandonedWorkers, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, err
	}

	r.MemoryTargetBytes = uint64(target)
	r.MemoryAllocatedBytes = uint64(allocated)
	return &r, nil
}
