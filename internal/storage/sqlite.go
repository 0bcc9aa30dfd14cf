package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Storage handles all database operations of the visit log.
// The log is write-only from the crawler's point of view: it is never read
// back to resume a crawl.
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new Storage instance, opening/creating the DB and initializing schema
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	storage := &Storage{db: db}

	// Initialize schema
	if err := storage.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// initSchema creates tables and indices if they don't exist
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		seed_url TEXT NOT NULL,
		strategy TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		fetched INTEGER DEFAULT 0,
		failures INTEGER DEFAULT 0,
		reason TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS visits (
		visit_id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		url TEXT NOT NULL,
		referrer TEXT DEFAULT '',
		status INTEGER NOT NULL,
		severity TEXT NOT NULL,
		elapsed_ms INTEGER DEFAULT 0,
		error TEXT DEFAULT '',
		FOREIGN KEY (run_id) REFERENCES runs(run_id)
	);

	CREATE TABLE IF NOT EXISTS patterns (
		run_id TEXT NOT NULL,
		pattern TEXT NOT NULL,
		count INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(run_id),
		UNIQUE(run_id, pattern)
	);

	CREATE INDEX IF NOT EXISTS idx_visits_run ON visits(run_id);
	CREATE INDEX IF NOT EXISTS idx_visits_url ON visits(url);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateRun inserts a new run and returns its generated ID
func (s *Storage) CreateRun(seedURL, strategy string) (string, error) {
	runID := uuid.NewString()
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, seed_url, strategy, started_at)
		VALUES (?, ?, ?, ?)
	`, runID, seedURL, strategy, time.Now().UTC())

	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return runID, nil
}

// InsertVisit appends a visit record to a run
func (s *Storage) InsertVisit(v VisitRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO visits (run_id, seq, url, referrer, status, severity, elapsed_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, v.RunID, v.Seq, v.URL, v.Referrer, v.Status, v.Severity, v.ElapsedMs, v.Error)

	if err != nil {
		return fmt.Errorf("failed to insert visit: %w", err)
	}
	return nil
}

// FinishRun records the final counters and termination reason of a run
func (s *Storage) FinishRun(runID string, fetched, failures int, reason string) error {
	_, err := s.db.Exec(`
		UPDATE runs SET finished_at = ?, fetched = ?, failures = ?, reason = ?
		WHERE run_id = ?
	`, time.Now().UTC(), fetched, failures, reason, runID)

	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// UpsertPatternCount stores the final count of a pattern for a run
func (s *Storage) UpsertPatternCount(runID, pattern string, count int) error {
	_, err := s.db.Exec(`
		INSERT INTO patterns (run_id, pattern, count)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, pattern) DO UPDATE SET
			count = EXCLUDED.count
	`, runID, pattern, count)

	if err != nil {
		return fmt.Errorf("failed to upsert pattern: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID, returns nil if not found
func (s *Storage) GetRun(runID string) (*Run, error) {
	var run Run
	var finished sql.NullTime
	err := s.db.QueryRow(`
		SELECT run_id, seed_url, strategy, started_at, finished_at, fetched, failures, reason
		FROM runs
		WHERE run_id = ?
	`, runID).Scan(&run.RunID, &run.SeedURL, &run.Strategy, &run.StartedAt, &finished,
		&run.Fetched, &run.Failures, &run.Reason)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

// ListVisits returns the visits of a run in insertion order
func (s *Storage) ListVisits(runID string) ([]*VisitRecord, error) {
	rows, err := s.db.Query(`
		SELECT visit_id, run_id, seq, url, referrer, status, severity, elapsed_ms, error
		FROM visits
		WHERE run_id = ?
		ORDER BY visit_id ASC
	`, runID)

	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer rows.Close()

	var visits []*VisitRecord
	for rows.Next() {
		var v VisitRecord
		if err := rows.Scan(&v.VisitID, &v.RunID, &v.Seq, &v.URL, &v.Referrer, &v.Status,
			&v.Severity, &v.ElapsedMs, &v.Error); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		visits = append(visits, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating visits: %w", err)
	}

	return visits, nil
}

// PatternCounts returns the stored pattern counts of a run
func (s *Storage) PatternCounts(runID string) (map[string]int, error) {
	rows, err := s.db.Query(`SELECT pattern, count FROM patterns WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var pattern string
		var count int
		if err := rows.Scan(&pattern, &count); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		counts[pattern] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patterns: %w", err)
	}

	return counts, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}
