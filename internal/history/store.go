package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/portdog/internal/model"
)

// DatabaseFile is the name of the SQLite database file inside the
// history directory.
const DatabaseFile = "portdog.db"

// sqliteTimeFormat is the format used to store timestamps. It matches
// SQLite's default datetime rendering so stored values sort and compare
// correctly with values SQLite generates itself.
const sqliteTimeFormat = "2006-01-02 15:04:05"

// Store provides SQLite-based storage for completed scan reports.
// It manages connection pooling and provides methods for saving and
// querying scans.
//
// Design decision: We keep a single database file for all targets rather
// than one file per target. This makes cross-target queries (the targets
// listing, global cleanup) single statements and keeps backup/restore a
// one-file operation.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Store at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, DatabaseFile)

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		// Check if database file exists
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s (run a scan first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		// Ensure directory exists
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	// SQLite only supports one writer; a single connection also keeps the
	// WAL checkpointing predictable
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	// Enable WAL mode if requested
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Create tables
	if err := store.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- One row per completed scan; the full report travels as JSON
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		resolved_ip TEXT,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		ports_scanned INTEGER NOT NULL DEFAULT 0,
		open_count INTEGER NOT NULL DEFAULT 0,
		digest TEXT NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scans_target ON scans(target);
	CREATE INDEX IF NOT EXISTS idx_scans_started ON scans(started_at);
	CREATE INDEX IF NOT EXISTS idx_scans_digest ON scans(digest);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// ScanRecord contains summary information about a stored scan.
// This is used for displaying scan history without loading the full report.
type ScanRecord struct {
	// ID is the unique identifier of the scan in the database.
	ID int64

	// Target is the scanned host as the user supplied it.
	Target string

	// ResolvedIP is the address the scan actually connected to.
	ResolvedIP string

	// StartedAt is when the scan began.
	StartedAt time.Time

	// Elapsed is the total scan duration.
	Elapsed time.Duration

	// PortsScanned is the number of ports probed.
	PortsScanned int

	// OpenCount is the number of open ports found.
	OpenCount int

	// Digest is the fingerprint digest of the open ports.
	// Two scans with the same digest found identical services.
	Digest string
}

// SaveReport stores a completed scan report and returns its database ID.
func (s *Store) SaveReport(ctx context.Context, report *model.ScanReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	startedAt := report.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	query := `
	INSERT INTO scans (target, resolved_ip, started_at, elapsed_ms, ports_scanned, open_count, digest, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		report.Target,
		report.ResolvedIP,
		startedAt.UTC().Format(sqliteTimeFormat),
		report.Elapsed.Milliseconds(),
		report.PortsScanned,
		len(report.OpenPorts),
		Digest(report),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan: %w", err)
	}

	return result.LastInsertId()
}

// History retrieves the stored scans for a target, most recent first.
// Scans saved within the same second keep insertion order via the id
// tie-break.
func (s *Store) History(ctx context.Context, target string) ([]ScanRecord, error) {
	query := `
	SELECT id, target, resolved_ip, started_at, elapsed_ms, ports_scanned, open_count, digest
	FROM scans
	WHERE target = ?
	ORDER BY started_at DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, target)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		record, err := scanRecordFromRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// scanRecordFromRow reads one ScanRecord from the current row.
func scanRecordFromRow(rows *sql.Rows) (ScanRecord, error) {
	var record ScanRecord
	var resolvedIP sql.NullString
	var startedAt string
	var elapsedMS int64

	err := rows.Scan(
		&record.ID,
		&record.Target,
		&resolvedIP,
		&startedAt,
		&elapsedMS,
		&record.PortsScanned,
		&record.OpenCount,
		&record.Digest,
	)
	if err != nil {
		return ScanRecord{}, fmt.Errorf("failed to scan history row: %w", err)
	}

	if resolvedIP.Valid {
		record.ResolvedIP = resolvedIP.String
	}
	record.StartedAt = parseTimestamp(startedAt)
	record.Elapsed = time.Duration(elapsedMS) * time.Millisecond

	return record, nil
}

// ReportByID retrieves a full scan report by its database ID.
// Returns nil without error when no scan has that ID.
func (s *Store) ReportByID(ctx context.Context, id int64) (*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scans
	WHERE id = ?
	`

	var reportJSON string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// LatestReports retrieves up to limit full reports for a target, most
// recent first.
func (s *Store) LatestReports(ctx context.Context, target string, limit int) ([]*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scans
	WHERE target = ?
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []*model.ScanReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}

		var report model.ScanReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// ListTargets returns every target that has at least one stored scan.
func (s *Store) ListTargets(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT target FROM scans
	ORDER BY target
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}

	return targets, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	// Return zero time if no format matches
	// This is a fallback to avoid breaking functionality for edge cases
	return time.Time{}
}
