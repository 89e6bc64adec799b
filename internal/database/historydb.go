package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/codewatcher/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "codewatcher.db"

// ErrNotFound is returned when no analysis matches the requested ID.
var ErrNotFound = errors.New("analysis not found")

// storedTimestampLayout sorts lexicographically in chronological order.
const storedTimestampLayout = "2006-01-02 15:04:05.000000"

// HistoryDB stores completed analyses.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath, now: time.Now}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		repo_url TEXT NOT NULL,
		branch TEXT NOT NULL DEFAULT '',
		timestamp TEXT NOT NULL,
		score INTEGER NOT NULL,
		tier TEXT NOT NULL,
		error_count INTEGER NOT NULL DEFAULT 0,
		warning_count INTEGER NOT NULL DEFAULT 0,
		secret_count INTEGER NOT NULL DEFAULT 0,
		vulnerability_count INTEGER NOT NULL DEFAULT 0,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_repo ON analyses(repo_url);
	CREATE INDEX IF NOT EXISTS idx_analyses_timestamp ON analyses(timestamp);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// AnalysisRecord is one stored analysis.
type AnalysisRecord struct {
	// ID is a UUID assigned by SaveAnalysis when empty.
	ID string

	RepoURL string
	Branch  string

	// Timestamp is when the analysis completed. SaveAnalysis uses the
	// current time when it is zero.
	Timestamp time.Time

	// Summary holds the stored headline numbers.
	Summary model.Summary

	// Result is the full result. History listings leave it nil.
	Result *model.AnalysisResult
}

// SaveAnalysis stores rec and returns its ID. The summary columns are
// derived from rec.Result.
func (h *HistoryDB) SaveAnalysis(ctx context.Context, rec *AnalysisRecord) (string, error) {
	if rec.RepoURL == "" {
		return "", errors.New("cannot save analysis without a repository URL")
	}
	result := rec.Result.Normalize()

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to serialize result: %w", err)
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = h.now()
	}
	rec.Summary = result.Summary()

	query := `
	INSERT INTO analyses (id, repo_url, branch, timestamp, score, tier,
		error_count, warning_count, secret_count, vulnerability_count, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = h.db.ExecContext(ctx, query,
		rec.ID,
		rec.RepoURL,
		rec.Branch,
		rec.Timestamp.UTC().Format(storedTimestampLayout),
		rec.Summary.Score,
		rec.Summary.Tier.String(),
		rec.Summary.ErrorCount,
		rec.Summary.WarningCount,
		rec.Summary.SecretCount,
		rec.Summary.VulnerabilityCount,
		string(resultJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save analysis: %w", err)
	}

	return rec.ID, nil
}

// RepositoryStats summarizes the stored history of one repository.
type RepositoryStats struct {
	RepoURL        string
	AnalysisCount  int
	LastAnalyzedAt time.Time
}

// ListRepositories returns every repository with stored analyses, ordered
// by URL.
func (h *HistoryDB) ListRepositories(ctx context.Context) ([]RepositoryStats, error) {
	query := `
	SELECT repo_url, COUNT(*), MAX(timestamp)
	FROM analyses
	GROUP BY repo_url
	ORDER BY repo_url
	`

	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	var repos []RepositoryStats
	for rows.Next() {
		var stats RepositoryStats
		var timestamp string
		if err := rows.Scan(&stats.RepoURL, &stats.AnalysisCount, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan repository: %w", err)
		}
		stats.LastAnalyzedAt = parseTimestamp(timestamp)
		repos = append(repos, stats)
	}

	return repos, rows.Err()
}

const summaryColumns = `id, repo_url, branch, timestamp, score, tier,
	error_count, warning_count, secret_count, vulnerability_count`

// GetHistory returns the analyses of repoURL, newest first, without results.
func (h *HistoryDB) GetHistory(ctx context.Context, repoURL string) ([]AnalysisRecord, error) {
	query := `SELECT ` + summaryColumns + `
	FROM analyses
	WHERE repo_url = ?
	ORDER BY timestamp DESC, rowid DESC
	`

	rows, err := h.db.QueryContext(ctx, query, repoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		rec, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// GetAnalysisByID returns the analysis with the given ID, including its
// result. It returns ErrNotFound when no analysis matches.
func (h *HistoryDB) GetAnalysisByID(ctx context.Context, id string) (*AnalysisRecord, error) {
	query := `SELECT ` + summaryColumns + `, result_json
	FROM analyses
	WHERE id = ?
	`

	rec, err := scanFull(h.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetLatestAnalyses returns up to n analyses of repoURL with results,
// newest first.
func (h *HistoryDB) GetLatestAnalyses(ctx context.Context, repoURL string, n int) ([]AnalysisRecord, error) {
	if n <= 0 {
		return nil, nil
	}

	query := `SELECT ` + summaryColumns + `, result_json
	FROM analyses
	WHERE repo_url = ?
	ORDER BY timestamp DESC, rowid DESC
	LIMIT ?
	`

	rows, err := h.db.QueryContext(ctx, query, repoURL, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest analyses: %w", err)
	}
	defer rows.Close()

	var records []AnalysisRecord
	for rows.Next() {
		rec, err := scanFull(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func summaryDest(rec *AnalysisRecord, timestamp, tier *string) []any {
	return []any{
		&rec.ID,
		&rec.RepoURL,
		&rec.Branch,
		timestamp,
		&rec.Summary.Score,
		tier,
		&rec.Summary.ErrorCount,
		&rec.Summary.WarningCount,
		&rec.Summary.SecretCount,
		&rec.Summary.VulnerabilityCount,
	}
}

func scanSummary(s scanner) (*AnalysisRecord, error) {
	var rec AnalysisRecord
	var timestamp, tier string
	if err := s.Scan(summaryDest(&rec, &timestamp, &tier)...); err != nil {
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}
	finishSummary(&rec, timestamp, tier)
	return &rec, nil
}

func scanFull(s scanner) (*AnalysisRecord, error) {
	var rec AnalysisRecord
	var timestamp, tier, resultJSON string
	dest := append(summaryDest(&rec, &timestamp, &tier), &resultJSON)
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan analysis: %w", err)
	}
	finishSummary(&rec, timestamp, tier)

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse stored result %s: %w", rec.ID, err)
	}
	rec.Result = result.Normalize()
	rec.Summary.SuggestionCount = len(rec.Result.Suggestions)
	return &rec, nil
}

func finishSummary(rec *AnalysisRecord, timestamp, tier string) {
	rec.Timestamp = parseTimestamp(timestamp)
	_ = rec.Summary.Tier.UnmarshalText([]byte(tier)) //nolint:errcheck // never fails
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimestampLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// parseTimestamp parses a stored timestamp as UTC. If no format matches it
// returns the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
