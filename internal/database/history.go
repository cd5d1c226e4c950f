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

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/autoposter/internal/model"
)

// FileName is the database file inside the data directory.
const FileName = "history.db"

// DefaultListLimit bounds ListRuns when no limit is given.
const DefaultListLimit = 20

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB stores runs.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and file when missing.
	CreateIfNotExists bool

	// EnableWAL switches the journal to write-ahead logging.
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
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
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
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		make TEXT NOT NULL,
		model_query TEXT,
		make_url TEXT,
		model_name TEXT,
		submodel_name TEXT,
		detail_url TEXT,
		specs_json TEXT NOT NULL,
		poster_json TEXT NOT NULL,
		image_strategy TEXT,
		manifest_path TEXT,
		mock INTEGER NOT NULL DEFAULT 0,
		fallback INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_make ON runs(make COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun inserts run, replacing an earlier version with the same id.
func (h *HistoryDB) SaveRun(ctx context.Context, run *model.Run) error {
	specs, err := json.Marshal(run.Specs)
	if err != nil {
		return fmt.Errorf("failed to serialize specs: %w", err)
	}
	poster, err := json.Marshal(run.Poster)
	if err != nil {
		return fmt.Errorf("failed to serialize poster: %w", err)
	}

	query := `
	INSERT INTO runs (id, make, model_query, make_url, model_name, submodel_name, detail_url,
		specs_json, poster_json, image_strategy, manifest_path, mock, fallback, error, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		make_url = excluded.make_url,
		model_name = excluded.model_name,
		submodel_name = excluded.submodel_name,
		detail_url = excluded.detail_url,
		specs_json = excluded.specs_json,
		poster_json = excluded.poster_json,
		image_strategy = excluded.image_strategy,
		manifest_path = excluded.manifest_path,
		mock = excluded.mock,
		fallback = excluded.fallback,
		error = excluded.error,
		finished_at = excluded.finished_at
	`
	_, err = h.db.ExecContext(ctx, query,
		run.ID,
		run.Make,
		run.ModelQuery,
		run.MakeURL,
		run.ModelName,
		run.SubmodelName,
		run.DetailURL,
		string(specs),
		string(poster),
		run.ImageStrategy,
		run.ManifestPath,
		boolInt(run.Mock),
		boolInt(run.Fallback),
		run.ErrorMessage,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

const selectRun = `
	SELECT id, make, model_query, make_url, model_name, submodel_name, detail_url,
		specs_json, poster_json, image_strategy, manifest_path, mock, fallback, error, started_at, finished_at
	FROM runs
`

// GetRun returns the run with id.
func (h *HistoryDB) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := h.db.QueryRowContext(ctx, selectRun+" WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first. An empty makeName lists every
// make; otherwise the make is matched ignoring case. A limit of zero or less
// means DefaultListLimit.
func (h *HistoryDB) ListRuns(ctx context.Context, makeName string, limit int) ([]*model.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := selectRun + " WHERE 1=1"
	args := make([]any, 0, 2)
	if makeName != "" {
		query += " AND make = ? COLLATE NOCASE"
		args = append(args, makeName)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes the run with id.
func (h *HistoryDB) DeleteRun(ctx context.Context, id string) error {
	res, err := h.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*model.Run, error) {
	var (
		run                               model.Run
		modelQuery, makeURL, modelName    sql.NullString
		submodelName, detailURL, strategy sql.NullString
		manifest, errMsg, finished        sql.NullString
		specsJSON, posterJSON, started    string
		mock, fallback                    int
	)
	err := s.Scan(
		&run.ID,
		&run.Make,
		&modelQuery,
		&makeURL,
		&modelName,
		&submodelName,
		&detailURL,
		&specsJSON,
		&posterJSON,
		&strategy,
		&manifest,
		&mock,
		&fallback,
		&errMsg,
		&started,
		&finished,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if err := json.Unmarshal([]byte(specsJSON), &run.Specs); err != nil {
		return nil, fmt.Errorf("failed to parse specs: %w", err)
	}
	if err := json.Unmarshal([]byte(posterJSON), &run.Poster); err != nil {
		return nil, fmt.Errorf("failed to parse poster: %w", err)
	}

	run.ModelQuery = modelQuery.String
	run.MakeURL = makeURL.String
	run.ModelName = modelName.String
	run.SubmodelName = submodelName.String
	run.DetailURL = detailURL.String
	run.ImageStrategy = strategy.String
	run.ManifestPath = manifest.String
	run.ErrorMessage = errMsg.String
	run.Mock = mock != 0
	run.Fallback = fallback != 0
	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished.String)
	return &run, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampLayout has a fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats are tried in order when reading timestamps back.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
