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

	"github.com/nao1215/pestadvisor/internal/model"
)

// FileName is the run log database file inside the data directory.
const FileName = "pestadvisor.db"

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RunLog stores run metadata in SQLite.
type RunLog struct {
	db     *sql.DB
	dbPath string
}

// Options configures RunLog behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
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

// RunRecord is one row of the run log.
type RunRecord struct {
	ID          string
	State       model.State
	Location    string
	StartedAt   time.Time
	FinishedAt  time.Time
	Duration    time.Duration
	Error       string
	ImageDigest string
	ImageType   string
	ImageSize   int
	Warnings    int
	Stages      []model.StageRecord
}

// Open opens or creates the run log in dbDir.
func Open(dbDir string, opts Options) (*RunLog, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
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

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rl := &RunLog{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rl.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rl, nil
}

// Path returns the database file path.
func (rl *RunLog) Path() string {
	return rl.dbPath
}

// Close closes the database connection.
func (rl *RunLog) Close() error {
	return rl.db.Close()
}

func (rl *RunLog) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		location TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		duration_ms INTEGER,
		error TEXT,
		image_digest TEXT,
		image_type TEXT,
		image_size INTEGER,
		warnings INTEGER DEFAULT 0,
		stages TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(image_digest);
	`

	_, err := rl.db.ExecContext(context.Background(), schema)
	return err
}

// Record inserts or replaces the metadata of run.
func (rl *RunLog) Record(ctx context.Context, run *model.Run) error {
	stagesJSON, err := json.Marshal(run.Stages)
	if err != nil {
		return fmt.Errorf("failed to serialize stages: %w", err)
	}

	var digest, imageType string
	var imageSize int
	if run.Image != nil {
		digest = run.Image.Digest
		imageType = run.Image.MIMEType
		imageSize = run.Image.Size
	}

	var finished string
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.UTC().Format(timestampLayout)
	}

	query := `
	INSERT OR REPLACE INTO runs
		(id, state, location, started_at, finished_at, duration_ms, error,
		 image_digest, image_type, image_size, warnings, stages)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = rl.db.ExecContext(ctx, query,
		run.ID,
		run.State.String(),
		run.Location,
		run.StartedAt.UTC().Format(timestampLayout),
		finished,
		run.Duration().Milliseconds(),
		run.Error,
		digest,
		imageType,
		imageSize,
		len(run.Warnings),
		string(stagesJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, state, location, started_at, finished_at, duration_ms, error,
	       image_digest, image_type, image_size, warnings, stages
	FROM runs
`

// Get returns the record of one run.
func (rl *RunLog) Get(ctx context.Context, id string) (*RunRecord, error) {
	row := rl.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit records, newest first.
func (rl *RunLog) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := rl.db.QueryContext(ctx, selectColumns+" ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// ByDigest returns every run made with the same image, newest first.
func (rl *RunLog) ByDigest(ctx context.Context, digest string) ([]RunRecord, error) {
	rows, err := rl.db.QueryContext(ctx, selectColumns+" WHERE image_digest = ? ORDER BY started_at DESC", digest)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*RunRecord, error) {
	var (
		rec                          RunRecord
		state, started               string
		location, finished, errText  sql.NullString
		digest, imageType, stagesRaw sql.NullString
		durationMS, imageSize, warns sql.NullInt64
	)
	if err := row.Scan(&rec.ID, &state, &location, &started, &finished, &durationMS, &errText,
		&digest, &imageType, &imageSize, &warns, &stagesRaw); err != nil {
		return nil, err
	}

	st, err := model.ParseState(state)
	if err != nil {
		return nil, err
	}
	rec.State = st
	rec.Location = location.String
	rec.StartedAt = parseTimestamp(started)
	rec.FinishedAt = parseTimestamp(finished.String)
	rec.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	rec.Error = errText.String
	rec.ImageDigest = digest.String
	rec.ImageType = imageType.String
	rec.ImageSize = int(imageSize.Int64)
	rec.Warnings = int(warns.Int64)

	if stagesRaw.String != "" {
		if err := json.Unmarshal([]byte(stagesRaw.String), &rec.Stages); err != nil {
			return nil, fmt.Errorf("failed to parse stages: %w", err)
		}
	}
	return &rec, nil
}

// timestampLayout keeps nine fractional digits so that stored timestamps
// sort correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// parseTimestamp returns the zero time for empty or unknown formats.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
