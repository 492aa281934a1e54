package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/netbox-mcp/internal/logger"
)

var registerSQLiteOnce sync.Once

const driverName = "sqlite3_journal"

// openSQLite opens a SQLite database with WAL and a busy timeout set on
// every connection.
func openSQLite(dbPath string) (*sql.DB, error) {
	registerSQLiteOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if _, err := conn.Exec("PRAGMA journal_mode = WAL;", nil); err != nil {
					return err
				}
				_, err := conn.Exec("PRAGMA busy_timeout = 5000;", nil)
				return err
			},
		})
	})
	return sql.Open(driverName, dbPath)
}

// getWritableDataDirectory picks the first data directory we can write to.
func getWritableDataDirectory() (string, error) {
	candidates := []string{
		func() string {
			if home, err := os.UserHomeDir(); err == nil {
				return filepath.Join(home, ".netbox-mcp", "data")
			}
			return ""
		}(),
		"data",
		filepath.Join(os.TempDir(), "netbox-mcp", "data"),
	}

	for _, dir := range candidates {
		if dir == "" {
			continue
		}
		// owner-only
		if err := os.MkdirAll(dir, 0700); err == nil {
			testFile := filepath.Join(dir, ".write_test")
			if file, err := os.Create(testFile); err == nil {
				file.Close()
				os.Remove(testFile)
				return dir, nil
			}
		}
	}

	return "", fmt.Errorf("no writable directory found for journal storage")
}

// Entry is one recorded tool call.
type Entry struct {
	ID             string        `json:"id"`
	Tool           string        `json:"tool"`
	Query          string        `json:"query,omitempty"`
	Interpretation string        `json:"interpretation,omitempty"`
	ResultCount    int           `json:"result_count"`
	Duration       time.Duration `json:"-"`
	DurationMS     int64         `json:"duration_ms"`
	Error          string        `json:"error,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// ToolStats aggregates the journal for one tool.
type ToolStats struct {
	Tool          string  `json:"tool"`
	Calls         int     `json:"calls"`
	Errors        int     `json:"errors"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// Journal records tool calls in SQLite, partitioned by instance id. It is
// write-mostly: nothing on the query path reads it.
type Journal struct {
	db         *sql.DB
	logger     *logger.Logger
	dbPath     string
	instanceID string
}

// Open opens the journal at dbPath, or journal.db in the data directory when
// dbPath is empty.
func Open(dbPath, instanceID string, log *logger.Logger) (*Journal, error) {
	if dbPath == "" {
		dataDir, err := getWritableDataDirectory()
		if err != nil {
			return nil, fmt.Errorf("failed to determine writable data directory: %w", err)
		}
		dbPath = filepath.Join(dataDir, "journal.db")
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	j := &Journal{db: db, logger: log, dbPath: dbPath, instanceID: instanceID}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	log.Info("Query journal initialized at: %s", dbPath)
	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_journal (
		id TEXT PRIMARY KEY,
		instance_id TEXT NOT NULL,
		tool TEXT NOT NULL,
		query TEXT,
		interpretation TEXT,
		result_count INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_query_journal_instance_created ON query_journal(instance_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_query_journal_instance_tool ON query_journal(instance_id, tool);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (j *Journal) Path() string {
	return j.dbPath
}

// Record stores e. ID and CreatedAt are filled in when empty.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.DurationMS == 0 {
		e.DurationMS = e.Duration.Milliseconds()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO query_journal (id, instance_id, tool, query, interpretation, result_count, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, j.instanceID, e.Tool, e.Query, e.Interpretation, e.ResultCount, e.DurationMS, e.Error, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}

	j.logger.Debug("Journaled %s call (%d results)", e.Tool, e.ResultCount)
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, tool, query, interpretation, result_count, duration_ms, error, created_at
		FROM query_journal
		WHERE instance_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, j.instanceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var query, interpretation, errText sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Tool, &query, &interpretation, &e.ResultCount, &e.DurationMS, &errText, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Query = query.String
		e.Interpretation = interpretation.String
		e.Error = errText.String
		e.Duration = time.Duration(e.DurationMS) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns per-tool call counts, error counts and mean duration,
// busiest tool first.
func (j *Journal) Stats(ctx context.Context) ([]ToolStats, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT tool,
		       COUNT(*),
		       SUM(CASE WHEN error IS NOT NULL AND error != '' THEN 1 ELSE 0 END),
		       AVG(duration_ms)
		FROM query_journal
		WHERE instance_id = ?
		GROUP BY tool
		ORDER BY COUNT(*) DESC, tool
	`, j.instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal stats: %w", err)
	}
	defer rows.Close()

	stats := []ToolStats{}
	for rows.Next() {
		var s ToolStats
		if err := rows.Scan(&s.Tool, &s.Calls, &s.Errors, &s.AvgDurationMS); err != nil {
			return nil, fmt.Errorf("failed to scan journal stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
