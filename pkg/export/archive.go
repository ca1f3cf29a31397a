package export

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/modviz/pkg/metrics"
	"github.com/vanderheijden86/modviz/pkg/table"

	_ "modernc.org/sqlite"
)

// SchemaVersion is stored in the archive's meta table.
const SchemaVersion = 2

// ArchiveFile is the default archive file name inside an output directory.
const ArchiveFile = "modviz.sqlite3"

// Archive stores raw input tables and the chart documents built from them in
// a SQLite database, so a rendering session can be reopened or diffed later.
type Archive struct {
	db     *sql.DB
	path   string
	logger *log.Logger
}

// ArchiveOption configures OpenArchive.
type ArchiveOption func(*Archive)

// WithArchiveLogger sets the logger for archive writes.
func WithArchiveLogger(l *log.Logger) ArchiveOption {
	return func(a *Archive) {
		if l != nil {
			a.logger = l
		}
	}
}

// OpenArchive opens (or creates) the archive at path and ensures its schema.
func OpenArchive(path string, opts ...ArchiveOption) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// A single writer avoids SQLITE_BUSY when the batch renderer archives
	// from several goroutines.
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	a := &Archive{db: db, path: path, logger: log.New(io.Discard, "", 0)}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Path returns the database file path.
func (a *Archive) Path() string { return a.path }

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// CreateSchema creates the archive tables and records the schema version.
func CreateSchema(db *sql.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{"sources", `
			CREATE TABLE IF NOT EXISTS sources (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				sha256 TEXT NOT NULL,
				row_count INTEGER NOT NULL,
				content TEXT NOT NULL,
				created_at TEXT NOT NULL,
				seen INTEGER NOT NULL DEFAULT 0,
				UNIQUE(name, sha256)
			)`},
		{"charts", `
			CREATE TABLE IF NOT EXISTS charts (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				kind TEXT NOT NULL,
				title TEXT,
				sources TEXT,
				model TEXT NOT NULL,
				created_at TEXT NOT NULL
			)`},
		{"charts index", `CREATE INDEX IF NOT EXISTS idx_charts_kind ON charts(kind)`},
		{"meta", `
			CREATE TABLE IF NOT EXISTS meta (
				key TEXT PRIMARY KEY,
				value TEXT
			)`},
	}
	for _, s := range stmts {
		if _, err := db.Exec(s.sql); err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	if err := migrateSeen(db); err != nil {
		return fmt.Errorf("migrate sources: %w", err)
	}
	if _, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, fmt.Sprint(SchemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}

// AddSource stores the raw text of src and marks it as the newest copy of
// its name. Storing identical content under the same name again returns the
// existing row id. The lookup and insert are one statement, so concurrent
// batch jobs sharing a table cannot collide on the unique key.
func (a *Archive) AddSource(src *table.Source) (int64, error) {
	defer metrics.Timer(metrics.ArchiveWrite)()

	sum := sha256.Sum256(src.Raw)
	digest := hex.EncodeToString(sum[:])

	rows := 0
	if src.Matrix != nil {
		rows = src.Matrix.Len()
	}
	var id int64
	err := a.db.QueryRow(`
		INSERT INTO sources (name, sha256, row_count, content, created_at, seen)
		VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seen), 0) + 1 FROM sources))
		ON CONFLICT(name, sha256) DO UPDATE SET seen = excluded.seen
		RETURNING id`,
		src.Name, digest, rows, string(src.Raw), time.Now().UTC().Format(time.RFC3339),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store source %s: %w", src.Name, err)
	}
	a.logger.Printf("archive: recorded source %s (%d rows, id %d)", src.Name, rows, id)
	return id, nil
}

// migrateSeen adds the seen column to archives written before it existed,
// ordering their rows by insertion.
func migrateSeen(db *sql.DB) error {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('sources') WHERE name = 'seen'`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE sources ADD COLUMN seen INTEGER NOT NULL DEFAULT 0`); err != nil {
		return err
	}
	_, err := db.Exec(`UPDATE sources SET seen = id`)
	return err
}

// SaveChart stores doc's chart model as JSON.
func (a *Archive) SaveChart(doc Document, title string) (int64, error) {
	defer metrics.Timer(metrics.ArchiveWrite)()

	data, err := json.Marshal(doc.Chart)
	if err != nil {
		return 0, fmt.Errorf("encode chart: %w", err)
	}
	res, err := a.db.Exec(
		`INSERT INTO charts (kind, title, sources, model, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(doc.Kind), title, strings.Join(doc.Sources, ","), string(data), doc.GeneratedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert chart: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	a.logger.Printf("archive: stored %s chart %q (id %d)", doc.Kind, title, id)
	return id, nil
}

// ChartCount returns the number of archived charts.
func (a *Archive) ChartCount() (int, error) {
	var n int
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM charts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count charts: %w", err)
	}
	return n, nil
}
