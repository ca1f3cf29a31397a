package datasource

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/modviz/pkg/table"
)

// ArchiveReader provides read access to a modviz archive.
type ArchiveReader struct {
	db      *sql.DB
	path    string
	recency string // ORDER BY clause picking the newest source
}

// NewArchiveReader opens an archive read-only.
func NewArchiveReader(path string) (*ArchiveReader, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot open archive: %w", err)
	}
	r := &ArchiveReader{db: db, path: path, recency: "seen DESC, id DESC"}

	// Archives from schema version 1 have no seen column and are opened
	// read-only, so they cannot be migrated here.
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('sources') WHERE name = 'seen'`).Scan(&n); err != nil {
		db.Close()
		return nil, fmt.Errorf("inspect archive: %w", err)
	}
	if n == 0 {
		r.recency = "id DESC"
	}
	return r, nil
}

// Close closes the database connection
func (r *ArchiveReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SourceNames returns the distinct names of archived tables.
func (r *ArchiveReader) SourceNames() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT name FROM sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// LatestSource returns the most recently recorded table named name. A table
// that reverts to earlier content counts as recorded again.
func (r *ArchiveReader) LatestSource(name string) (*table.Source, error) {
	var content string
	err := r.db.QueryRow(`SELECT content FROM sources WHERE name = ? ORDER BY `+r.recency+` LIMIT 1`, name).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%s not in archive %s", name, r.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return table.NewSource(name, []byte(content), table.OptionsForPath(name))
}

// CountCharts returns the number of archived charts.
func (r *ArchiveReader) CountCharts() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM charts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count charts: %w", err)
	}
	return n, nil
}
