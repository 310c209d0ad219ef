package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/docsearch/internal/section"
)

// sqliteCodec stores the index as a SQLite database with a meta table and a
// sections table. The default rollback journal keeps the artifact a single
// file once written.
type sqliteCodec struct{}

var _ codec = sqliteCodec{}

const sqliteSchema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE sections (
	id      INTEGER PRIMARY KEY,
	title   TEXT NOT NULL,
	slug    TEXT NOT NULL,
	url     TEXT NOT NULL,
	content TEXT NOT NULL,
	code    TEXT NOT NULL
);`

const (
	metaSchemaVersion = "schema_version"
	metaFields        = "fields"
	metaBuiltAt       = "built_at"
	metaDigest        = "digest"
	metaCount         = "count"
)

func (sqliteCodec) encode(path string, info Info, sections []section.Section) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	meta := map[string]string{
		metaSchemaVersion: strconv.Itoa(SchemaVersion),
		metaFields:        strings.Join(Fields, ","),
		metaBuiltAt:       info.BuiltAt.UTC().Format(time.RFC3339Nano),
		metaDigest:        info.Digest,
		metaCount:         strconv.Itoa(len(sections)),
	}
	for k, v := range meta {
		if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to write meta %s: %w", k, err)
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO sections (id, title, slug, url, content, code) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for n, s := range sections {
		if _, err := stmt.Exec(n, s.Title, s.Slug, s.URL, s.Content, s.Code); err != nil {
			return fmt.Errorf("failed to write section %d: %w", n, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// open opens the artifact read-only and runs the integrity check.
func (sqliteCodec) open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		_ = db.Close()
		return nil, fmt.Errorf("database corrupted: %s", result)
	}
	return db, nil
}

func (c sqliteCodec) decodeInfo(path string) (Info, error) {
	db, err := c.open(path)
	if err != nil {
		return Info{}, err
	}
	defer db.Close()
	return readMeta(db)
}

func (c sqliteCodec) decode(path string) (Info, []section.Section, error) {
	db, err := c.open(path)
	if err != nil {
		return Info{}, nil, err
	}
	defer db.Close()

	info, err := readMeta(db)
	if err != nil {
		return Info{}, nil, err
	}

	rows, err := db.Query(`SELECT id, title, slug, url, content, code FROM sections ORDER BY id`)
	if err != nil {
		return Info{}, nil, fmt.Errorf("failed to read sections: %w", err)
	}
	defer rows.Close()

	sections := make([]section.Section, 0, info.Count)
	for rows.Next() {
		var id int
		var s section.Section
		if err := rows.Scan(&id, &s.Title, &s.Slug, &s.URL, &s.Content, &s.Code); err != nil {
			return Info{}, nil, fmt.Errorf("failed to scan section: %w", err)
		}
		if id != len(sections) {
			return Info{}, nil, fmt.Errorf("section ids are not contiguous at %d", id)
		}
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return Info{}, nil, fmt.Errorf("failed to read sections: %w", err)
	}

	if len(sections) != info.Count {
		return Info{}, nil, fmt.Errorf("artifact holds %d sections, meta says %d", len(sections), info.Count)
	}
	return info, sections, nil
}

func readMeta(db *sql.DB) (Info, error) {
	rows, err := db.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return Info{}, fmt.Errorf("failed to read meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Info{}, fmt.Errorf("failed to scan meta: %w", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return Info{}, fmt.Errorf("failed to read meta: %w", err)
	}

	version, err := strconv.Atoi(meta[metaSchemaVersion])
	if err != nil {
		return Info{}, fmt.Errorf("invalid schema version %q", meta[metaSchemaVersion])
	}
	if err := checkHeader(version, strings.Split(meta[metaFields], ",")); err != nil {
		return Info{}, err
	}

	count, err := strconv.Atoi(meta[metaCount])
	if err != nil {
		return Info{}, fmt.Errorf("invalid section count %q", meta[metaCount])
	}

	info := Info{SchemaVersion: version, Digest: meta[metaDigest], Count: count}
	if v := meta[metaBuiltAt]; v != "" {
		if info.BuiltAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return Info{}, fmt.Errorf("invalid build time %q: %w", v, err)
		}
	}
	return info, nil
}
