package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

type DB struct {
	conn *sql.DB
}

// New opens or creates the database at dbPath for writing.
func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	conn, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// OpenReadOnly opens an existing database without taking the writer lock, so
// readers can run next to a transform.
func OpenReadOnly(dbPath string) (*DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	conn, err := sql.Open("duckdb", dbPath+"?access_mode=read_only")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_source_id START 1;`,
		`CREATE SEQUENCE IF NOT EXISTS seq_entity_id START 1;`,
		`CREATE SEQUENCE IF NOT EXISTS seq_ref_id START 1;`,

		`CREATE TABLE IF NOT EXISTS sources (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			graph_path TEXT NOT NULL DEFAULT '',
			processed_at TIMESTAMP,
			last_used_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(name)
		)`,

		`CREATE TABLE IF NOT EXISTS entities (
			id INTEGER PRIMARY KEY,
			source_id INTEGER REFERENCES sources(id),
			uid TEXT NOT NULL,
			name TEXT NOT NULL,
			display TEXT NOT NULL,
			kind TEXT NOT NULL,
			owner_uid TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			signature TEXT NOT NULL,
			fragment_names TEXT NOT NULL,
			UNIQUE(source_id, uid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_source ON entities (source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_uid ON entities (uid)`,

		`CREATE TABLE IF NOT EXISTS refs (
			id INTEGER PRIMARY KEY,
			source_id INTEGER NOT NULL,
			entity_uid TEXT NOT NULL,
			raw TEXT NOT NULL,
			label TEXT NOT NULL,
			kind TEXT NOT NULL,
			state TEXT NOT NULL,
			target TEXT NOT NULL,
			inline BOOLEAN NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refs_source ON refs (source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_refs_state ON refs (state)`,
	}

	for _, q := range queries {
		if _, err := db.conn.Exec(q); err != nil {
			return fmt.Errorf("executing %q: %w", q, err)
		}
	}
	return nil
}

// --- Source operations ---

// Source is one transformed input, identified by name.
type Source struct {
	ID          int
	Name        string
	GraphPath   string
	ProcessedAt *time.Time
	LastUsedAt  time.Time
}

const sourceColumns = `id, name, graph_path, processed_at, last_used_at`

func scanSource(row interface{ Scan(...any) error }) (*Source, error) {
	var s Source
	if err := row.Scan(&s.ID, &s.Name, &s.GraphPath, &s.ProcessedAt, &s.LastUsedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpsertSource returns the source called name, creating it if needed, and
// records where its transformed graph is cached.
func (db *DB) UpsertSource(name, graphPath string) (*Source, error) {
	s, err := scanSource(db.conn.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE name = ?`, name))
	if err == nil {
		if s.GraphPath != graphPath {
			if _, err := db.conn.Exec(`UPDATE sources SET graph_path = ? WHERE id = ?`, graphPath, s.ID); err != nil {
				return nil, fmt.Errorf("updating source: %w", err)
			}
			s.GraphPath = graphPath
		}
		return s, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("checking source: %w", err)
	}

	var id int
	err = db.conn.QueryRow(
		`INSERT INTO sources (id, name, graph_path) VALUES (nextval('seq_source_id'), ?, ?) RETURNING id`,
		name, graphPath,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("inserting source: %w", err)
	}
	return &Source{ID: id, Name: name, GraphPath: graphPath, LastUsedAt: time.Now()}, nil
}

func (db *DB) MarkSourceProcessed(sourceID int) error {
	_, err := db.conn.Exec(`UPDATE sources SET processed_at = CURRENT_TIMESTAMP WHERE id = ?`, sourceID)
	return err
}

func (db *DB) GetSource(name string) (*Source, error) {
	s, err := scanSource(db.conn.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (db *DB) GetSourceByID(id int) (*Source, error) {
	s, err := scanSource(db.conn.QueryRow(`SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func (db *DB) ListSources() ([]Source, error) {
	rows, err := db.conn.Query(`SELECT ` + sourceColumns + ` FROM sources ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *s)
	}
	return sources, rows.Err()
}

// --- Entity operations ---

// Entity is the stored summary of one transformed type or member.
type Entity struct {
	ID            int
	SourceID      int
	UID           string
	Name          string
	Display       string
	Kind          string
	Owner         string // uid of the type whose page holds this entity
	ContentHash   string // CAS hash of the rendered page
	Signature     string
	FragmentNames string // JSON-encoded []string
}

const entityColumns = `e.id, e.source_id, e.uid, e.name, e.display, e.kind, e.owner_uid, e.content_hash, e.signature, e.fragment_names`

func scanEntity(row interface{ Scan(...any) error }) (*Entity, error) {
	var e Entity
	if err := row.Scan(&e.ID, &e.SourceID, &e.UID, &e.Name, &e.Display, &e.Kind, &e.Owner, &e.ContentHash, &e.Signature, &e.FragmentNames); err != nil {
		return nil, err
	}
	return &e, nil
}

// Ref is a stored outbound reference of an entity.
type Ref struct {
	ID        int
	SourceID  int
	EntityUID string
	Raw       string
	Label     string
	Kind      string
	State     string
	Target    string
	Inline    bool
}

// ReplaceEntities swaps the stored entities and references of a source for
// a new set.
func (db *DB) ReplaceEntities(sourceID int, entities []Entity, refs []Ref) error {
	// DuckDB rejects re-inserting keys deleted in the same transaction, so
	// the deletes commit on their own.
	if _, err := db.conn.Exec(`DELETE FROM refs WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("deleting refs: %w", err)
	}
	if _, err := db.conn.Exec(`DELETE FROM entities WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("deleting entities: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	entStmt, err := tx.Prepare(
		`INSERT INTO entities (id, source_id, uid, name, display, kind, owner_uid, content_hash, signature, fragment_names)
		 VALUES (nextval('seq_entity_id'), ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing entity insert: %w", err)
	}
	defer entStmt.Close()
	for _, e := range entities {
		if _, err := entStmt.Exec(sourceID, e.UID, e.Name, e.Display, e.Kind, e.Owner, e.ContentHash, e.Signature, e.FragmentNames); err != nil {
			return fmt.Errorf("inserting entity %s: %w", e.UID, err)
		}
	}

	refStmt, err := tx.Prepare(
		`INSERT INTO refs (id, source_id, entity_uid, raw, label, kind, state, target, inline)
		 VALUES (nextval('seq_ref_id'), ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing ref insert: %w", err)
	}
	defer refStmt.Close()
	for _, r := range refs {
		if _, err := refStmt.Exec(sourceID, r.EntityUID, r.Raw, r.Label, r.Kind, r.State, r.Target, r.Inline); err != nil {
			return fmt.Errorf("inserting ref %s: %w", r.Raw, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing entities: %w", err)
	}
	return nil
}

// GetEntity looks an entity up by uid, preferring the most recently
// processed source when several contain it.
func (db *DB) GetEntity(uid string) (*Entity, error) {
	e, err := scanEntity(db.conn.QueryRow(
		`SELECT `+entityColumns+`
		 FROM entities e JOIN sources s ON s.id = e.source_id
		 WHERE e.uid = ?
		 ORDER BY s.processed_at DESC NULLS LAST LIMIT 1`, uid,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// SearchEntities finds entities whose uid or display name contains query,
// case-insensitively. Exact display matches come first, then shorter uids.
func (db *DB) SearchEntities(query string, limit int) ([]Entity, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	rows, err := db.conn.Query(
		`SELECT `+entityColumns+`
		 FROM entities e
		 WHERE contains(lower(e.uid), ?) OR contains(lower(e.display), ?)
		 ORDER BY lower(e.display) = ? DESC, length(e.uid), e.uid
		 LIMIT ?`, q, q, q, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching entities: %w", err)
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		entities = append(entities, *e)
	}
	return entities, rows.Err()
}

func (db *DB) CountEntities(sourceID int) (int, error) {
	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM entities WHERE source_id = ?`, sourceID).Scan(&count)
	return count, err
}

// --- Reference operations ---

// ListUnresolved returns unresolved references, optionally limited to one
// source. A zero sourceID lists every source.
func (db *DB) ListUnresolved(sourceID, limit int) ([]Ref, error) {
	query := `SELECT id, source_id, entity_uid, raw, label, kind, state, target, inline
		FROM refs WHERE state = 'unresolved'`
	var params []any
	if sourceID != 0 {
		query += ` AND source_id = ?`
		params = append(params, sourceID)
	}
	query += ` ORDER BY entity_uid, raw LIMIT ?`
	params = append(params, limit)

	rows, err := db.conn.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("listing unresolved refs: %w", err)
	}
	defer rows.Close()

	var refs []Ref
	for rows.Next() {
		var r Ref
		if err := rows.Scan(&r.ID, &r.SourceID, &r.EntityUID, &r.Raw, &r.Label, &r.Kind, &r.State, &r.Target, &r.Inline); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// CountRefsByState tallies the references of a source by resolution state.
func (db *DB) CountRefsByState(sourceID int) (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT state, COUNT(*) FROM refs WHERE source_id = ? GROUP BY state`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[state] = n
	}
	return counts, rows.Err()
}
