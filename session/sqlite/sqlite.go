// Package sqlite provides a durable core.SessionStore, plus a core.ArtifactStore
// view on the same database, backed by SQLite (modernc.org/sqlite, no cgo).
//
// Turns keep their author and content in dedicated columns. The transcript
// form ("NAME > text" for agent turns) is stored alongside for display and is
// only parsed when upgrading databases written before the author column
// existed.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/sentinelmesh/artifact"
	"github.com/hupe1980/sentinelmesh/core"
)

// Store implements core.SessionStore using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at path and runs the schema
// migration. Use ":memory:" for a private in memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS turns (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq        INTEGER NOT NULL,
			id         TEXT NOT NULL,
			author     TEXT NOT NULL,
			content    TEXT NOT NULL,
			line       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (session_id, seq)
		);
		CREATE TABLE IF NOT EXISTS state (
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			PRIMARY KEY (session_id, key)
		);
		CREATE TABLE IF NOT EXISTS artifacts (
			session_id TEXT NOT NULL,
			id         TEXT NOT NULL,
			data       BLOB NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (session_id, id)
		);
	`)
	if err != nil {
		return err
	}
	return upgradeTurnAuthors(db)
}

// upgradeTurnAuthors adds the author and content columns to a turns table
// created by an older schema and backfills them from the transcript line.
func upgradeTurnAuthors(db *sql.DB) error {
	rows, err := db.Query("SELECT name FROM pragma_table_info('turns')")
	if err != nil {
		return fmt.Errorf("inspect turns: %w", err)
	}
	hasAuthor := false
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("inspect turns: %w", err)
		}
		if name == "author" {
			hasAuthor = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect turns: %w", err)
	}
	if hasAuthor {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`
		ALTER TABLE turns ADD COLUMN author TEXT NOT NULL DEFAULT '';
		ALTER TABLE turns ADD COLUMN content TEXT NOT NULL DEFAULT '';
	`); err != nil {
		return fmt.Errorf("add author columns: %w", err)
	}

	type legacy struct {
		sessionID string
		seq       int64
		line      string
	}
	var pending []legacy
	lrows, err := tx.Query("SELECT session_id, seq, line FROM turns")
	if err != nil {
		return fmt.Errorf("read legacy turns: %w", err)
	}
	for lrows.Next() {
		var l legacy
		if err := lrows.Scan(&l.sessionID, &l.seq, &l.line); err != nil {
			lrows.Close()
			return fmt.Errorf("read legacy turns: %w", err)
		}
		pending = append(pending, l)
	}
	lrows.Close()
	if err := lrows.Err(); err != nil {
		return fmt.Errorf("read legacy turns: %w", err)
	}

	for _, l := range pending {
		t := core.ParseTranscript(l.line)
		if _, err := tx.Exec(
			"UPDATE turns SET author = ?, content = ? WHERE session_id = ? AND seq = ?",
			string(t.Author), t.Content, l.sessionID, l.seq,
		); err != nil {
			return fmt.Errorf("backfill turn: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Create forces the creation (or overwriting) of a session with the given id.
func (s *Store) Create(sessionID string) (*core.Session, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"turns", "state"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE session_id = ?", sessionID); err != nil {
			return nil, fmt.Errorf("reset %s of session %s: %w", table, sessionID, err)
		}
	}
	if _, err := tx.Exec("DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return nil, fmt.Errorf("reset session %s: %w", sessionID, err)
	}
	ts := now()
	if _, err := tx.Exec(
		"INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)", sessionID, ts, ts,
	); err != nil {
		return nil, fmt.Errorf("create session %s: %w", sessionID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.load(sessionID)
}

// Get returns the stored session or creates a new one lazily.
func (s *Store) Get(sessionID string) (*core.Session, error) {
	if err := s.ensure(s.db, sessionID); err != nil {
		return nil, err
	}
	return s.load(sessionID)
}

// AppendTurn adds a turn to an existing or newly created session.
func (s *Store) AppendTurn(sessionID string, turn core.Turn) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.ensure(tx, sessionID); err != nil {
		return err
	}

	var seq int64
	if err := tx.QueryRow(
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE session_id = ?", sessionID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("next turn seq: %w", err)
	}

	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if _, err := tx.Exec(
		"INSERT INTO turns (session_id, seq, id, author, content, line, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		sessionID, seq, turn.ID, string(turn.Author), turn.Content, turn.Transcript(), ts.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	if err := touch(tx, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// ApplyDelta merges a key/value delta into the session state. Values are
// stored as JSON.
func (s *Store) ApplyDelta(sessionID string, delta map[string]any) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.ensure(tx, sessionID); err != nil {
		return err
	}
	for k, v := range delta {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal state %q: %w", k, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO state (session_id, key, value) VALUES (?, ?, ?)
			 ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value`,
			sessionID, k, string(raw),
		); err != nil {
			return fmt.Errorf("apply state %q: %w", k, err)
		}
	}
	if err := touch(tx, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *Store) ensure(db execer, sessionID string) error {
	ts := now()
	if _, err := db.Exec(
		"INSERT OR IGNORE INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)", sessionID, ts, ts,
	); err != nil {
		return fmt.Errorf("ensure session %s: %w", sessionID, err)
	}
	return nil
}

func touch(db execer, sessionID string) error {
	if _, err := db.Exec("UPDATE sessions SET updated_at = ? WHERE id = ?", now(), sessionID); err != nil {
		return fmt.Errorf("touch session %s: %w", sessionID, err)
	}
	return nil
}

func (s *Store) load(sessionID string) (*core.Session, error) {
	var created, updated string
	err := s.db.QueryRow(
		"SELECT created_at, updated_at FROM sessions WHERE id = ?", sessionID,
	).Scan(&created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	sess := core.NewSession(sessionID)

	turns, err := s.loadTurns(sessionID)
	if err != nil {
		return nil, err
	}
	for _, t := range turns {
		sess.AddTurn(t)
	}

	state, err := s.loadState(sessionID)
	if err != nil {
		return nil, err
	}
	sess.ApplyStateDelta(state)

	sess.Created = parseTime(created)
	sess.Updated = parseTime(updated)
	return sess, nil
}

func (s *Store) loadTurns(sessionID string) ([]core.Turn, error) {
	rows, err := s.db.Query(
		"SELECT id, author, content, created_at FROM turns WHERE session_id = ? ORDER BY seq", sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		var id, author, content, created string
		if err := rows.Scan(&id, &author, &content, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, core.Turn{
			ID:        id,
			Author:    core.Identity(author),
			Content:   content,
			Timestamp: parseTime(created),
		})
	}
	return turns, rows.Err()
}

func (s *Store) loadState(sessionID string) (map[string]any, error) {
	rows, err := s.db.Query("SELECT key, value FROM state WHERE session_id = ?", sessionID)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	defer rows.Close()

	state := map[string]any{}
	for rows.Next() {
		var k, raw string
		if err := rows.Scan(&k, &raw); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode state %q: %w", k, err)
		}
		state[k] = v
	}
	return state, rows.Err()
}

// Artifacts returns the artifact store sharing this database.
func (s *Store) Artifacts() *ArtifactStore { return &ArtifactStore{db: s.db} }

// ArtifactStore implements core.ArtifactStore on the session database.
type ArtifactStore struct {
	db *sql.DB
}

// Save stores (or overwrites) an artifact of the session.
func (a *ArtifactStore) Save(sessionID, artifactID string, data []byte) error {
	if err := artifact.ValidateID(artifactID); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	_, err := a.db.Exec(
		`INSERT INTO artifacts (session_id, id, data, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id, id) DO UPDATE SET data = excluded.data, created_at = excluded.created_at`,
		sessionID, artifactID, data, now(),
	)
	if err != nil {
		return fmt.Errorf("save artifact %s: %w", artifactID, err)
	}
	return nil
}

// Get returns the artifact bytes or artifact.ErrNotFound.
func (a *ArtifactStore) Get(sessionID, artifactID string) ([]byte, error) {
	var data []byte
	err := a.db.QueryRow(
		"SELECT data FROM artifacts WHERE session_id = ? AND id = ?", sessionID, artifactID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", artifact.ErrNotFound, sessionID, artifactID)
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", artifactID, err)
	}
	return data, nil
}

// List returns the sorted artifact ids of the session.
func (a *ArtifactStore) List(sessionID string) ([]string, error) {
	rows, err := a.db.Query("SELECT id FROM artifacts WHERE session_id = ? ORDER BY id", sessionID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan artifact id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes the artifact or returns artifact.ErrNotFound.
func (a *ArtifactStore) Delete(sessionID, artifactID string) error {
	res, err := a.db.Exec("DELETE FROM artifacts WHERE session_id = ? AND id = ?", sessionID, artifactID)
	if err != nil {
		return fmt.Errorf("delete artifact %s: %w", artifactID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s/%s", artifact.ErrNotFound, sessionID, artifactID)
	}
	return nil
}
