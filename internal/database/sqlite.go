package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dirsnap/internal/database/migrations"
	"dirsnap/internal/snap"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store implements snap.Store on a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the snapshot database at path and applies
// any pending schema migrations. path can be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection. The pool is
// pinned to a single connection: the pipeline owns the store exclusively for
// a run, and a single connection keeps ":memory:" databases coherent.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return db, nil
}

// InsertEntries writes one batch of entries in a single transaction.
// Either every row of the batch becomes visible or none does.
func (s *Store) InsertEntries(entries []*snap.Entry) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (path, type, size, mtime, ctime, btime, mode, uid, gid, ino, nlink, hash, target)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		_, err := stmt.ExecContext(ctx,
			e.Path, string(e.Kind), e.Size, e.Mtime, e.Ctime, e.Btime,
			e.Mode, e.UID, e.GID, e.Ino, e.Nlink, e.Hash, e.Target)
		if err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// PutIdentities writes the user and group rows in one transaction.
func (s *Store) PutIdentities(users []snap.User, groups []snap.Group) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, u := range users {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (uid, username, gid, gecos, homedir, shell)
			VALUES (?, ?, ?, ?, ?, ?)`,
			u.UID, u.Username, u.GID, u.Gecos, u.HomeDir, u.Shell)
		if err != nil {
			return fmt.Errorf("inserting user %d: %w", u.UID, err)
		}
	}

	for _, g := range groups {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO groups (gid, groupname, members)
			VALUES (?, ?, ?)`,
			g.GID, g.Name, g.Members)
		if err != nil {
			return fmt.Errorf("inserting group %d: %w", g.GID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing identities: %w", err)
	}
	return nil
}

// WriteManifest writes the single closing manifest row.
func (s *Store) WriteManifest(m *snap.Manifest) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshot_info (
			version, snapshot_id, snapshot_name, root_path,
			scan_start, scan_end, scan_duration,
			total_entries, total_files, total_dirs, total_links, total_size, total_errors,
			os_platform, time_zone, snapshot_hash, exclude_paths)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Version, m.SnapshotID, m.SnapshotName, m.RootPath,
		m.ScanStart, m.ScanEnd, m.ScanDuration,
		m.Stats.Entries, m.Stats.Files, m.Stats.Dirs, m.Stats.Links, m.Stats.Size, m.Stats.Errors,
		m.OSPlatform, m.TimeZone, m.Signature, m.ExcludeJSON)
	if err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ReadManifest returns the manifest row, or nil if none was ever written
// (the run aborted before completion).
func (s *Store) ReadManifest() (*snap.Manifest, error) {
	row := s.db.QueryRow(`
		SELECT version, snapshot_id, snapshot_name, root_path,
			scan_start, scan_end, scan_duration,
			total_entries, total_files, total_dirs, total_links, total_size, total_errors,
			os_platform, time_zone, snapshot_hash, exclude_paths
		FROM snapshot_info`)

	var m snap.Manifest
	err := row.Scan(
		&m.Version, &m.SnapshotID, &m.SnapshotName, &m.RootPath,
		&m.ScanStart, &m.ScanEnd, &m.ScanDuration,
		&m.Stats.Entries, &m.Stats.Files, &m.Stats.Dirs, &m.Stats.Links, &m.Stats.Size, &m.Stats.Errors,
		&m.OSPlatform, &m.TimeZone, &m.Signature, &m.ExcludeJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return &m, nil
}

// ForEachEntry calls fn for every entry row, ordered by path. SQLite's
// default BINARY collation gives byte-lexicographic order, which is the
// canonical order the signature depends on.
func (s *Store) ForEachEntry(fn func(*snap.Entry) error) error {
	rows, err := s.db.Query(`
		SELECT path, type, size, mtime, ctime, btime, mode, uid, gid, ino, nlink, hash, target
		FROM entries ORDER BY path`)
	if err != nil {
		return fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e snap.Entry
		var kind string
		err := rows.Scan(
			&e.Path, &kind, &e.Size, &e.Mtime, &e.Ctime, &e.Btime,
			&e.Mode, &e.UID, &e.GID, &e.Ino, &e.Nlink, &e.Hash, &e.Target)
		if err != nil {
			return fmt.Errorf("scanning entry: %w", err)
		}
		e.Kind = snap.Kind(kind)
		if err := fn(&e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Users returns all user rows ordered by uid.
func (s *Store) Users() ([]snap.User, error) {
	rows, err := s.db.Query(`SELECT uid, username, gid, gecos, homedir, shell FROM users ORDER BY uid`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []snap.User
	for rows.Next() {
		var u snap.User
		if err := rows.Scan(&u.UID, &u.Username, &u.GID, &u.Gecos, &u.HomeDir, &u.Shell); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Groups returns all group rows ordered by gid.
func (s *Store) Groups() ([]snap.Group, error) {
	rows, err := s.db.Query(`SELECT gid, groupname, members FROM groups ORDER BY gid`)
	if err != nil {
		return nil, fmt.Errorf("querying groups: %w", err)
	}
	defer rows.Close()

	var groups []snap.Group
	for rows.Next() {
		var g snap.Group
		if err := rows.Scan(&g.GID, &g.Name, &g.Members); err != nil {
			return nil, fmt.Errorf("scanning group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// CountEntries returns the number of persisted entry rows.
func (s *Store) CountEntries() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *Store) CheckMigrations() error {
	return migrations.Check(s.db)
}

// Path returns the database file path (or ":memory:").
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that Store implements snap.Store.
var _ snap.Store = (*Store)(nil)
