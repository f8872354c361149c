package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unobserved-io/nadamark/internal/model"
)

const currentSchemaVersion = 1

// SQLiteStorage implements Store using a SQLite database.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (or creates) the database at path and migrates it.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// PRAGMAs are per connection; a single connection keeps them in force.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &SQLiteStorage{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// migrate runs database migrations.
func (s *SQLiteStorage) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, currentSchemaVersion)
	}

	return nil
}

// migrateV1 creates the initial schema. Deleting a folder removes its subtree.
func (s *SQLiteStorage) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS folders (
			id INTEGER PRIMARY KEY NOT NULL,
			name TEXT NOT NULL,
			created TEXT NOT NULL,
			parent_id INTEGER,
			favorite INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (parent_id) REFERENCES folders(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_folders_parent_id ON folders(parent_id);

		CREATE TABLE IF NOT EXISTS bookmarks (
			id INTEGER PRIMARY KEY NOT NULL,
			name TEXT NOT NULL,
			url TEXT NOT NULL,
			favicon TEXT,
			favicon_url TEXT,
			created TEXT NOT NULL,
			folder_id INTEGER,
			favorite INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (folder_id) REFERENCES folders(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_bookmarks_folder_id ON bookmarks(folder_id);
		CREATE INDEX IF NOT EXISTS idx_bookmarks_url ON bookmarks(url);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

const (
	folderColumns   = "id, name, created, parent_id, favorite"
	bookmarkColumns = "id, name, url, favicon, favicon_url, created, folder_id, favorite"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanFolder(row scanner) (model.Folder, error) {
	var f model.Folder
	var created string
	var parentID sql.NullInt64
	var favorite int

	err := row.Scan(&f.ID, &f.Name, &created, &parentID, &favorite)
	if err != nil {
		return f, err
	}
	if f.Created, err = parseTime(created); err != nil {
		return f, fmt.Errorf("folder %d: %w", f.ID, err)
	}
	if parentID.Valid {
		f.ParentID = &parentID.Int64
	}
	f.Favorite = favorite == 1
	return f, nil
}

func scanBookmark(row scanner) (model.Bookmark, error) {
	var b model.Bookmark
	var created string
	var favicon, faviconURL sql.NullString
	var folderID sql.NullInt64
	var favorite int

	err := row.Scan(&b.ID, &b.Name, &b.URL, &favicon, &faviconURL, &created, &folderID, &favorite)
	if err != nil {
		return b, err
	}
	if b.Created, err = parseTime(created); err != nil {
		return b, fmt.Errorf("bookmark %d: %w", b.ID, err)
	}
	if favicon.Valid {
		b.Favicon = &favicon.String
	}
	if faviconURL.Valid {
		b.FaviconURL = &faviconURL.String
	}
	if folderID.Valid {
		b.FolderID = &folderID.Int64
	}
	b.Favorite = favorite == 1
	return b, nil
}

func (s *SQLiteStorage) queryFolders(ctx context.Context, query string, args ...any) ([]model.Folder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	folders := []model.Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (s *SQLiteStorage) queryBookmarks(ctx context.Context, query string, args ...any) ([]model.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookmarks := []model.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

func (s *SQLiteStorage) AllFolders(ctx context.Context) ([]model.Folder, error) {
	return s.queryFolders(ctx, "SELECT "+folderColumns+" FROM folders ORDER BY id")
}

func (s *SQLiteStorage) AllBookmarks(ctx context.Context) ([]model.Bookmark, error) {
	return s.queryBookmarks(ctx, "SELECT "+bookmarkColumns+" FROM bookmarks ORDER BY id")
}

func (s *SQLiteStorage) ChildFolders(ctx context.Context, parentID *int64) ([]model.Folder, error) {
	if parentID == nil {
		return s.queryFolders(ctx, "SELECT "+folderColumns+" FROM folders WHERE parent_id IS NULL ORDER BY id")
	}
	return s.queryFolders(ctx, "SELECT "+folderColumns+" FROM folders WHERE parent_id = ? ORDER BY id", *parentID)
}

func (s *SQLiteStorage) ChildBookmarks(ctx context.Context, folderID *int64) ([]model.Bookmark, error) {
	if folderID == nil {
		return s.queryBookmarks(ctx, "SELECT "+bookmarkColumns+" FROM bookmarks WHERE folder_id IS NULL ORDER BY id")
	}
	return s.queryBookmarks(ctx, "SELECT "+bookmarkColumns+" FROM bookmarks WHERE folder_id = ? ORDER BY id", *folderID)
}

// InsertFolders inserts all folders in one transaction. Foreign keys are
// checked at commit, so parents may come after their children.
func (s *SQLiteStorage) InsertFolders(ctx context.Context, folders []model.Folder) error {
	if len(folders) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO folders ("+folderColumns+") VALUES (?, ?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, f := range folders {
			if _, err := stmt.ExecContext(ctx, f.ID, f.Name, formatTime(f.Created), f.ParentID, boolInt(f.Favorite)); err != nil {
				return fmt.Errorf("insert folder %d: %w", f.ID, err)
			}
		}
		return nil
	})
}

// InsertBookmarks inserts all bookmarks in one transaction.
func (s *SQLiteStorage) InsertBookmarks(ctx context.Context, bookmarks []model.Bookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO bookmarks ("+bookmarkColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, b := range bookmarks {
			if _, err := stmt.ExecContext(ctx,
				b.ID, b.Name, b.URL, b.Favicon, b.FaviconURL,
				formatTime(b.Created), b.FolderID, boolInt(b.Favorite),
			); err != nil {
				return fmt.Errorf("insert bookmark %d: %w", b.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStorage) CreateFolder(ctx context.Context, params model.NewFolder) (int64, error) {
	if err := s.requireFolder(ctx, params.ParentID); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO folders (name, created, parent_id) VALUES (?, ?, ?)",
		params.Name, formatTime(createdOrNow(params.Created)), params.ParentID,
	)
	if err != nil {
		return 0, fmt.Errorf("create folder: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStorage) CreateBookmark(ctx context.Context, params model.NewBookmark) (int64, error) {
	if err := s.requireFolder(ctx, params.FolderID); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO bookmarks (name, url, created, folder_id) VALUES (?, ?, ?, ?)",
		params.Name, params.URL, formatTime(createdOrNow(params.Created)), params.FolderID,
	)
	if err != nil {
		return 0, fmt.Errorf("create bookmark: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStorage) UpdateFolder(ctx context.Context, update model.FolderUpdate) error {
	if err := s.requireFolder(ctx, update.ParentID); err != nil {
		return err
	}
	return s.execOne(ctx, fmt.Sprintf("folder %d", update.ID),
		"UPDATE folders SET name = ?, parent_id = ? WHERE id = ?",
		update.Name, update.ParentID, update.ID,
	)
}

func (s *SQLiteStorage) UpdateBookmark(ctx context.Context, update model.BookmarkUpdate) error {
	if err := s.requireFolder(ctx, update.FolderID); err != nil {
		return err
	}
	return s.execOne(ctx, fmt.Sprintf("bookmark %d", update.ID),
		"UPDATE bookmarks SET name = ?, url = ?, folder_id = ? WHERE id = ?",
		update.Name, update.URL, update.FolderID, update.ID,
	)
}

func (s *SQLiteStorage) DeleteFolder(ctx context.Context, id int64) error {
	return s.execOne(ctx, fmt.Sprintf("folder %d", id), "DELETE FROM folders WHERE id = ?", id)
}

func (s *SQLiteStorage) DeleteBookmark(ctx context.Context, id int64) error {
	return s.execOne(ctx, fmt.Sprintf("bookmark %d", id), "DELETE FROM bookmarks WHERE id = ?", id)
}

func (s *SQLiteStorage) ReparentFolder(ctx context.Context, id int64, parentID *int64) error {
	if err := s.requireFolder(ctx, parentID); err != nil {
		return err
	}
	return s.execOne(ctx, fmt.Sprintf("folder %d", id), "UPDATE folders SET parent_id = ? WHERE id = ?", parentID, id)
}

func (s *SQLiteStorage) ReparentBookmark(ctx context.Context, id int64, folderID *int64) error {
	if err := s.requireFolder(ctx, folderID); err != nil {
		return err
	}
	return s.execOne(ctx, fmt.Sprintf("bookmark %d", id), "UPDATE bookmarks SET folder_id = ? WHERE id = ?", folderID, id)
}

func (s *SQLiteStorage) ToggleFolderFavorite(ctx context.Context, id int64) error {
	return s.execOne(ctx, fmt.Sprintf("folder %d", id), "UPDATE folders SET favorite = 1 - favorite WHERE id = ?", id)
}

func (s *SQLiteStorage) ToggleBookmarkFavorite(ctx context.Context, id int64) error {
	return s.execOne(ctx, fmt.Sprintf("bookmark %d", id), "UPDATE bookmarks SET favorite = 1 - favorite WHERE id = ?", id)
}

func (s *SQLiteStorage) HighestFolderID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) FROM folders").Scan(&id)
	return id, err
}

func (s *SQLiteStorage) HighestBookmarkID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(id), 0) FROM bookmarks").Scan(&id)
	return id, err
}

func (s *SQLiteStorage) FolderParentID(ctx context.Context, id int64) (*int64, error) {
	var parentID sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT parent_id FROM folders WHERE id = ?", id).Scan(&parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("folder %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !parentID.Valid {
		return nil, nil
	}
	return &parentID.Int64, nil
}

// requireFolder fails with ErrNotFound unless id is nil or an existing folder.
func (s *SQLiteStorage) requireFolder(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM folders WHERE id = ?", *id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("folder %d: %w", *id, ErrNotFound)
	}
	return err
}

// execOne runs a statement that must touch exactly one row.
func (s *SQLiteStorage) execOne(ctx context.Context, what, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "PRAGMA defer_foreign_keys = ON"); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("created %q: %w", s, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
