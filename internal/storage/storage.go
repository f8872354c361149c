package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/unobserved-io/nadamark/internal/model"
)

// ErrNotFound is returned when a folder or bookmark ID does not exist.
var ErrNotFound = model.ErrNotFound

// Store is the record store for folders and bookmarks.
//
// Parent references are *int64; nil always means root level. Every method
// reports unknown IDs with an error wrapping ErrNotFound and anything else as
// a storage failure.
type Store interface {
	AllFolders(ctx context.Context) ([]model.Folder, error)
	AllBookmarks(ctx context.Context) ([]model.Bookmark, error)
	ChildFolders(ctx context.Context, parentID *int64) ([]model.Folder, error)
	ChildBookmarks(ctx context.Context, folderID *int64) ([]model.Bookmark, error)

	// InsertFolders and InsertBookmarks bulk insert records with the IDs they carry.
	InsertFolders(ctx context.Context, folders []model.Folder) error
	InsertBookmarks(ctx context.Context, bookmarks []model.Bookmark) error

	CreateFolder(ctx context.Context, params model.NewFolder) (int64, error)
	CreateBookmark(ctx context.Context, params model.NewBookmark) (int64, error)
	UpdateFolder(ctx context.Context, update model.FolderUpdate) error
	UpdateBookmark(ctx context.Context, update model.BookmarkUpdate) error
	DeleteFolder(ctx context.Context, id int64) error
	DeleteBookmark(ctx context.Context, id int64) error

	ReparentFolder(ctx context.Context, id int64, parentID *int64) error
	ReparentBookmark(ctx context.Context, id int64, folderID *int64) error
	ToggleFolderFavorite(ctx context.Context, id int64) error
	ToggleBookmarkFavorite(ctx context.Context, id int64) error

	// HighestFolderID and HighestBookmarkID return 0 for an empty table.
	HighestFolderID(ctx context.Context) (int64, error)
	HighestBookmarkID(ctx context.Context) (int64, error)

	// FolderParentID is a single-step parent lookup.
	FolderParentID(ctx context.Context, id int64) (*int64, error)

	Close() error
}

// Snapshot reads every folder and bookmark into an in-memory model.Store.
func Snapshot(ctx context.Context, s Store) (*model.Store, error) {
	folders, err := s.AllFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load folders: %w", err)
	}
	bookmarks, err := s.AllBookmarks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bookmarks: %w", err)
	}
	return &model.Store{Folders: folders, Bookmarks: bookmarks}, nil
}

// JSONStorage implements Store on top of a single JSON file.
// Every call loads the file, applies the change and writes it back.
type JSONStorage struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*JSONStorage)(nil)

// NewJSONStorage creates a new JSONStorage with the given file path.
func NewJSONStorage(path string) *JSONStorage {
	return &JSONStorage{path: path}
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// Close is a no-op; the file is only open during a call.
func (s *JSONStorage) Close() error {
	return nil
}

// Load reads the store from the JSON file.
// Returns an empty store if the file doesn't exist.
func (s *JSONStorage) Load() (*model.Store, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewStore(), nil
		}
		return nil, err
	}

	var store model.Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}

	// Ensure slices are not nil
	if store.Folders == nil {
		store.Folders = []model.Folder{}
	}
	if store.Bookmarks == nil {
		store.Bookmarks = []model.Bookmark{}
	}

	return &store, nil
}

// Save writes the store to the JSON file.
// Creates the directory if it doesn't exist.
func (s *JSONStorage) Save(store *model.Store) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// view runs fn against a freshly loaded snapshot.
func (s *JSONStorage) view(ctx context.Context, fn func(*model.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	store, err := s.Load()
	if err != nil {
		return err
	}
	return fn(store)
}

// update runs fn against a freshly loaded snapshot and saves it when fn succeeds.
func (s *JSONStorage) update(ctx context.Context, fn func(*model.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	store, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}
	return s.Save(store)
}

func (s *JSONStorage) AllFolders(ctx context.Context) ([]model.Folder, error) {
	var folders []model.Folder
	err := s.view(ctx, func(store *model.Store) error {
		folders = store.Folders
		return nil
	})
	return folders, err
}

func (s *JSONStorage) AllBookmarks(ctx context.Context) ([]model.Bookmark, error) {
	var bookmarks []model.Bookmark
	err := s.view(ctx, func(store *model.Store) error {
		bookmarks = store.Bookmarks
		return nil
	})
	return bookmarks, err
}

func (s *JSONStorage) ChildFolders(ctx context.Context, parentID *int64) ([]model.Folder, error) {
	var folders []model.Folder
	err := s.view(ctx, func(store *model.Store) error {
		folders = store.GetFoldersInFolder(parentID)
		return nil
	})
	return folders, err
}

func (s *JSONStorage) ChildBookmarks(ctx context.Context, folderID *int64) ([]model.Bookmark, error) {
	var bookmarks []model.Bookmark
	err := s.view(ctx, func(store *model.Store) error {
		bookmarks = store.GetBookmarksInFolder(folderID)
		return nil
	})
	return bookmarks, err
}

func (s *JSONStorage) InsertFolders(ctx context.Context, folders []model.Folder) error {
	return s.update(ctx, func(store *model.Store) error {
		for _, f := range folders {
			if store.GetFolderByID(f.ID) != nil {
				return fmt.Errorf("insert folder %d: duplicate id", f.ID)
			}
			store.AddFolder(f)
		}
		return nil
	})
}

func (s *JSONStorage) InsertBookmarks(ctx context.Context, bookmarks []model.Bookmark) error {
	return s.update(ctx, func(store *model.Store) error {
		for _, b := range bookmarks {
			if store.GetBookmarkByID(b.ID) != nil {
				return fmt.Errorf("insert bookmark %d: duplicate id", b.ID)
			}
			store.AddBookmark(b)
		}
		return nil
	})
}

func (s *JSONStorage) CreateFolder(ctx context.Context, params model.NewFolder) (int64, error) {
	var id int64
	err := s.update(ctx, func(store *model.Store) error {
		if params.ParentID != nil && store.GetFolderByID(*params.ParentID) == nil {
			return fmt.Errorf("parent folder %d: %w", *params.ParentID, ErrNotFound)
		}
		id = store.HighestFolderID() + 1
		store.AddFolder(model.Folder{
			ID:       id,
			Name:     params.Name,
			Created:  createdOrNow(params.Created),
			ParentID: params.ParentID,
		})
		return nil
	})
	return id, err
}

func (s *JSONStorage) CreateBookmark(ctx context.Context, params model.NewBookmark) (int64, error) {
	var id int64
	err := s.update(ctx, func(store *model.Store) error {
		if params.FolderID != nil && store.GetFolderByID(*params.FolderID) == nil {
			return fmt.Errorf("folder %d: %w", *params.FolderID, ErrNotFound)
		}
		id = store.HighestBookmarkID() + 1
		store.AddBookmark(model.Bookmark{
			ID:       id,
			Name:     params.Name,
			URL:      params.URL,
			Created:  createdOrNow(params.Created),
			FolderID: params.FolderID,
		})
		return nil
	})
	return id, err
}

func (s *JSONStorage) UpdateFolder(ctx context.Context, update model.FolderUpdate) error {
	return s.update(ctx, func(store *model.Store) error {
		f := store.GetFolderByID(update.ID)
		if f == nil {
			return fmt.Errorf("folder %d: %w", update.ID, ErrNotFound)
		}
		if update.ParentID != nil && store.GetFolderByID(*update.ParentID) == nil {
			return fmt.Errorf("parent folder %d: %w", *update.ParentID, ErrNotFound)
		}
		f.Name = update.Name
		f.ParentID = update.ParentID
		return nil
	})
}

func (s *JSONStorage) UpdateBookmark(ctx context.Context, update model.BookmarkUpdate) error {
	return s.update(ctx, func(store *model.Store) error {
		b := store.GetBookmarkByID(update.ID)
		if b == nil {
			return fmt.Errorf("bookmark %d: %w", update.ID, ErrNotFound)
		}
		if update.FolderID != nil && store.GetFolderByID(*update.FolderID) == nil {
			return fmt.Errorf("folder %d: %w", *update.FolderID, ErrNotFound)
		}
		b.Name = update.Name
		b.URL = update.URL
		b.FolderID = update.FolderID
		return nil
	})
}

func (s *JSONStorage) DeleteFolder(ctx context.Context, id int64) error {
	return s.update(ctx, func(store *model.Store) error {
		if err := store.RemoveFolder(id); err != nil {
			return fmt.Errorf("folder %d: %w", id, err)
		}
		return nil
	})
}

func (s *JSONStorage) DeleteBookmark(ctx context.Context, id int64) error {
	return s.update(ctx, func(store *model.Store) error {
		if err := store.RemoveBookmark(id); err != nil {
			return fmt.Errorf("bookmark %d: %w", id, err)
		}
		return nil
	})
}

func (s *JSONStorage) ReparentFolder(ctx context.Context, id int64, parentID *int64) error {
	return s.update(ctx, func(store *model.Store) error {
		f := store.GetFolderByID(id)
		if f == nil {
			return fmt.Errorf("folder %d: %w", id, ErrNotFound)
		}
		if parentID != nil && store.GetFolderByID(*parentID) == nil {
			return fmt.Errorf("parent folder %d: %w", *parentID, ErrNotFound)
		}
		f.ParentID = parentID
		return nil
	})
}

func (s *JSONStorage) ReparentBookmark(ctx context.Context, id int64, folderID *int64) error {
	return s.update(ctx, func(store *model.Store) error {
		b := store.GetBookmarkByID(id)
		if b == nil {
			return fmt.Errorf("bookmark %d: %w", id, ErrNotFound)
		}
		if folderID != nil && store.GetFolderByID(*folderID) == nil {
			return fmt.Errorf("folder %d: %w", *folderID, ErrNotFound)
		}
		b.FolderID = folderID
		return nil
	})
}

func (s *JSONStorage) ToggleFolderFavorite(ctx context.Context, id int64) error {
	return s.update(ctx, func(store *model.Store) error {
		if err := store.ToggleFavoriteFolder(id); err != nil {
			return fmt.Errorf("folder %d: %w", id, err)
		}
		return nil
	})
}

func (s *JSONStorage) ToggleBookmarkFavorite(ctx context.Context, id int64) error {
	return s.update(ctx, func(store *model.Store) error {
		if err := store.ToggleFavoriteBookmark(id); err != nil {
			return fmt.Errorf("bookmark %d: %w", id, err)
		}
		return nil
	})
}

func (s *JSONStorage) HighestFolderID(ctx context.Context) (int64, error) {
	var id int64
	err := s.view(ctx, func(store *model.Store) error {
		id = store.HighestFolderID()
		return nil
	})
	return id, err
}

func (s *JSONStorage) HighestBookmarkID(ctx context.Context) (int64, error) {
	var id int64
	err := s.view(ctx, func(store *model.Store) error {
		id = store.HighestBookmarkID()
		return nil
	})
	return id, err
}

func (s *JSONStorage) FolderParentID(ctx context.Context, id int64) (*int64, error) {
	var parentID *int64
	err := s.view(ctx, func(store *model.Store) error {
		f := store.GetFolderByID(id)
		if f == nil {
			return fmt.Errorf("folder %d: %w", id, ErrNotFound)
		}
		parentID = f.ParentID
		return nil
	})
	return parentID, err
}

// Open opens the configured storage backend: "sqlite" (default) or "json".
func Open(backend, sqlitePath, jsonPath string) (Store, error) {
	switch backend {
	case "", "sqlite":
		return NewSQLiteStorage(sqlitePath)
	case "json":
		return NewJSONStorage(jsonPath), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func createdOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC().Truncate(time.Second)
	}
	return t
}
