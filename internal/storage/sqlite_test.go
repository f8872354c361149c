package storage_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/unobserved-io/nadamark/internal/model"
	"github.com/unobserved-io/nadamark/internal/storage"
)

func idPtr(id int64) *int64 { return &id }

// backends returns one fresh instance of every Store implementation.
func backends(t *testing.T) map[string]storage.Store {
	t.Helper()
	tmpDir := t.TempDir()

	sqlite, err := storage.NewSQLiteStorage(filepath.Join(tmpDir, "nadamark.db"))
	if err != nil {
		t.Fatalf("failed to create sqlite storage: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]storage.Store{
		"sqlite": sqlite,
		"json":   storage.NewJSONStorage(filepath.Join(tmpDir, "bookmarks.json")),
	}
}

func eachBackend(t *testing.T, fn func(t *testing.T, s storage.Store)) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) { fn(t, s) })
	}
}

func TestStore_EmptyHighestIDs(t *testing.T) {
	eachBackend(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()

		folderID, err := s.HighestFolderID(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		bookmarkID, err := s.HighestBookmarkID(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if folderID != 0 || bookmarkID != 0 {
			t.Errorf("expected 0/0 on empty store, got %d/%d", folderID, bookmarkID)
		}

		folders, err := s.AllFolders(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if folders == nil || len(folders) != 0 {
			t.Errorf("expected empty non-nil folders, got %#v", folders)
		}
	})
}

func TestStore_InsertRoundTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		created := time.Unix(1700000000, 0).UTC()
		icon := "data:image/png;base64,AAAA"

		// Child before parent: bulk inserts must not depend on order.
		folders := []model.Folder{
			{ID: 11, Name: "React", Created: created, ParentID: idPtr(10)},
			{ID: 10, Name: "Development", Created: created, Favorite: true},
		}
		bookmarks := []model.Bookmark{
			{ID: 5, Name: "Docs", URL: "https://react.dev", Favicon: &icon, Created: created, FolderID: idPtr(11)},
			{ID: 6, Name: "Root", URL: "https://example.com", Created: created},
		}

		if err := s.InsertFolders(ctx, folders); err != nil {
			t.Fatalf("insert folders: %v", err)
		}
		if err := s.InsertBookmarks(ctx, bookmarks); err != nil {
			t.Fatalf("insert bookmarks: %v", err)
		}

		highest, err := s.HighestFolderID(ctx)
		if err != nil || highest != 11 {
			t.Errorf("expected highest folder 11, got %d (%v)", highest, err)
		}
		highest, err = s.HighestBookmarkID(ctx)
		if err != nil || highest != 6 {
			t.Errorf("expected highest bookmark 6, got %d (%v)", highest, err)
		}

		roots, err := s.ChildFolders(ctx, nil)
		if err != nil {
			t.Fatalf("child folders: %v", err)
		}
		if len(roots) != 1 || roots[0].ID != 10 || !roots[0].Favorite {
			t.Errorf("unexpected root folders: %+v", roots)
		}
		if !roots[0].Created.Equal(created) {
			t.Errorf("expected created %v, got %v", created, roots[0].Created)
		}

		inReact, err := s.ChildBookmarks(ctx, idPtr(11))
		if err != nil {
			t.Fatalf("child bookmarks: %v", err)
		}
		if len(inReact) != 1 || inReact[0].Name != "Docs" {
			t.Fatalf("unexpected bookmarks in React: %+v", inReact)
		}
		if inReact[0].Favicon == nil || *inReact[0].Favicon != icon {
			t.Error("expected favicon to be preserved")
		}
		if inReact[0].FaviconURL != nil {
			t.Error("expected nil favicon_url")
		}

		rootBookmarks, err := s.ChildBookmarks(ctx, nil)
		if err != nil {
			t.Fatalf("child bookmarks: %v", err)
		}
		if len(rootBookmarks) != 1 || rootBookmarks[0].ID != 6 {
			t.Errorf("unexpected root bookmarks: %+v", rootBookmarks)
		}
	})
}

func TestStore_CreateAndUpdate(t *testing.T) {
	eachBackend(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()

		parent, err := s.CreateFolder(ctx, model.NewFolder{Name: "Work"})
		if err != nil {
			t.Fatalf("create folder: %v", err)
		}
		child, err := s.CreateFolder(ctx, model.NewFolder{Name: "Reports", ParentID: &parent})
		if err != nil {
			t.Fatalf("create child folder: %v", err)
		}
		if child == parent {
			t.Fatal("expected distinct ids")
		}

		if _, err := s.CreateFolder(ctx, model.NewFolder{Name: "Orphan", ParentID: idPtr(999)}); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing parent, got %v", err)
		}

		bm, err := s.CreateBookmark(ctx, model.NewBookmark{Name: "Go", URL: "https://go.dev", FolderID: &child})
		if err != nil {
			t.Fatalf("create bookmark: %v", err)
		}

		err = s.UpdateBookmark(ctx, model.BookmarkUpdate{ID: bm, Name: "Go Dev", URL: "https://go.dev/doc"})
		if err != nil {
			t.Fatalf("update bookmark: %v", err)
		}
		rootBookmarks, err := s.ChildBookmarks(ctx, nil)
		if err != nil {
			t.Fatalf("child bookmarks: %v", err)
		}
		if len(rootBookmarks) != 1 || rootBookmarks[0].Name != "Go Dev" || rootBookmarks[0].URL != "https://go.dev/doc" {
			t.Errorf("unexpected root bookmarks after update: %+v", rootBookmarks)
		}
		if rootBookmarks[0].Created.IsZero() {
			t.Error("expected created to default to now")
		}

		if err := s.UpdateFolder(ctx, model.FolderUpdate{ID: child, Name: "Q3 Reports"}); err != nil {
			t.Fatalf("update folder: %v", err)
		}
		parentID, err := s.FolderParentID(ctx, child)
		if err != nil {
			t.Fatalf("folder parent: %v", err)
		}
		if parentID != nil {
			t.Errorf("expected folder moved to root, got parent %d", *parentID)
		}

		if err := s.UpdateFolder(ctx, model.FolderUpdate{ID: 999, Name: "x"}); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := s.UpdateBookmark(ctx, model.BookmarkUpdate{ID: 999, Name: "x", URL: "y"}); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_Reparent(t *testing.T) {
	eachBackend(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		seed(t, s)

		if err := s.ReparentFolder(ctx, 3, idPtr(2)); err != nil {
			t.Fatalf("reparent folder: %v", err)
		}
		parentID, err := s.FolderParentID(ctx, 3)
		if err != nil {
			t.Fatalf("folder parent: %v", err)
		}
		if parentID == nil || *parentID != 2 {
			t.Errorf("expected parent 2, got %v", parentID)
		}

		// Same parent again is a valid no-op move.
		if err := s.ReparentFolder(ctx, 3, idPtr(2)); err != nil {
			t.Errorf("reparent to current parent: %v", err)
		}

		if err := s.ReparentBookmark(ctx, 1, nil); err != nil {
			t.Fatalf("reparent bookmark: %v", err)
		}
		rootBookmarks, err := s.ChildBookmarks(ctx, nil)
		if err != nil {
			t.Fatalf("child bookmarks: %v", err)
		}
		if len(rootBookmarks) != 2 {
			t.Errorf("expected 2 root bookmarks, got %d", len(rootBookmarks))
		}

		if err := s.ReparentFolder(ctx, 999, nil); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing folder, got %v", err)
		}
		if err := s.ReparentBookmark(ctx, 1, idPtr(999)); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing target, got %v", err)
		}
		if _, err := s.FolderParentID(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_DeleteFolderCascades(t *testing.T) {
	eachBackend(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		seed(t, s)

		if err := s.DeleteFolder(ctx, 1); err != nil {
			t.Fatalf("delete folder: %v", err)
		}

		folders, err := s.AllFolders(ctx)
		if err != nil {
			t.Fatalf("all folders: %v", err)
		}
		if len(folders) != 1 || folders[0].ID != 2 {
			t.Errorf("expected only folder 2 to remain, got %+v", folders)
		}

		bookmarks, err := s.AllBookmarks(ctx)
		if err != nil {
			t.Fatalf("all bookmarks: %v", err)
		}
		if len(bookmarks) != 1 || bookmarks[0].ID != 2 {
			t.Errorf("expected only bookmark 2 to remain, got %+v", bookmarks)
		}

		if err := s.DeleteFolder(ctx, 1); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
		if err := s.DeleteBookmark(ctx, 2); err != nil {
			t.Errorf("delete bookmark: %v", err)
		}
		if err := s.DeleteBookmark(ctx, 2); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestStore_ToggleFavorite(t *testing.T) {
	eachBackend(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		seed(t, s)

		if err := s.ToggleBookmarkFavorite(ctx, 2); err != nil {
			t.Fatalf("toggle bookmark: %v", err)
		}
		if err := s.ToggleFolderFavorite(ctx, 2); err != nil {
			t.Fatalf("toggle folder: %v", err)
		}
		if err := s.ToggleFolderFavorite(ctx, 2); err != nil {
			t.Fatalf("toggle folder: %v", err)
		}

		bookmarks, err := s.ChildBookmarks(ctx, nil)
		if err != nil {
			t.Fatalf("child bookmarks: %v", err)
		}
		if len(bookmarks) != 1 || !bookmarks[0].Favorite {
			t.Errorf("expected favorited root bookmark, got %+v", bookmarks)
		}

		folders, err := s.ChildFolders(ctx, nil)
		if err != nil {
			t.Fatalf("child folders: %v", err)
		}
		for _, f := range folders {
			if f.Favorite {
				t.Errorf("expected folder %d not favorited after two toggles", f.ID)
			}
		}

		if err := s.ToggleBookmarkFavorite(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := s.ToggleFolderFavorite(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_Snapshot(t *testing.T) {
	eachBackend(t, func(t *testing.T, s storage.Store) {
		seed(t, s)

		snap, err := storage.Snapshot(context.Background(), s)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if len(snap.Folders) != 3 || len(snap.Bookmarks) != 2 {
			t.Errorf("expected 3 folders and 2 bookmarks, got %d/%d", len(snap.Folders), len(snap.Bookmarks))
		}
	})
}

func TestStore_UpdateRejectsMissingParent(t *testing.T) {
	eachBackend(t, func(t *testing.T, s storage.Store) {
		ctx := context.Background()
		seed(t, s)

		err := s.UpdateBookmark(ctx, model.BookmarkUpdate{ID: 2, Name: "Example", URL: "https://example.com", FolderID: idPtr(999)})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing bookmark folder, got %v", err)
		}
		err = s.UpdateFolder(ctx, model.FolderUpdate{ID: 2, Name: "Design", ParentID: idPtr(999)})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing parent folder, got %v", err)
		}

		bookmarks, err := s.ChildBookmarks(ctx, nil)
		if err != nil {
			t.Fatalf("child bookmarks: %v", err)
		}
		if len(bookmarks) != 1 || bookmarks[0].ID != 2 {
			t.Errorf("expected bookmark 2 to stay at root, got %+v", bookmarks)
		}
		parent, err := s.FolderParentID(ctx, 2)
		if err != nil {
			t.Fatalf("folder parent: %v", err)
		}
		if parent != nil {
			t.Errorf("expected folder 2 to stay at root, got %d", *parent)
		}
	})
}

func TestSQLiteStorage_UnreadableCreatedIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nadamark.db")
	ctx := context.Background()

	s, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer s.Close()
	seed(t, s)

	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	defer raw.Close()
	if _, err := raw.ExecContext(ctx, "UPDATE folders SET created = '+55800-01-01T00:00:00Z' WHERE id = 2"); err != nil {
		t.Fatalf("corrupt created: %v", err)
	}

	if _, err := s.AllFolders(ctx); err == nil {
		t.Error("expected an error for an unreadable created time")
	}
	if _, err := s.AllBookmarks(ctx); err != nil {
		t.Errorf("bookmarks should still load: %v", err)
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nadamark.db")
	ctx := context.Background()

	s, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	if _, err := s.CreateFolder(ctx, model.NewFolder{Name: "Kept"}); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	s.Close()

	s, err = storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to reopen storage: %v", err)
	}
	defer s.Close()

	folders, err := s.AllFolders(ctx)
	if err != nil {
		t.Fatalf("all folders: %v", err)
	}
	if len(folders) != 1 || folders[0].Name != "Kept" {
		t.Errorf("expected folder to survive reopen, got %+v", folders)
	}
}

// seed stores: 1 Development (root) > 3 Go; 2 Design (root);
// bookmark 1 in Go, bookmark 2 at root.
func seed(t *testing.T, s storage.Store) {
	t.Helper()
	ctx := context.Background()
	created := time.Unix(1000, 0).UTC()

	err := s.InsertFolders(ctx, []model.Folder{
		{ID: 1, Name: "Development", Created: created},
		{ID: 2, Name: "Design", Created: created},
		{ID: 3, Name: "Go", Created: created, ParentID: idPtr(1)},
	})
	if err != nil {
		t.Fatalf("seed folders: %v", err)
	}
	err = s.InsertBookmarks(ctx, []model.Bookmark{
		{ID: 1, Name: "Tour", URL: "https://go.dev/tour", Created: created, FolderID: idPtr(3)},
		{ID: 2, Name: "Example", URL: "https://example.com", Created: created},
	})
	if err != nil {
		t.Fatalf("seed bookmarks: %v", err)
	}
}
