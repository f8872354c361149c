package storage_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/unobserved-io/nadamark/internal/model"
	"github.com/unobserved-io/nadamark/internal/storage"
)

func TestJSONStorage_SaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bookmarks.json")
	folderID := int64(1)

	store := &model.Store{
		Folders: []model.Folder{
			{ID: folderID, Name: "Development", Created: time.Unix(1000, 0).UTC()},
		},
		Bookmarks: []model.Bookmark{
			{ID: 1, Name: "Test", URL: "https://example.com", FolderID: &folderID},
		},
	}

	s := storage.NewJSONStorage(path)
	if err := s.Save(store); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("storage file was not created")
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if len(loaded.Folders) != 1 {
		t.Errorf("expected 1 folder, got %d", len(loaded.Folders))
	}
	if len(loaded.Bookmarks) != 1 {
		t.Errorf("expected 1 bookmark, got %d", len(loaded.Bookmarks))
	}
	if loaded.Folders[0].Name != "Development" {
		t.Errorf("expected folder name 'Development', got %q", loaded.Folders[0].Name)
	}
	if loaded.Bookmarks[0].FolderID == nil || *loaded.Bookmarks[0].FolderID != folderID {
		t.Error("expected bookmark folder_id to be preserved")
	}
}

func TestJSONStorage_LoadNonexistent(t *testing.T) {
	s := storage.NewJSONStorage(filepath.Join(t.TempDir(), "nonexistent.json"))

	store, err := s.Load()
	if err != nil {
		t.Fatalf("expected no error for nonexistent file, got: %v", err)
	}
	if store.Folders == nil || store.Bookmarks == nil {
		t.Error("expected initialized slices")
	}
	if !store.IsEmpty() {
		t.Error("expected empty store")
	}
}

func TestJSONStorage_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.json")
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := storage.NewJSONStorage(path).Load(); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestOpen(t *testing.T) {
	tmpDir := t.TempDir()

	s, err := storage.Open("json", "", filepath.Join(tmpDir, "b.json"))
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	if _, ok := s.(*storage.JSONStorage); !ok {
		t.Errorf("expected *JSONStorage, got %T", s)
	}

	s, err = storage.Open("", filepath.Join(tmpDir, "b.db"), "")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*storage.SQLiteStorage); !ok {
		t.Errorf("expected *SQLiteStorage, got %T", s)
	}

	if _, err := storage.Open("mongo", "", ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}
