package model

import "errors"

// ErrNotFound is returned by Store lookups and mutations for unknown IDs.
var ErrNotFound = errors.New("not found")

// Store holds a full snapshot of bookmarks and folders.
type Store struct {
	Folders   []Folder   `json:"folders"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

// NewStore creates an empty Store with initialized slices.
func NewStore() *Store {
	return &Store{
		Folders:   []Folder{},
		Bookmarks: []Bookmark{},
	}
}

// IsEmpty reports whether the store holds no folders and no bookmarks.
func (s *Store) IsEmpty() bool {
	return len(s.Folders) == 0 && len(s.Bookmarks) == 0
}

// GetFoldersInFolder returns folders with the given parent ID.
// Pass nil for root level folders.
func (s *Store) GetFoldersInFolder(parentID *int64) []Folder {
	result := []Folder{}
	for _, f := range s.Folders {
		if ptrEqual(f.ParentID, parentID) {
			result = append(result, f)
		}
	}
	return result
}

// GetBookmarksInFolder returns bookmarks in the given folder.
// Pass nil for root level bookmarks.
func (s *Store) GetBookmarksInFolder(folderID *int64) []Bookmark {
	result := []Bookmark{}
	for _, b := range s.Bookmarks {
		if ptrEqual(b.FolderID, folderID) {
			result = append(result, b)
		}
	}
	return result
}

// GetFolderByID finds a folder by ID, returns nil if not found.
func (s *Store) GetFolderByID(id int64) *Folder {
	for i := range s.Folders {
		if s.Folders[i].ID == id {
			return &s.Folders[i]
		}
	}
	return nil
}

// GetBookmarkByID finds a bookmark by ID, returns nil if not found.
func (s *Store) GetBookmarkByID(id int64) *Bookmark {
	for i := range s.Bookmarks {
		if s.Bookmarks[i].ID == id {
			return &s.Bookmarks[i]
		}
	}
	return nil
}

// HighestFolderID returns the largest folder ID, or 0 when there are none.
func (s *Store) HighestFolderID() int64 {
	var highest int64
	for _, f := range s.Folders {
		highest = max(highest, f.ID)
	}
	return highest
}

// HighestBookmarkID returns the largest bookmark ID, or 0 when there are none.
func (s *Store) HighestBookmarkID() int64 {
	var highest int64
	for _, b := range s.Bookmarks {
		highest = max(highest, b.ID)
	}
	return highest
}

// AddFolder appends a folder as-is.
func (s *Store) AddFolder(f Folder) {
	s.Folders = append(s.Folders, f)
}

// AddBookmark appends a bookmark as-is.
func (s *Store) AddBookmark(b Bookmark) {
	s.Bookmarks = append(s.Bookmarks, b)
}

// RemoveFolder deletes a folder together with every folder and bookmark
// below it.
func (s *Store) RemoveFolder(id int64) error {
	if s.GetFolderByID(id) == nil {
		return ErrNotFound
	}

	doomed := map[int64]bool{id: true}
	// Parents may appear after their children, so repeat until stable.
	for changed := true; changed; {
		changed = false
		for _, f := range s.Folders {
			if f.ParentID != nil && doomed[*f.ParentID] && !doomed[f.ID] {
				doomed[f.ID] = true
				changed = true
			}
		}
	}

	folders := s.Folders[:0]
	for _, f := range s.Folders {
		if !doomed[f.ID] {
			folders = append(folders, f)
		}
	}
	s.Folders = folders

	bookmarks := s.Bookmarks[:0]
	for _, b := range s.Bookmarks {
		if b.FolderID == nil || !doomed[*b.FolderID] {
			bookmarks = append(bookmarks, b)
		}
	}
	s.Bookmarks = bookmarks
	return nil
}

// RemoveBookmark deletes a single bookmark.
func (s *Store) RemoveBookmark(id int64) error {
	for i := range s.Bookmarks {
		if s.Bookmarks[i].ID == id {
			s.Bookmarks = append(s.Bookmarks[:i], s.Bookmarks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// ToggleFavoriteFolder flips the favorite flag of a folder.
func (s *Store) ToggleFavoriteFolder(id int64) error {
	f := s.GetFolderByID(id)
	if f == nil {
		return ErrNotFound
	}
	f.Favorite = !f.Favorite
	return nil
}

// ToggleFavoriteBookmark flips the favorite flag of a bookmark.
func (s *Store) ToggleFavoriteBookmark(id int64) error {
	b := s.GetBookmarkByID(id)
	if b == nil {
		return ErrNotFound
	}
	b.Favorite = !b.Favorite
	return nil
}

// ptrEqual compares two ID pointers for equality.
func ptrEqual(a, b *int64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// SameParent reports whether two optional parent references point at the
// same folder (both nil counts as the same root).
func SameParent(a, b *int64) bool {
	return ptrEqual(a, b)
}
