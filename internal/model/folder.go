package model

import "time"

// Folder represents a container for bookmarks and other folders.
type Folder struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	ParentID *int64    `json:"parent_id"` // nil = root level
	Favorite bool      `json:"favorite"`
}

// NewFolder holds parameters for creating a new Folder.
// The store assigns the ID.
type NewFolder struct {
	Name     string
	ParentID *int64
	Created  time.Time // zero = now
}

// FolderUpdate holds the editable fields of a Folder.
type FolderUpdate struct {
	ID       int64
	Name     string
	ParentID *int64
}
