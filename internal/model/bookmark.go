package model

import "time"

// Bookmark represents a saved URL with metadata.
type Bookmark struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Favicon    *string   `json:"favicon"`     // inline icon data, usually a data: URI
	FaviconURL *string   `json:"favicon_url"` // remote icon reference
	Created    time.Time `json:"created"`
	FolderID   *int64    `json:"folder_id"` // nil = root level
	Favorite   bool      `json:"favorite"`
}

// NewBookmark holds parameters for creating a new Bookmark.
// The store assigns the ID.
type NewBookmark struct {
	Name     string
	URL      string
	FolderID *int64
	Created  time.Time // zero = now
}

// BookmarkUpdate holds the editable fields of a Bookmark.
type BookmarkUpdate struct {
	ID       int64
	Name     string
	URL      string
	FolderID *int64
}
