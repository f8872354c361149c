package importer

import (
	"context"
	"fmt"

	"github.com/unobserved-io/nadamark/internal/model"
)

// Sequence hands out fresh IDs for a single import call. Folder and bookmark
// counters are independent.
type Sequence struct {
	nextFolder   int64
	nextBookmark int64
}

// NewSequence starts counting one past the given highest existing IDs.
func NewSequence(highestFolderID, highestBookmarkID int64) *Sequence {
	return &Sequence{nextFolder: highestFolderID + 1, nextBookmark: highestBookmarkID + 1}
}

// NextFolderID returns the next unused folder ID.
func (s *Sequence) NextFolderID() int64 {
	id := s.nextFolder
	s.nextFolder++
	return id
}

// NextBookmarkID returns the next unused bookmark ID.
func (s *Sequence) NextBookmarkID() int64 {
	id := s.nextBookmark
	s.nextBookmark++
	return id
}

// IDSource reports the highest IDs already in use.
type IDSource interface {
	HighestFolderID(ctx context.Context) (int64, error)
	HighestBookmarkID(ctx context.Context) (int64, error)
}

// SequenceFrom seeds a Sequence from the store's current maximum IDs.
func SequenceFrom(ctx context.Context, src IDSource) (*Sequence, error) {
	folderID, err := src.HighestFolderID(ctx)
	if err != nil {
		return nil, fmt.Errorf("highest folder id: %w", err)
	}
	bookmarkID, err := src.HighestBookmarkID(ctx)
	if err != nil {
		return nil, fmt.Errorf("highest bookmark id: %w", err)
	}
	return NewSequence(folderID, bookmarkID), nil
}

// Target is the part of the record store an import writes to.
type Target interface {
	IDSource
	InsertFolders(ctx context.Context, folders []model.Folder) error
	InsertBookmarks(ctx context.Context, bookmarks []model.Bookmark) error
}

// Result summarizes a completed import.
type Result struct {
	Folders             int `json:"folders"`
	Bookmarks           int `json:"bookmarks"`
	DefaultedTimestamps int `json:"defaulted_timestamps"`
}

// insert writes folders then bookmarks. Each bulk insert is its own
// transaction; a bookmark failure leaves the folders in place.
func insert(ctx context.Context, store Target, parsed Parsed) (Result, error) {
	if err := store.InsertFolders(ctx, parsed.Folders); err != nil {
		return Result{}, fmt.Errorf("insert folders: %w", err)
	}
	if err := store.InsertBookmarks(ctx, parsed.Bookmarks); err != nil {
		return Result{Folders: len(parsed.Folders)}, fmt.Errorf("insert bookmarks: %w", err)
	}
	return Result{
		Folders:             len(parsed.Folders),
		Bookmarks:           len(parsed.Bookmarks),
		DefaultedTimestamps: parsed.DefaultedTimestamps,
	}, nil
}
