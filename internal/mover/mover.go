// Package mover validates and applies structural changes to the folder
// hierarchy.
package mover

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/unobserved-io/nadamark/internal/model"
	"github.com/unobserved-io/nadamark/internal/storage"
)

var (
	// ErrCycle is returned when a folder would become its own descendant.
	ErrCycle = errors.New("move would create a cycle")
	// ErrInvalidItemType is returned for anything other than folder or bookmark.
	ErrInvalidItemType = model.ErrInvalidItemType
	// ErrStorage wraps failures of the underlying write.
	ErrStorage = errors.New("storage failure")
)

// maxDepth bounds the ancestor walk; no real hierarchy is this deep.
const maxDepth = 10_000

// Store is the subset of the record store the mover needs.
type Store interface {
	FolderParentID(ctx context.Context, id int64) (*int64, error)
	ReparentFolder(ctx context.Context, id int64, parentID *int64) error
	ReparentBookmark(ctx context.Context, id int64, folderID *int64) error
	UpdateFolder(ctx context.Context, update model.FolderUpdate) error
}

// Mover moves folders and bookmarks while keeping the hierarchy acyclic.
// Folder moves through one Mover are serialized, so a check and its write
// never interleave with another folder move.
type Mover struct {
	mu    sync.Mutex
	store Store
}

// New creates a Mover.
func New(store Store) *Mover {
	return &Mover{store: store}
}

// Move reparents item under target; a nil target moves it to the root level.
// Moving to the current parent is valid and still performs the write.
func (m *Mover) Move(ctx context.Context, itemType model.ItemType, itemID int64, target *int64) error {
	switch itemType {
	case model.ItemBookmark:
		if err := m.store.ReparentBookmark(ctx, itemID, target); err != nil {
			return wrapWrite(err)
		}
		return nil
	case model.ItemFolder:
		m.mu.Lock()
		defer m.mu.Unlock()
		if err := m.CheckFolderTarget(ctx, itemID, target); err != nil {
			return err
		}
		if err := m.store.ReparentFolder(ctx, itemID, target); err != nil {
			return wrapWrite(err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidItemType, string(itemType))
	}
}

// UpdateFolder renames a folder and sets its parent, applying the same cycle
// check as Move.
func (m *Mover) UpdateFolder(ctx context.Context, update model.FolderUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.CheckFolderTarget(ctx, update.ID, update.ParentID); err != nil {
		return err
	}
	if err := m.store.UpdateFolder(ctx, update); err != nil {
		return wrapWrite(err)
	}
	return nil
}

// CheckFolderTarget reports whether folderID may be placed under target.
// It walks the ancestor chain of target one parent at a time.
func (m *Mover) CheckFolderTarget(ctx context.Context, folderID int64, target *int64) error {
	if target == nil {
		return nil
	}

	visited := make(map[int64]bool)
	current := *target
	for depth := 0; ; depth++ {
		if current == folderID {
			return ErrCycle
		}
		if visited[current] || depth >= maxDepth {
			return fmt.Errorf("%w: corrupted ancestor chain at folder %d", ErrCycle, current)
		}
		visited[current] = true

		parent, err := m.store.FolderParentID(ctx, current)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				if depth == 0 {
					return fmt.Errorf("target folder %d: %w", current, err)
				}
				// Dangling ancestor: the chain ends here as if at root.
				return nil
			}
			return fmt.Errorf("%w: %w", ErrStorage, err)
		}
		if parent == nil {
			return nil
		}
		current = *parent
	}
}

// wrapWrite leaves not-found errors intact and marks the rest as storage
// failures.
func wrapWrite(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
