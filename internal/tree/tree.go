// Package tree turns flat folder and bookmark records into the nested view
// served to clients.
package tree

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/unobserved-io/nadamark/internal/model"
)

// Scope selects which part of the hierarchy a view is rooted at.
type Scope struct {
	branch   bool
	parentID *int64
}

// Full scopes a view to the entire store.
func Full() Scope {
	return Scope{}
}

// Branch scopes a view to the direct contents of parentID; nil is the root
// level.
func Branch(parentID *int64) Scope {
	return Scope{branch: true, parentID: parentID}
}

// IsBranch reports whether the scope is a single branch.
func (s Scope) IsBranch() bool {
	return s.branch
}

// ParentID returns the branch parent, nil for the root level or full scope.
func (s Scope) ParentID() *int64 {
	return s.parentID
}

// Source is the read side of the record store used to load views.
type Source interface {
	AllFolders(ctx context.Context) ([]model.Folder, error)
	AllBookmarks(ctx context.Context) ([]model.Bookmark, error)
	ChildFolders(ctx context.Context, parentID *int64) ([]model.Folder, error)
	ChildBookmarks(ctx context.Context, folderID *int64) ([]model.Bookmark, error)
}

// Load reads the records a scope needs and builds the view. A full scope
// reads everything; a branch reads only the direct children of its parent.
func Load(ctx context.Context, src Source, scope Scope) (model.RootItems, error) {
	var (
		folders   []model.Folder
		bookmarks []model.Bookmark
		err       error
	)

	if scope.branch {
		folders, err = src.ChildFolders(ctx, scope.parentID)
		if err != nil {
			return model.RootItems{}, fmt.Errorf("load child folders: %w", err)
		}
		bookmarks, err = src.ChildBookmarks(ctx, scope.parentID)
		if err != nil {
			return model.RootItems{}, fmt.Errorf("load child bookmarks: %w", err)
		}
	} else {
		folders, err = src.AllFolders(ctx)
		if err != nil {
			return model.RootItems{}, fmt.Errorf("load folders: %w", err)
		}
		bookmarks, err = src.AllBookmarks(ctx)
		if err != nil {
			return model.RootItems{}, fmt.Errorf("load bookmarks: %w", err)
		}
	}

	return Build(folders, bookmarks, scope), nil
}

type node struct {
	folder    model.Folder
	children  []*node
	bookmarks []model.Bookmark
	parent    *node
}

// isAncestor reports whether a is n or one of n's attached ancestors.
func isAncestor(a, n *node) bool {
	for p := n; p != nil; p = p.parent {
		if p == a {
			return true
		}
	}
	return false
}

// Build assembles folders and bookmarks into a sorted tree. It never fails:
// dangling references float to the root in full scope and are dropped as
// out of scope in a branch; cycles in corrupted data are broken by leaving
// the offending folder at the root.
func Build(folders []model.Folder, bookmarks []model.Bookmark, scope Scope) model.RootItems {
	nodes := make(map[int64]*node, len(folders))
	order := make([]*node, 0, len(folders))
	for _, f := range folders {
		if _, dup := nodes[f.ID]; dup {
			continue
		}
		n := &node{folder: f}
		nodes[f.ID] = n
		order = append(order, n)
	}

	// atScopeRoot reports whether a reference points at the view's root.
	atScopeRoot := func(ref *int64) bool {
		return model.SameParent(ref, scope.parentID)
	}

	var rootBookmarks []model.Bookmark
	for _, b := range bookmarks {
		if b.FolderID != nil {
			if owner, ok := nodes[*b.FolderID]; ok {
				owner.bookmarks = append(owner.bookmarks, b)
				continue
			}
		}
		if !scope.branch || atScopeRoot(b.FolderID) {
			rootBookmarks = append(rootBookmarks, b)
		}
	}

	var roots []*node
	for _, n := range order {
		ref := n.folder.ParentID
		if ref != nil {
			if parent, ok := nodes[*ref]; ok && !isAncestor(n, parent) {
				n.parent = parent
				parent.children = append(parent.children, n)
				continue
			}
		}
		// A present parent here means the attachment was refused as a cycle.
		if !scope.branch || atScopeRoot(ref) || (ref != nil && nodes[*ref] != nil) {
			roots = append(roots, n)
		}
	}

	var toFolderNode func(n *node) model.FolderNode
	toFolderNode = func(n *node) model.FolderNode {
		fn := model.FolderNode{
			Folder:    n.folder,
			Children:  make([]model.FolderNode, 0, len(n.children)),
			Bookmarks: sortedBookmarks(n.bookmarks),
		}
		for _, c := range n.children {
			fn.Children = append(fn.Children, toFolderNode(c))
		}
		sortFolderNodes(fn.Children)
		return fn
	}

	items := model.RootItems{
		RootFolders:   make([]model.FolderNode, 0, len(roots)),
		RootBookmarks: sortedBookmarks(rootBookmarks),
	}
	for _, n := range roots {
		items.RootFolders = append(items.RootFolders, toFolderNode(n))
	}
	sortFolderNodes(items.RootFolders)

	return items
}

func lowerName(s string) string {
	return strings.ToLower(s)
}

func sortFolderNodes(nodes []model.FolderNode) {
	slices.SortStableFunc(nodes, func(a, b model.FolderNode) int {
		return cmp.Compare(lowerName(a.Name), lowerName(b.Name))
	})
}

func sortedBookmarks(bookmarks []model.Bookmark) []model.Bookmark {
	out := make([]model.Bookmark, len(bookmarks))
	copy(out, bookmarks)
	slices.SortStableFunc(out, func(a, b model.Bookmark) int {
		return cmp.Compare(lowerName(a.Name), lowerName(b.Name))
	})
	return out
}
