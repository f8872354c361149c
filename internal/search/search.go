package search

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/unobserved-io/nadamark/internal/model"
)

// SearchResult represents a fuzzy search match.
type SearchResult struct {
	Bookmark       *model.Bookmark `json:"bookmark"`
	Path           string          `json:"path"`
	MatchedIndexes []int           `json:"matched_indexes"`
	Score          int             `json:"score"`
}

// bookmarkNames implements fuzzy.Source for bookmark slice.
type bookmarkNames []*model.Bookmark

func (bn bookmarkNames) String(i int) string {
	return bn[i].Name
}

func (bn bookmarkNames) Len() int {
	return len(bn)
}

// FuzzySearchBookmarks searches all bookmarks by name using fuzzy matching.
// Returns results sorted by match score (best first), at most limit results
// when limit is positive.
func FuzzySearchBookmarks(store *model.Store, query string, limit int) []SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	bookmarks := make(bookmarkNames, len(store.Bookmarks))
	for i := range store.Bookmarks {
		bookmarks[i] = &store.Bookmarks[i]
	}

	matches := fuzzy.FindFrom(query, bookmarks)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	paths := newPathResolver(store)
	results := make([]SearchResult, len(matches))
	for i, m := range matches {
		b := bookmarks[m.Index]
		results[i] = SearchResult{
			Bookmark:       b,
			Path:           paths.path(b.FolderID),
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}

// FolderPath returns the slash-separated names from the root down to
// folderID, or "" for the root level.
func FolderPath(store *model.Store, folderID *int64) string {
	return newPathResolver(store).path(folderID)
}

type pathResolver struct {
	folders map[int64]model.Folder
}

func newPathResolver(store *model.Store) pathResolver {
	folders := make(map[int64]model.Folder, len(store.Folders))
	for _, f := range store.Folders {
		folders[f.ID] = f
	}
	return pathResolver{folders: folders}
}

func (r pathResolver) path(folderID *int64) string {
	var names []string
	seen := map[int64]bool{}
	for id := folderID; id != nil && !seen[*id]; {
		f, ok := r.folders[*id]
		if !ok {
			break
		}
		seen[*id] = true
		names = append(names, f.Name)
		id = f.ParentID
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, " / ")
}
