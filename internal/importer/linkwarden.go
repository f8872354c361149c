package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/unobserved-io/nadamark/internal/model"
)

// untitled names links exported without one.
const untitled = "Untitled"

type linkwardenExport struct {
	Collections []linkwardenCollection `json:"collections"`
}

type linkwardenCollection struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	ParentID  *int64           `json:"parentId"`
	CreatedAt string           `json:"createdAt"`
	Links     []linkwardenLink `json:"links"`
}

type linkwardenLink struct {
	URL       string `json:"url"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// ParseLinkwarden decodes a Linkwarden JSON backup. Each collection becomes
// a folder and each link a bookmark inside it. Collection IDs are remapped
// onto seq; a parentId missing from the document places the folder at root.
func ParseLinkwarden(r io.Reader, seq *Sequence) (Parsed, error) {
	var doc linkwardenExport
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Parsed{}, fmt.Errorf("%w: linkwarden json: %w", ErrParse, err)
	}

	parsed := Parsed{
		Folders:   make([]model.Folder, 0, len(doc.Collections)),
		Bookmarks: []model.Bookmark{},
	}

	// First pass assigns local IDs so parents may appear after children.
	localIDs := make(map[int64]int64, len(doc.Collections))
	for _, c := range doc.Collections {
		if _, dup := localIDs[c.ID]; dup {
			continue
		}
		localIDs[c.ID] = seq.NextFolderID()
	}

	seen := make(map[int64]bool, len(doc.Collections))
	for _, c := range doc.Collections {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		folderID := localIDs[c.ID]

		var parentID *int64
		if c.ParentID != nil {
			if id, ok := localIDs[*c.ParentID]; ok && id != folderID {
				parentID = &id
			}
		}

		created, defaulted := parseRFC3339(c.CreatedAt)
		if defaulted {
			parsed.DefaultedTimestamps++
		}
		parsed.Folders = append(parsed.Folders, model.Folder{
			ID:       folderID,
			Name:     strings.TrimSpace(c.Name),
			Created:  created,
			ParentID: parentID,
		})

		for _, l := range c.Links {
			url := strings.TrimSpace(l.URL)
			if url == "" {
				continue
			}
			name := strings.TrimSpace(l.Name)
			if name == "" {
				name = untitled
			}
			created, defaulted := parseRFC3339(l.CreatedAt)
			if defaulted {
				parsed.DefaultedTimestamps++
			}
			parsed.Bookmarks = append(parsed.Bookmarks, model.Bookmark{
				ID:       seq.NextBookmarkID(),
				Name:     name,
				URL:      url,
				Created:  created,
				FolderID: &folderID,
			})
		}
	}

	return parsed, nil
}

// ImportLinkwarden decodes a Linkwarden backup and inserts its contents into
// store. Nothing is inserted when parsing fails.
func ImportLinkwarden(ctx context.Context, store Target, r io.Reader) (Result, error) {
	seq, err := SequenceFrom(ctx, store)
	if err != nil {
		return Result{}, err
	}
	parsed, err := ParseLinkwarden(r, seq)
	if err != nil {
		return Result{}, err
	}
	return insert(ctx, store, parsed)
}

func parseRFC3339(raw string) (time.Time, bool) {
	if raw == "" {
		return now(), true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return now(), true
	}
	return t.UTC(), false
}
