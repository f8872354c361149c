package model

import (
	"errors"
	"fmt"
	"strings"
)

// ItemType distinguishes folders from bookmarks in move requests.
type ItemType string

const (
	ItemFolder   ItemType = "folder"
	ItemBookmark ItemType = "bookmark"
)

// ErrInvalidItemType is returned for anything that is not a folder or bookmark.
var ErrInvalidItemType = errors.New("invalid item type")

// ParseItemType parses the wire form of an item type. Matching is
// case-insensitive.
func ParseItemType(s string) (ItemType, error) {
	switch ItemType(strings.ToLower(strings.TrimSpace(s))) {
	case ItemFolder:
		return ItemFolder, nil
	case ItemBookmark:
		return ItemBookmark, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidItemType, s)
}

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	return t == ItemFolder || t == ItemBookmark
}
