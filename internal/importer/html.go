// Package importer decodes bookmark collections from other tools into flat
// folder and bookmark records ready for bulk insertion.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/unobserved-io/nadamark/internal/model"
)

// ErrParse wraps any failure to decode an import document.
var ErrParse = errors.New("parse import")

// now is the fallback clock for records without a usable timestamp.
var now = func() time.Time { return time.Now().UTC().Truncate(time.Second) }

// Parsed is the decoded content of one import document.
type Parsed struct {
	Folders   []model.Folder
	Bookmarks []model.Bookmark
	// DefaultedTimestamps counts records whose created time fell back to now.
	DefaultedTimestamps int
}

// ParseHTMLBookmarks parses Netscape bookmark HTML into folders and bookmarks
// with IDs drawn from seq. Folders are decoded before bookmarks, each in
// document order, so parents always precede their children.
func ParseHTMLBookmarks(r io.Reader, seq *Sequence) (Parsed, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Parsed{}, fmt.Errorf("%w: html: %w", ErrParse, err)
	}

	var headers, anchors []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case isElement(n, "h3") && isElement(n.Parent, "dt") && isElement(n.Parent.Parent, "dl"):
				headers = append(headers, n)
			case isElement(n, "a") && isElement(n.Parent, "dt") && getAttr(n, "href") != "":
				anchors = append(anchors, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(doc)

	parsed := Parsed{
		Folders:   make([]model.Folder, 0, len(headers)),
		Bookmarks: make([]model.Bookmark, 0, len(anchors)),
	}

	// Folder IDs keyed by the exact H3 node they were decoded from, so two
	// folders sharing a name never get confused.
	folderIDs := make(map[*html.Node]int64, len(headers))
	parentOf := func(n *html.Node) *int64 {
		header := enclosingHeader(n)
		if header == nil {
			return nil
		}
		if id, ok := folderIDs[header]; ok {
			return &id
		}
		return nil
	}

	for _, h := range headers {
		created, defaulted := addDate(h)
		if defaulted {
			parsed.DefaultedTimestamps++
		}
		folder := model.Folder{
			ID:       seq.NextFolderID(),
			Name:     getTextContent(h),
			Created:  created,
			ParentID: parentOf(h),
		}
		folderIDs[h] = folder.ID
		parsed.Folders = append(parsed.Folders, folder)
	}

	for _, a := range anchors {
		href := getAttr(a, "href")
		name := getTextContent(a)
		if name == "" {
			name = href // fallback to URL as title
		}

		created, defaulted := addDate(a)
		if defaulted {
			parsed.DefaultedTimestamps++
		}

		parsed.Bookmarks = append(parsed.Bookmarks, model.Bookmark{
			ID:         seq.NextBookmarkID(),
			Name:       name,
			URL:        href,
			Favicon:    optionalAttr(a, "icon"),
			FaviconURL: optionalAttr(a, "icon_uri"),
			Created:    created,
			FolderID:   parentOf(a),
		})
	}

	return parsed, nil
}

// ImportHTML decodes a bookmark HTML document and inserts its contents into
// store. Nothing is inserted when parsing fails.
func ImportHTML(ctx context.Context, store Target, r io.Reader) (Result, error) {
	seq, err := SequenceFrom(ctx, store)
	if err != nil {
		return Result{}, err
	}
	parsed, err := ParseHTMLBookmarks(r, seq)
	if err != nil {
		return Result{}, err
	}
	return insert(ctx, store, parsed)
}

// enclosingHeader finds the H3 that names the folder containing n: the header
// belonging to the nearest ancestor DL.
func enclosingHeader(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if isElement(p, "dl") {
			return dlHeader(p)
		}
	}
	return nil
}

// dlHeader returns the H3 a DL list belongs to. Parsers nest the list inside
// the DT holding the header; a list placed after its DT is handled too.
func dlHeader(dl *html.Node) *html.Node {
	if isElement(dl.Parent, "dt") {
		if h := firstChildElement(dl.Parent, "h3"); h != nil {
			return h
		}
	}
	for s := dl.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type != html.ElementNode {
			continue
		}
		if isElement(s, "h3") {
			return s
		}
		if isElement(s, "dt") {
			return firstChildElement(s, "h3")
		}
		return nil
	}
	return nil
}

func firstChildElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, tag) {
			return c
		}
	}
	return nil
}

func isElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && strings.EqualFold(n.Data, tag)
}

// Timestamps outside years 0 through 9999 cannot be stored as RFC3339 or
// JSON, so they count as invalid.
var (
	minUnix = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxUnix = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC).Unix()
)

// addDate parses the ADD_DATE attribute (Unix seconds). The second result
// reports whether the fallback clock was used.
func addDate(n *html.Node) (time.Time, bool) {
	if raw := strings.TrimSpace(getAttr(n, "add_date")); raw != "" {
		if ts, err := strconv.ParseInt(raw, 10, 64); err == nil && ts >= minUnix && ts <= maxUnix {
			return time.Unix(ts, 0).UTC(), false
		}
	}
	return now(), true
}

func optionalAttr(n *html.Node, key string) *string {
	if v := getAttr(n, key); v != "" {
		return &v
	}
	return nil
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
