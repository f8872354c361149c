package exporter

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/unobserved-io/nadamark/internal/model"
	"github.com/unobserved-io/nadamark/internal/tree"
)

const header = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<!-- This is an automatically generated file.
     It will be read and overwritten.
     DO NOT EDIT! -->
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
`

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/nadamark-export-YYYY-MM-DD.html
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("nadamark-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// Export loads the full tree from src and renders it as bookmark HTML.
func Export(ctx context.Context, src tree.Source) (string, error) {
	items, err := tree.Load(ctx, src, tree.Full())
	if err != nil {
		return "", err
	}
	return ExportHTML(items), nil
}

// ExportHTML renders a tree in Netscape bookmark HTML format. An empty tree
// renders as the empty string.
func ExportHTML(items model.RootItems) string {
	if items.IsEmpty() {
		return ""
	}

	var b strings.Builder
	b.WriteString(header)
	writeLevel(&b, items.RootFolders, items.RootBookmarks, 0)
	return b.String()
}

// writeLevel writes one <DL> list. Levels without children are omitted.
func writeLevel(b *strings.Builder, folders []model.FolderNode, bookmarks []model.Bookmark, depth int) {
	if len(folders) == 0 && len(bookmarks) == 0 {
		return
	}

	outer := strings.Repeat("\t", depth)
	inner := strings.Repeat("\t", depth+1)

	fmt.Fprintf(b, "%s<DL><p>\n", outer)

	for _, folder := range folders {
		fmt.Fprintf(b, "%s<DT><H3 ADD_DATE=\"%d\">%s</H3>\n",
			inner,
			folder.Created.Unix(),
			html.EscapeString(folder.Name),
		)
		writeLevel(b, folder.Children, folder.Bookmarks, depth+1)
	}

	for _, bookmark := range bookmarks {
		var icons strings.Builder
		if bookmark.Favicon != nil {
			fmt.Fprintf(&icons, " ICON=\"%s\"", html.EscapeString(*bookmark.Favicon))
		}
		if bookmark.FaviconURL != nil {
			fmt.Fprintf(&icons, " ICON_URI=\"%s\"", html.EscapeString(*bookmark.FaviconURL))
		}
		fmt.Fprintf(b, "%s<DT><A HREF=\"%s\" ADD_DATE=\"%d\"%s>%s</A>\n",
			inner,
			html.EscapeString(bookmark.URL),
			bookmark.Created.Unix(),
			icons.String(),
			html.EscapeString(bookmark.Name),
		)
	}

	fmt.Fprintf(b, "%s</DL><p>\n", outer)
}
