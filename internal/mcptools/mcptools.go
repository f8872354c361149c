// Package mcptools serves the bookmark store to agents over the Model
// Context Protocol.
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/unobserved-io/nadamark/internal/exporter"
	"github.com/unobserved-io/nadamark/internal/model"
	"github.com/unobserved-io/nadamark/internal/search"
	"github.com/unobserved-io/nadamark/internal/storage"
	"github.com/unobserved-io/nadamark/internal/tree"
)

const defaultSearchLimit = 20

// Tools holds the MCP handlers and the server they are registered on.
type Tools struct {
	store     storage.Store
	mcpServer *server.MCPServer
}

// New creates an MCP server with every bookmark tool registered.
func New(store storage.Store, version string) *Tools {
	t := &Tools{store: store}
	t.mcpServer = server.NewMCPServer(
		"nadamark",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	t.registerTools()
	t.registerResources()
	return t
}

// Server returns the underlying MCP server.
func (t *Tools) Server() *server.MCPServer {
	return t.mcpServer
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (t *Tools) ServeStdio() error {
	return server.ServeStdio(t.mcpServer)
}

func (t *Tools) registerTools() {
	treeTool := mcp.NewTool("get_folder_tree",
		mcp.WithDescription("Show the folder tree with bookmarks. Omit folder_id and root for the whole tree."),
		mcp.WithNumber("folder_id",
			mcp.Description("Only show the contents of this folder"),
		),
		mcp.WithBoolean("root",
			mcp.Description("Only show root-level folders and bookmarks"),
		),
	)
	t.mcpServer.AddTool(treeTool, t.handleFolderTree)

	searchTool := mcp.NewTool("search_bookmarks",
		mcp.WithDescription("Fuzzy search bookmark names"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default 20)"),
		),
	)
	t.mcpServer.AddTool(searchTool, t.handleSearch)

	exportTool := mcp.NewTool("export_bookmarks",
		mcp.WithDescription("Export every bookmark as a Netscape bookmark HTML document"),
	)
	t.mcpServer.AddTool(exportTool, t.handleExport)
}

func (t *Tools) registerResources() {
	treeResource := mcp.NewResource("bookmarks://tree",
		"Bookmark tree",
		mcp.WithMIMEType("text/markdown"),
		mcp.WithResourceDescription("All folders and bookmarks"),
	)
	t.mcpServer.AddResource(treeResource, t.handleTreeResource)
}

func (t *Tools) handleFolderTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scope := tree.Full()
	title := "Bookmarks"
	if id := int64(request.GetFloat("folder_id", 0)); id > 0 {
		scope = tree.Branch(&id)
		title = fmt.Sprintf("Folder %d", id)
	} else if request.GetBool("root", false) {
		scope = tree.Branch(nil)
		title = "Root"
	}

	items, err := tree.Load(ctx, t.store, scope)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load folder tree: %v", err)), nil
	}
	return mcp.NewToolResultText(formatTree(items, title)), nil
}

func (t *Tools) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := strings.TrimSpace(request.GetString("query", ""))
	if query == "" {
		return mcp.NewToolResultError("query parameter required"), nil
	}
	limit := int(request.GetFloat("limit", defaultSearchLimit))
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	snap, err := storage.Snapshot(ctx, t.store)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to search bookmarks: %v", err)), nil
	}
	results := search.FuzzySearchBookmarks(snap, query, limit)
	return mcp.NewToolResultText(formatResults(results, query)), nil
}

func (t *Tools) handleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := exporter.Export(ctx, t.store)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to export bookmarks: %v", err)), nil
	}
	if doc == "" {
		return mcp.NewToolResultText("No bookmarks to export."), nil
	}
	return mcp.NewToolResultText(doc), nil
}

func (t *Tools) handleTreeResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	items, err := tree.Load(ctx, t.store, tree.Full())
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/markdown",
			Text:     formatTree(items, "Bookmarks"),
		},
	}, nil
}

// formatTree renders items as a nested markdown list.
func formatTree(items model.RootItems, title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if items.IsEmpty() {
		b.WriteString("No bookmarks found.")
		return b.String()
	}
	writeTreeLevel(&b, items.RootFolders, items.RootBookmarks, 0)
	return b.String()
}

func writeTreeLevel(b *strings.Builder, folders []model.FolderNode, bookmarks []model.Bookmark, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range folders {
		star := ""
		if f.Favorite {
			star = " ★"
		}
		fmt.Fprintf(b, "%s- **%s** (folder %d)%s\n", indent, f.Name, f.ID, star)
		writeTreeLevel(b, f.Children, f.Bookmarks, depth+1)
	}
	for _, bm := range bookmarks {
		fmt.Fprintf(b, "%s- [%s](%s)\n", indent, bm.Name, bm.URL)
	}
}

// formatResults renders search results as markdown.
func formatResults(results []search.SearchResult, query string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Search results: '%s'\n\n", query)
	if len(results) == 0 {
		b.WriteString("No bookmarks found.")
		return b.String()
	}

	fmt.Fprintf(&b, "%d bookmarks\n", len(results))
	for _, r := range results {
		fmt.Fprintf(&b, "\n## %s\n", r.Bookmark.Name)
		fmt.Fprintf(&b, "- **URL**: %s\n", r.Bookmark.URL)
		if r.Path != "" {
			fmt.Fprintf(&b, "- **Folder**: %s\n", r.Path)
		}
	}
	return b.String()
}
