package mcptools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unobserved-io/nadamark/internal/model"
	"github.com/unobserved-io/nadamark/internal/storage"
)

func idPtr(id int64) *int64 { return &id }

func newTestTools(t *testing.T, seed bool) *Tools {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "nadamark.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if seed {
		ctx := context.Background()
		require.NoError(t, store.InsertFolders(ctx, []model.Folder{
			{ID: 1, Name: "Work", Favorite: true},
			{ID: 2, Name: "Archive", ParentID: idPtr(1)},
		}))
		require.NoError(t, store.InsertBookmarks(ctx, []model.Bookmark{
			{ID: 1, Name: "Go Docs", URL: "https://go.dev/doc", FolderID: idPtr(2)},
			{ID: 2, Name: "Example", URL: "https://example.com"},
		}))
	}
	return New(store, "test")
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestFormatTree(t *testing.T) {
	tests := []struct {
		name     string
		items    model.RootItems
		contains []string
	}{
		{
			name:     "Empty tree",
			items:    model.RootItems{},
			contains: []string{"# Bookmarks", "No bookmarks found."},
		},
		{
			name: "Nested folders",
			items: model.RootItems{
				RootFolders: []model.FolderNode{{
					Folder: model.Folder{ID: 1, Name: "Work", Favorite: true},
					Children: []model.FolderNode{{
						Folder:    model.Folder{ID: 2, Name: "Archive"},
						Bookmarks: []model.Bookmark{{Name: "Old", URL: "https://old.example"}},
					}},
				}},
				RootBookmarks: []model.Bookmark{{Name: "Top", URL: "https://top.example"}},
			},
			contains: []string{
				"- **Work** (folder 1) ★\n",
				"  - **Archive** (folder 2)\n",
				"    - [Old](https://old.example)\n",
				"- [Top](https://top.example)\n",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatTree(tt.items, "Bookmarks")
			for _, expected := range tt.contains {
				assert.Contains(t, result, expected)
			}
		})
	}
}

func TestHandleFolderTree(t *testing.T) {
	tools := newTestTools(t, true)
	ctx := context.Background()

	result, err := tools.handleFolderTree(ctx, callRequest(nil))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "**Work**")
	assert.Contains(t, text, "[Example](https://example.com)")

	result, err = tools.handleFolderTree(ctx, callRequest(map[string]any{"folder_id": float64(1)}))
	require.NoError(t, err)
	text = resultText(t, result)
	assert.Contains(t, text, "# Folder 1")
	assert.Contains(t, text, "**Archive**")
	assert.NotContains(t, text, "Example")

	result, err = tools.handleFolderTree(ctx, callRequest(map[string]any{"root": true}))
	require.NoError(t, err)
	text = resultText(t, result)
	assert.Contains(t, text, "# Root")
	assert.Contains(t, text, "- **Work** (folder 1)")
	assert.Contains(t, text, "[Example](https://example.com)")
	assert.NotContains(t, text, "Archive", "root branch lists only root-level items")
}

func TestHandleSearch(t *testing.T) {
	tools := newTestTools(t, true)
	ctx := context.Background()

	result, err := tools.handleSearch(ctx, callRequest(map[string]any{"query": "docs"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, "## Go Docs")
	assert.Contains(t, text, "- **Folder**: Work / Archive")

	result, err = tools.handleSearch(ctx, callRequest(map[string]any{"query": "  "}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = tools.handleSearch(ctx, callRequest(map[string]any{"query": "zzzz"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "No bookmarks found.")
}

func TestHandleExport(t *testing.T) {
	empty := newTestTools(t, false)
	result, err := empty.handleExport(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "No bookmarks to export.", resultText(t, result))

	tools := newTestTools(t, true)
	result, err = tools.handleExport(context.Background(), callRequest(nil))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "<!DOCTYPE NETSCAPE-Bookmark-file-1>")
	assert.Contains(t, text, `<A HREF="https://go.dev/doc"`)
}

func TestHandleTreeResource(t *testing.T) {
	tools := newTestTools(t, true)

	var req mcp.ReadResourceRequest
	req.Params.URI = "bookmarks://tree"
	contents, err := tools.handleTreeResource(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "bookmarks://tree", text.URI)
	assert.Contains(t, text.Text, "**Archive**")
}
