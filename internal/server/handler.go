package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unobserved-io/nadamark/internal/exporter"
	"github.com/unobserved-io/nadamark/internal/importer"
	"github.com/unobserved-io/nadamark/internal/model"
	"github.com/unobserved-io/nadamark/internal/mover"
	"github.com/unobserved-io/nadamark/internal/search"
	"github.com/unobserved-io/nadamark/internal/storage"
	"github.com/unobserved-io/nadamark/internal/tree"
)

// defaultSearchLimit caps search results when no limit is given.
const defaultSearchLimit = 50

// Handler serves the bookmark API.
type Handler struct {
	store  storage.Store
	mover  *mover.Mover
	logger *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(store storage.Store, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		mover:  mover.New(store),
		logger: logger,
	}
}

// fail writes err as a JSON error. Server-side failures are logged and their
// details hidden from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error, fields ...zap.Field) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		h.logger.Error(op+" failed", append(fields,
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)...)
		msg = op + " failed"
	} else {
		h.logger.Debug(op+" rejected", append(fields, zap.Error(err))...)
	}
	writeJSONError(w, r, msg, code)
}

// FolderTree handles GET /api/folder-tree.
func (h *Handler) FolderTree(w http.ResponseWriter, r *http.Request) {
	items, err := tree.Load(r.Context(), h.store, tree.Full())
	if err != nil {
		h.fail(w, r, "load tree", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// FolderBranch handles GET /api/folder-tree/{folderID}; "root" selects the
// root level.
func (h *Handler) FolderBranch(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "folderID")

	var parentID *int64
	if !strings.EqualFold(raw, "root") {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.fail(w, r, "load branch", fmt.Errorf("%w: folder id %q", errBadRequest, raw))
			return
		}
		parentID = &id
	}

	items, err := tree.Load(r.Context(), h.store, tree.Branch(parentID))
	if err != nil {
		h.fail(w, r, "load branch", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type moveRequest struct {
	ItemType       string `json:"item_type"`
	ItemID         int64  `json:"item_id"`
	TargetFolderID *int64 `json:"target_folder_id"`
}

// Move handles POST /api/move. A null target moves the item to the root.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var in moveRequest
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, "move", err)
		return
	}
	h.move(w, r, in)
}

// MoveToRoot handles POST /api/move-to-root.
func (h *Handler) MoveToRoot(w http.ResponseWriter, r *http.Request) {
	var in moveRequest
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, "move", err)
		return
	}
	in.TargetFolderID = nil
	h.move(w, r, in)
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request, in moveRequest) {
	itemType, err := model.ParseItemType(in.ItemType)
	if err != nil {
		h.fail(w, r, "move", err)
		return
	}

	fields := []zap.Field{zap.String("item_type", string(itemType)), zap.Int64("item_id", in.ItemID)}
	if in.TargetFolderID != nil {
		fields = append(fields, zap.Int64("target_folder_id", *in.TargetFolderID))
	}

	if err := h.mover.Move(r.Context(), itemType, in.ItemID, in.TargetFolderID); err != nil {
		h.fail(w, r, "move", err, fields...)
		return
	}
	h.logger.Debug("moved item", fields...)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ImportHTML handles POST /api/import-html with a raw bookmark HTML body.
func (h *Handler) ImportHTML(w http.ResponseWriter, r *http.Request) {
	result, err := importer.ImportHTML(r.Context(), h.store, r.Body)
	h.respondImport(w, r, "import html", result, err)
}

// ImportLinkwarden handles POST /api/import-linkwarden with a raw JSON body.
func (h *Handler) ImportLinkwarden(w http.ResponseWriter, r *http.Request) {
	result, err := importer.ImportLinkwarden(r.Context(), h.store, r.Body)
	h.respondImport(w, r, "import linkwarden", result, err)
}

func (h *Handler) respondImport(w http.ResponseWriter, r *http.Request, op string, result importer.Result, err error) {
	if err != nil {
		h.fail(w, r, op, err, zap.Int("folders_inserted", result.Folders))
		return
	}
	h.logger.Info(op,
		zap.Int("folders", result.Folders),
		zap.Int("bookmarks", result.Bookmarks),
		zap.Int("defaulted_timestamps", result.DefaultedTimestamps),
	)
	writeJSON(w, http.StatusOK, result)
}

// Export handles GET /api/export. An empty store yields an empty body.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := exporter.Export(r.Context(), h.store)
	if err != nil {
		h.fail(w, r, "export", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="bookmarks.html"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

// CreateFolder handles POST /api/create-folder.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var in createFolderRequest
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, "create folder", err)
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		h.fail(w, r, "create folder", fmt.Errorf("%w: name is required", errBadRequest))
		return
	}

	id, err := h.store.CreateFolder(r.Context(), model.NewFolder{Name: name, ParentID: in.ParentID})
	if err != nil {
		h.fail(w, r, "create folder", err)
		return
	}
	h.logger.Debug("created folder", zap.Int64("folder_id", id))
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type createBookmarkRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	FolderID *int64 `json:"folder_id"`
}

// CreateBookmark handles POST /api/create-bookmark. A blank name falls back
// to the URL.
func (h *Handler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	var in createBookmarkRequest
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, "create bookmark", err)
		return
	}
	url := strings.TrimSpace(in.URL)
	if url == "" {
		h.fail(w, r, "create bookmark", fmt.Errorf("%w: url is required", errBadRequest))
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = url
	}

	id, err := h.store.CreateBookmark(r.Context(), model.NewBookmark{Name: name, URL: url, FolderID: in.FolderID})
	if err != nil {
		h.fail(w, r, "create bookmark", err)
		return
	}
	h.logger.Debug("created bookmark", zap.Int64("bookmark_id", id))
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type updateFolderRequest struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

// UpdateFolder handles POST /api/update-folder. Parent changes go through
// the same cycle check as moves.
func (h *Handler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	var in updateFolderRequest
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, "update folder", err)
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		h.fail(w, r, "update folder", fmt.Errorf("%w: name is required", errBadRequest))
		return
	}

	err := h.mover.UpdateFolder(r.Context(), model.FolderUpdate{ID: in.ID, Name: name, ParentID: in.ParentID})
	if err != nil {
		h.fail(w, r, "update folder", err, zap.Int64("folder_id", in.ID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type updateBookmarkRequest struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	FolderID *int64 `json:"folder_id"`
}

// UpdateBookmark handles POST /api/update-bookmark.
func (h *Handler) UpdateBookmark(w http.ResponseWriter, r *http.Request) {
	var in updateBookmarkRequest
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, "update bookmark", err)
		return
	}
	url := strings.TrimSpace(in.URL)
	if url == "" {
		h.fail(w, r, "update bookmark", fmt.Errorf("%w: url is required", errBadRequest))
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = url
	}

	err := h.store.UpdateBookmark(r.Context(), model.BookmarkUpdate{ID: in.ID, Name: name, URL: url, FolderID: in.FolderID})
	if err != nil {
		h.fail(w, r, "update bookmark", err, zap.Int64("bookmark_id", in.ID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DeleteFolder handles POST /api/delete-folder; the body is the folder ID.
// Subfolders and bookmarks go with it.
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, "delete folder", "folder_id", h.store.DeleteFolder)
}

// DeleteBookmark handles POST /api/delete-bookmark.
func (h *Handler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, "delete bookmark", "bookmark_id", h.store.DeleteBookmark)
}

// FavoriteFolder handles POST /api/favorite-folder.
func (h *Handler) FavoriteFolder(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, "favorite folder", "folder_id", h.store.ToggleFolderFavorite)
}

// FavoriteBookmark handles POST /api/favorite-bookmark.
func (h *Handler) FavoriteBookmark(w http.ResponseWriter, r *http.Request) {
	h.byID(w, r, "favorite bookmark", "bookmark_id", h.store.ToggleBookmarkFavorite)
}

// byID decodes a bare JSON number and applies fn to it.
func (h *Handler) byID(w http.ResponseWriter, r *http.Request, op, field string, fn func(context.Context, int64) error) {
	var id int64
	if err := decodeJSON(r, &id); err != nil {
		h.fail(w, r, op, err)
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.fail(w, r, op, err, zap.Int64(field, id))
		return
	}
	h.logger.Debug(op, zap.Int64(field, id))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Search handles GET /api/search?q=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.fail(w, r, "search", fmt.Errorf("%w: limit %q", errBadRequest, raw))
			return
		}
		limit = n
	}

	snap, err := storage.Snapshot(r.Context(), h.store)
	if err != nil {
		h.fail(w, r, "search", err)
		return
	}

	results := search.FuzzySearchBookmarks(snap, query, limit)
	if results == nil {
		results = []search.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}
