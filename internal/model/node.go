package model

// FolderNode is a folder together with its nested children and the bookmarks
// it directly contains. It is built per read and never persisted.
type FolderNode struct {
	Folder
	Children  []FolderNode `json:"children"`
	Bookmarks []Bookmark   `json:"bookmarks"`
}

// RootItems is the top-level view served to clients.
type RootItems struct {
	RootFolders   []FolderNode `json:"root_folders"`
	RootBookmarks []Bookmark   `json:"root_bookmarks"`
}

// IsEmpty reports whether the view holds no folders and no bookmarks.
func (r RootItems) IsEmpty() bool {
	return len(r.RootFolders) == 0 && len(r.RootBookmarks) == 0
}

// AllBookmarks flattens the view into a depth-first list of bookmarks,
// root bookmarks first.
func (r RootItems) AllBookmarks() []Bookmark {
	bookmarks := append([]Bookmark{}, r.RootBookmarks...)

	var collect func(n FolderNode)
	collect = func(n FolderNode) {
		bookmarks = append(bookmarks, n.Bookmarks...)
		for _, child := range n.Children {
			collect(child)
		}
	}
	for _, f := range r.RootFolders {
		collect(f)
	}
	return bookmarks
}

// AllFolders flattens the view into a depth-first list of folders.
func (r RootItems) AllFolders() []Folder {
	var folders []Folder

	var collect func(n FolderNode)
	collect = func(n FolderNode) {
		folders = append(folders, n.Folder)
		for _, child := range n.Children {
			collect(child)
		}
	}
	for _, f := range r.RootFolders {
		collect(f)
	}
	return folders
}
