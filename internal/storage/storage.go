// Package storage defines the folder/file tree contract that the record
// stores are written against.
//
// The backend is a remote, non-transactional tree of named folders holding
// named byte blobs. EvalHub depends on exactly the seven operations below;
// everything else (identity scheme, consistency, search implementation) is
// the backend's business. Ids are opaque stable strings.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a folder or file does not exist (or has been
// trashed). It is the only error reads are expected to branch on.
var ErrNotFound = errors.New("storage: item not found")

// RootFolderID addresses the top of the tree. Folders created directly under
// the root carry it as their ParentID.
const RootFolderID = ""

// Folder is a named container in the tree.
type Folder struct {
	ID        string
	Name      string
	ParentID  string
	CreatedAt time.Time
}

// File is the metadata of a stored blob. Content is fetched separately via
// ReadFile so that listings stay cheap.
type File struct {
	ID         string
	Name       string
	FolderID   string
	CreatedAt  time.Time
	ModifiedAt time.Time
	Trashed    bool
}

// Backend is the seven-operation storage contract.
//
// Trashed items are invisible to FindFolder, ListFiles, and SearchFiles.
// WriteFile overwrites by name within a folder; the file keeps its id and
// CreatedAt, and ModifiedAt is bumped. No operation is transactional and no
// two operations are isolated from concurrent callers.
type Backend interface {
	// EnsureFolder returns the folder named name under parentID, creating
	// it first if it does not exist.
	EnsureFolder(ctx context.Context, parentID, name string) (Folder, error)

	// FindFolder returns the folder named name under parentID, or
	// ErrNotFound.
	FindFolder(ctx context.Context, parentID, name string) (Folder, error)

	// ListFiles returns metadata for all live files in a folder, in the
	// backend's insertion order.
	ListFiles(ctx context.Context, folderID string) ([]File, error)

	// WriteFile creates or overwrites the file named name in folderID.
	WriteFile(ctx context.Context, folderID, name string, data []byte) (File, error)

	// ReadFile returns a file's metadata and content. Trashed files are
	// ErrNotFound.
	ReadFile(ctx context.Context, fileID string) (File, []byte, error)

	// Trash soft-deletes a file or folder (folders recursively). The item
	// remains in the backend but disappears from reads.
	Trash(ctx context.Context, itemID string) error

	// SearchFiles returns all live files anywhere in the tree whose name
	// contains the given token, case-insensitively.
	SearchFiles(ctx context.Context, nameContains string) ([]File, error)
}
