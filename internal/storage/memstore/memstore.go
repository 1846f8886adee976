// Package memstore is an in-memory implementation of the storage backend.
//
// It backs the test suite and the "memory" backend mode. A mutex guards the
// maps so concurrent callers see a consistent tree, which is a property of
// this backend, not something the stores above may rely on.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/evalhub/internal/storage"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
)

type folder struct {
	meta      storage.Folder
	trashed   bool
	trashedAt time.Time
}

type file struct {
	meta      storage.File
	content   []byte
	trashedAt time.Time
}

// Store is an in-memory storage.Backend.
type Store struct {
	mu      sync.Mutex
	folders map[string]*folder
	files   map[string]*file
	order   []string // file ids in insertion order

	// failing simulates an unreachable backend when set (tests only).
	failing error

	now func() time.Time
}

// New returns an empty in-memory tree.
func New() *Store {
	return &Store{
		folders: make(map[string]*folder),
		files:   make(map[string]*file),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests use it to pin timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Fail makes every subsequent operation return err, simulating an
// unreachable backend. Pass nil to recover.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = err
}

func (s *Store) findFolderLocked(parentID, name string) *folder {
	for _, f := range s.folders {
		if f.trashed {
			continue
		}
		if f.meta.ParentID == parentID && f.meta.Name == name {
			return f
		}
	}
	return nil
}

func (s *Store) EnsureFolder(ctx context.Context, parentID, name string) (storage.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return storage.Folder{}, s.failing
	}
	if f := s.findFolderLocked(parentID, name); f != nil {
		return f.meta, nil
	}
	f := &folder{meta: storage.Folder{
		ID:        uuid.NewString(),
		Name:      name,
		ParentID:  parentID,
		CreatedAt: s.now().UTC(),
	}}
	s.folders[f.meta.ID] = f
	return f.meta, nil
}

func (s *Store) FindFolder(ctx context.Context, parentID, name string) (storage.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return storage.Folder{}, s.failing
	}
	if f := s.findFolderLocked(parentID, name); f != nil {
		return f.meta, nil
	}
	return storage.Folder{}, storage.ErrNotFound
}

func (s *Store) ListFiles(ctx context.Context, folderID string) ([]storage.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return nil, s.failing
	}
	var out []storage.File
	for _, id := range s.order {
		f := s.files[id]
		if f.meta.Trashed || f.meta.FolderID != folderID {
			continue
		}
		out = append(out, f.meta)
	}
	return out, nil
}

func (s *Store) WriteFile(ctx context.Context, folderID, name string, data []byte) (storage.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return storage.File{}, s.failing
	}
	now := s.now().UTC()
	for _, id := range s.order {
		f := s.files[id]
		if f.meta.Trashed || f.meta.FolderID != folderID || f.meta.Name != name {
			continue
		}
		f.content = append([]byte(nil), data...)
		f.meta.ModifiedAt = now
		return f.meta, nil
	}
	f := &file{
		meta: storage.File{
			ID:         uuid.NewString(),
			Name:       name,
			FolderID:   folderID,
			CreatedAt:  now,
			ModifiedAt: now,
		},
		content: append([]byte(nil), data...),
	}
	s.files[f.meta.ID] = f
	s.order = append(s.order, f.meta.ID)
	return f.meta, nil
}

func (s *Store) ReadFile(ctx context.Context, fileID string) (storage.File, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return storage.File{}, nil, s.failing
	}
	f, ok := s.files[fileID]
	if !ok || f.meta.Trashed {
		return storage.File{}, nil, storage.ErrNotFound
	}
	return f.meta, append([]byte(nil), f.content...), nil
}

func (s *Store) Trash(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return s.failing
	}
	if f, ok := s.files[itemID]; ok && !f.meta.Trashed {
		f.meta.Trashed = true
		f.trashedAt = s.now()
		return nil
	}
	if f, ok := s.folders[itemID]; ok && !f.trashed {
		s.trashFolderLocked(itemID)
		return nil
	}
	return storage.ErrNotFound
}

// trashFolderLocked trashes a folder and everything reachable under it.
func (s *Store) trashFolderLocked(folderID string) {
	now := s.now()
	s.folders[folderID].trashed = true
	s.folders[folderID].trashedAt = now
	for _, f := range s.files {
		if f.meta.FolderID == folderID {
			f.meta.Trashed = true
			f.trashedAt = now
		}
	}
	for id, f := range s.folders {
		if !f.trashed && f.meta.ParentID == folderID {
			s.trashFolderLocked(id)
		}
	}
}

// PurgeTrashed permanently removes trashed files and folders whose trash
// time is before cutoff, returning the number of items removed.
func (s *Store) PurgeTrashed(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return 0, s.failing
	}
	var removed int
	for id, f := range s.files {
		if f.meta.Trashed && f.trashedAt.Before(cutoff) {
			delete(s.files, id)
			removed++
		}
	}
	if removed > 0 {
		kept := s.order[:0]
		for _, id := range s.order {
			if _, ok := s.files[id]; ok {
				kept = append(kept, id)
			}
		}
		s.order = kept
	}
	for id, f := range s.folders {
		if f.trashed && f.trashedAt.Before(cutoff) {
			delete(s.folders, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) SearchFiles(ctx context.Context, nameContains string) ([]storage.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return nil, s.failing
	}
	token := text.Fold(nameContains)
	var out []storage.File
	for _, id := range s.order {
		f := s.files[id]
		if f.meta.Trashed {
			continue
		}
		if strings.Contains(text.Fold(f.meta.Name), token) {
			out = append(out, f.meta)
		}
	}
	return out, nil
}
