// Package docs is the record store: CRUD over structured records addressed
// by (namespace, kind), with tiered lookup on reads and canonical-only
// writes.
//
// Error policy (deliberate, see taxonomy below): writes always propagate
// failures, reads never do. A read that hits a backend failure degrades to
// "not found" / empty so callers can always render a consistent view.
package docs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/evalhub/internal/app/store/paths"
	"github.com/dalemusser/evalhub/internal/app/store/resolve"
	"github.com/dalemusser/evalhub/internal/app/system/limits"
	"github.com/dalemusser/evalhub/internal/storage"
	"go.uber.org/zap"
)

var (
	// ErrNotFound covers a missing record and, by the degrade policy, any
	// backend failure on a read path.
	ErrNotFound = errors.New("docs: record not found")

	// ErrInvalidPayload is returned before any write when required schema
	// fields are absent.
	ErrInvalidPayload = errors.New("docs: invalid payload")

	// ErrStorageUnavailable wraps backend failures on write paths.
	ErrStorageUnavailable = errors.New("docs: storage unavailable")
)

// Record is a stored document plus where the resolution engine found it.
type Record struct {
	ID         string
	Name       string
	Source     resolve.Source
	CreatedAt  time.Time
	ModifiedAt time.Time
	Payload    []byte
}

// RecordRef identifies a record after a write.
type RecordRef struct {
	ID   string
	Name string
}

// Filter narrows List results. A zero Filter matches everything.
type Filter struct {
	// LogicalKeyPrefix keeps only records whose logical key starts with
	// the given prefix (e.g. a subject).
	LogicalKeyPrefix string
}

// Store is the document store. It owns no state beyond its backend handle;
// all location decisions are delegated to the paths package and all tiered
// reads to the resolution engine.
type Store struct {
	backend storage.Backend
	res     *resolve.Engine
	log     *zap.Logger
	now     func() time.Time
}

func New(backend storage.Backend, logger *zap.Logger) *Store {
	return &Store{
		backend: backend,
		res:     resolve.New(backend, logger),
		log:     logger,
		now:     time.Now,
	}
}

// SetClock overrides the time source used for date stamps. Tests use it to
// pin filenames.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Save validates the payload, then writes it to the canonical container
// only. The filename is deterministic (kind prefix, logical key, date
// stamp); if a file with the same logical-key prefix already exists in the
// canonical container the write overwrites it in place instead of creating
// a sibling.
func (s *Store) Save(ctx context.Context, ns paths.Namespace, kind paths.Kind, payload []byte) (RecordRef, error) {
	if len(payload) > limits.MaxRecordSize {
		return RecordRef{}, fmt.Errorf("%w: payload exceeds %d bytes", ErrInvalidPayload, limits.MaxRecordSize)
	}
	c, err := codecFor(kind)
	if err != nil {
		return RecordRef{}, err
	}
	key, err := c.logicalKey(payload)
	if err != nil {
		return RecordRef{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	folderID, err := s.ensureCanonical(ctx, ns, kind)
	if err != nil {
		return RecordRef{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	name := kind.FileName(key, s.now().UTC().Format("20060102"))
	existing, ok, err := s.findByKeyPrefix(ctx, folderID, kind.KeyPrefix(key))
	if err != nil {
		return RecordRef{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if ok {
		name = existing.Name
	}
	f, err := s.backend.WriteFile(ctx, folderID, name, payload)
	if err != nil {
		return RecordRef{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return RecordRef{ID: f.ID, Name: f.Name}, nil
}

// ensureCanonical creates (or finds) the canonical container chain for the
// namespace and kind. Writes never target legacy containers.
func (s *Store) ensureCanonical(ctx context.Context, ns paths.Namespace, kind paths.Kind) (string, error) {
	cand := paths.Candidates(ns, kind)[0]
	folderID := storage.RootFolderID
	for _, name := range cand.Segments {
		f, err := s.backend.EnsureFolder(ctx, folderID, name)
		if err != nil {
			return "", err
		}
		folderID = f.ID
	}
	return folderID, nil
}

// findByKeyPrefix locates an existing revision of the logical key in the
// canonical container. The lookup runs on the write path, so its errors
// propagate; proceeding blind would duplicate the record under a fresh
// dated name.
func (s *Store) findByKeyPrefix(ctx context.Context, folderID, keyPrefix string) (storage.File, bool, error) {
	files, err := s.backend.ListFiles(ctx, folderID)
	if err != nil {
		return storage.File{}, false, err
	}
	for _, f := range files {
		if strings.HasPrefix(f.Name, keyPrefix) {
			return f, true, nil
		}
	}
	return storage.File{}, false, nil
}

// Get returns one record by backend id. Any backend failure, a trashed
// file, or an id whose file does not follow the kind's naming convention
// all surface as ErrNotFound.
func (s *Store) Get(ctx context.Context, ns paths.Namespace, kind paths.Kind, id string) (Record, error) {
	c, err := codecFor(kind)
	if err != nil {
		return Record{}, err
	}
	f, data, err := s.backend.ReadFile(ctx, id)
	if err != nil {
		if err != storage.ErrNotFound {
			s.log.Debug("docs: get degraded to not-found", zap.String("id", id), zap.Error(err))
		}
		return Record{}, ErrNotFound
	}
	if !kind.Matches(f.Name) {
		return Record{}, ErrNotFound
	}
	normalized, err := c.normalize(data)
	if err != nil {
		s.log.Debug("docs: payload unreadable", zap.String("id", id), zap.Error(err))
		return Record{}, ErrNotFound
	}
	return Record{
		ID:         f.ID,
		Name:       f.Name,
		Source:     resolve.SourceCanonical,
		CreatedAt:  f.CreatedAt,
		ModifiedAt: f.ModifiedAt,
		Payload:    normalized,
	}, nil
}

// List returns all records for (namespace, kind) from the first non-empty
// resolution tier, newest first (ties keep backend order). It never fails:
// backend errors degrade to an empty result.
func (s *Store) List(ctx context.Context, ns paths.Namespace, kind paths.Kind, filter Filter) []Record {
	c, err := codecFor(kind)
	if err != nil {
		return nil
	}
	items := s.res.Lookup(ctx, ns, kind)

	var out []Record
	for _, it := range items {
		if filter.LogicalKeyPrefix != "" &&
			!matchesKeyPrefix(ns, kind, it.File.Name, filter.LogicalKeyPrefix) {
			continue
		}
		_, data, err := s.backend.ReadFile(ctx, it.File.ID)
		if err != nil {
			s.log.Debug("docs: list skipped unreadable file",
				zap.String("name", it.File.Name), zap.Error(err))
			continue
		}
		normalized, err := c.normalize(data)
		if err != nil {
			s.log.Debug("docs: list skipped malformed payload",
				zap.String("name", it.File.Name), zap.Error(err))
			continue
		}
		out = append(out, Record{
			ID:         it.File.ID,
			Name:       it.File.Name,
			Source:     it.Source,
			CreatedAt:  it.File.CreatedAt,
			ModifiedAt: it.File.ModifiedAt,
			Payload:    normalized,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ModifiedAt.After(out[j].ModifiedAt)
	})
	return out
}

// matchesKeyPrefix reports whether a filename's logical key starts with
// prefix, under either naming convention: the canonical form puts the key
// right after the kind prefix, the legacy form carries the owner token in
// between.
func matchesKeyPrefix(ns paths.Namespace, kind paths.Kind, name, prefix string) bool {
	if strings.HasPrefix(name, kind.KeyPrefix("")+prefix) {
		return true
	}
	return strings.HasPrefix(name, paths.LegacyFileToken(ns, kind)+prefix)
}

// GetByKey returns the record with the given logical key, resolved through
// the same tiers as List. ErrNotFound if no tier has it.
func (s *Store) GetByKey(ctx context.Context, ns paths.Namespace, kind paths.Kind, logicalKey string) (Record, error) {
	for _, r := range s.List(ctx, ns, kind, Filter{}) {
		if matchesKeyPrefix(ns, kind, r.Name, logicalKey+"_") {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// SoftDelete marks the record removed in the backend. The bytes remain
// recoverable through the backend's trash until the retention sweeper
// purges them.
func (s *Store) SoftDelete(ctx context.Context, ns paths.Namespace, kind paths.Kind, id string) error {
	if _, err := s.Get(ctx, ns, kind, id); err != nil {
		return err
	}
	if err := s.backend.Trash(ctx, id); err != nil {
		if err == storage.ErrNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
